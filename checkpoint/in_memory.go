package checkpoint

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryStore is a volatile Store implementation keeping documents in a
// process local map. It is safe for concurrent access and best suited for
// tests or ephemeral workflows. Documents are round-tripped through their
// JSON encoding on save and load so the in-memory store exercises the same
// serialization path as durable backends.
type InMemoryStore struct {
	mu   sync.RWMutex
	docs map[string][]byte
	at   map[string]time.Time
}

// NewInMemoryStore constructs an empty in-memory checkpoint store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{docs: make(map[string][]byte), at: make(map[string]time.Time)}
}

// Save stores the document, overwriting any prior checkpoint with the same id.
func (s *InMemoryStore) Save(_ context.Context, cp *Checkpoint) error {
	if err := cp.Validate(); err != nil {
		return err
	}
	data, err := cp.Marshal()
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[cp.ID] = data
	s.at[cp.ID] = cp.CapturedAt
	return nil
}

// Load returns the checkpoint with the given id or ErrNotFound.
func (s *InMemoryStore) Load(_ context.Context, id string) (*Checkpoint, error) {
	s.mu.RLock()
	data, ok := s.docs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return Unmarshal(data)
}

// Latest returns the most recently captured checkpoint.
func (s *InMemoryStore) Latest(_ context.Context) (*Checkpoint, error) {
	s.mu.RLock()
	var latestID string
	var latestAt time.Time
	for id, at := range s.at {
		if latestID == "" || at.After(latestAt) {
			latestID, latestAt = id, at
		}
	}
	var data []byte
	if latestID != "" {
		data = s.docs[latestID]
	}
	s.mu.RUnlock()
	if latestID == "" {
		return nil, ErrNotFound
	}
	return Unmarshal(data)
}

// List returns known checkpoint ids ordered oldest first.
func (s *InMemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.at))
	for id := range s.at {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if s.at[ids[i]].Equal(s.at[ids[j]]) {
			return ids[i] < ids[j]
		}
		return s.at[ids[i]].Before(s.at[ids[j]])
	})
	return ids, nil
}

// Delete removes a checkpoint. Deleting an unknown id is not an error.
func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id)
	delete(s.at, id)
	return nil
}
