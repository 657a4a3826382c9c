package checkpoint

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hupe1980/agentbus/core"
)

// FormatVersion is embedded in every checkpoint document. Loading a document
// with a different version fails fatally rather than attempting a partial
// resume.
const FormatVersion = 1

var (
	// ErrNotFound is returned when no checkpoint exists for the given id
	// (or the store is empty for Latest).
	ErrNotFound = fmt.Errorf("checkpoint not found")

	// ErrInvalidCheckpoint is returned when a persisted document cannot
	// reconstruct a valid bus state.
	ErrInvalidCheckpoint = fmt.Errorf("invalid checkpoint")
)

// Checkpoint is a durable snapshot of bus state sufficient to resume a
// cascade. Resuming from it must produce behavior indistinguishable from an
// uninterrupted run given the same external inputs from the cursor forward:
// events at or below Cursor are never re-dispatched, pending events are
// dispatched in order, and agent state snapshots restore exactly what their
// handlers had observed.
type Checkpoint struct {
	ID            string                     `json:"id"`
	Version       int                        `json:"version"`
	CapturedAt    time.Time                  `json:"captured_at"`
	NextSeq       int64                      `json:"next_seq"`
	Cursor        int64                      `json:"cursor"`
	Completed     []core.Event               `json:"completed,omitempty"`
	Pending       []core.Event               `json:"pending,omitempty"`
	InputRequests []core.Event               `json:"input_requests,omitempty"`
	AgentStates   map[string]json.RawMessage `json:"agent_states,omitempty"`
}

// Validate checks the structural invariants a resumable document must hold.
func (c *Checkpoint) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidCheckpoint)
	}
	if c.Version != FormatVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidCheckpoint, c.Version)
	}
	if c.NextSeq < 1 {
		return fmt.Errorf("%w: next_seq must be positive", ErrInvalidCheckpoint)
	}
	if c.Cursor >= c.NextSeq {
		return fmt.Errorf("%w: cursor %d not below next_seq %d", ErrInvalidCheckpoint, c.Cursor, c.NextSeq)
	}
	for _, ev := range c.Pending {
		if ev.Seq <= c.Cursor {
			return fmt.Errorf("%w: pending event seq %d at or below cursor %d", ErrInvalidCheckpoint, ev.Seq, c.Cursor)
		}
	}
	return nil
}

// Marshal encodes the checkpoint as its canonical JSON document.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal decodes and validates a checkpoint document.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCheckpoint, err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Store persists checkpoint documents. Implementations must be safe for
// concurrent use. Save overwrites any prior document with the same id.
type Store interface {
	Save(ctx context.Context, cp *Checkpoint) error
	Load(ctx context.Context, id string) (*Checkpoint, error)
	// Latest returns the most recently captured checkpoint or ErrNotFound.
	Latest(ctx context.Context) (*Checkpoint, error)
	// List returns known checkpoint ids ordered oldest first.
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, id string) error
}
