package agent

import (
	"encoding/json"
	"sync"

	"github.com/hupe1980/agentbus/core"
)

// Base is a reactive agent assembled from explicit registration calls: each
// React adds a (selector, handler) rule evaluated by the bus against every
// event. Base carries a mutex-guarded private state map; handlers mutate it
// only through the accessors, which keeps the per-agent serialization
// contract easy to honor and makes the state snapshottable for checkpoints.
//
// Construction is chainable:
//
//	critic := agent.New("critic").
//	    React(selector.MustCompile(`{role: "critic", task: =task}`).WithPriority(5), handleReview)
type Base struct {
	name  string
	rules []core.Rule

	mu    sync.RWMutex
	state map[string]any
}

// New constructs an empty reactive agent with the given identity.
func New(name string) *Base {
	return &Base{name: name, state: map[string]any{}}
}

// Name returns the agent's unique identity.
func (b *Base) Name() string { return b.name }

// React appends a reactive rule. Declaration order is the final tie-break
// when the bus orders matched handlers, so register more specific rules
// first if they share a priority. Returns the agent for chaining.
func (b *Base) React(sel core.Selector, h core.Handler) *Base {
	b.rules = append(b.rules, core.Rule{Selector: sel, Handler: h})
	return b
}

// Rules returns the agent's rules in declaration order.
func (b *Base) Rules() []core.Rule { return b.rules }

// Get returns a private state value and whether it is present.
func (b *Base) Get(key string) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	v, ok := b.state[key]
	return v, ok
}

// Set stores a private state value.
func (b *Base) Set(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state[key] = value
}

// Update applies fn to the current value of key and stores the result.
// The read-modify-write runs under the state lock.
func (b *Base) Update(key string, fn func(old any) any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state[key] = fn(b.state[key])
}

// State returns a shallow copy of the private state map.
func (b *Base) State() map[string]any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c := make(map[string]any, len(b.state))
	for k, v := range b.state {
		c[k] = v
	}
	return c
}

// SnapshotState implements core.StateSnapshotter. State values must stay
// within the JSON data model for the snapshot to round-trip faithfully.
func (b *Base) SnapshotState() (json.RawMessage, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return json.Marshal(b.state)
}

// RestoreState implements core.StateSnapshotter, replacing the private state.
func (b *Base) RestoreState(data json.RawMessage) error {
	state := map[string]any{}
	if err := json.Unmarshal(data, &state); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = state
	return nil
}
