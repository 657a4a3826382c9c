package core

import "encoding/json"

// Handler reacts to a matched event. It may read its own agent's private
// state, mutate that state, and emit new events through the activation. It
// must not reach into other agents: every inter-agent interaction is mediated
// by event emission.
//
// A returned error does not abort the cascade; the bus converts it into a
// KindError event and continues with the remaining matches (unless a global
// abort policy is configured).
type Handler func(act *Activation) error

// Rule binds a selector to the handler it guards. Rules are declared at agent
// construction time; their declaration order is the final tie-break when the
// bus orders matched handlers.
type Rule struct {
	Selector Selector
	Handler  Handler
}

// Agent is a named participant on the bus. Names must be unique within a
// running bus. Agents are only ever activated through selector matches on
// events delivered by the bus.
type Agent interface {
	// Name returns the agent's unique identity.
	Name() string

	// Rules returns the agent's reactive rules in declaration order. The
	// returned slice must be stable for the lifetime of the registration.
	Rules() []Rule
}

// StateSnapshotter is implemented by agents whose private state should
// participate in checkpoints. Snapshots must capture everything a handler
// depends on, so that restoring the snapshot and replaying from the cursor is
// indistinguishable from an uninterrupted run.
type StateSnapshotter interface {
	SnapshotState() (json.RawMessage, error)
	RestoreState(data json.RawMessage) error
}
