// Package agentbus provides a high-level façade over the dispatch bus and its
// service abstractions (checkpoint stores & logging) enabling rapid
// construction of event-driven multi-agent workflows. Most applications
// interact with this package by:
//  1. Creating an AgentBus via New() (optionally overriding defaults)
//  2. Registering one or more agents (reactive, proxy, custom)
//  3. Emitting the initiating event and driving the cascade with Run
//
// The façade delegates dispatch to bus.Bus while keeping setup and usage
// ergonomics concise. All defaults are safe for local development and
// testing; production deployments typically supply a durable checkpoint
// store and a structured logger.
package agentbus

import (
	"context"

	"github.com/hupe1980/agentbus/bus"
	"github.com/hupe1980/agentbus/checkpoint"
	"github.com/hupe1980/agentbus/core"
	"github.com/hupe1980/agentbus/logging"
)

// Options configures the AgentBus instance.
type Options struct {
	// Scheduler selects sequential (default) or parallel handler invocation.
	Scheduler bus.Scheduler

	// TerminationKinds lists event kinds that halt a run once dispatched.
	TerminationKinds []string

	// AbortOnError makes any handler failure abort the run instead of
	// continuing with the remaining matches.
	AbortOnError bool

	// CheckpointStore receives automatic captures (defaults to none; supply
	// e.g. checkpoint.NewInMemoryStore() or a redis/postgres store).
	CheckpointStore checkpoint.Store

	// CheckpointPolicy decides per completed event whether to capture.
	CheckpointPolicy bus.Policy

	// StreamBufferSize sets the channel buffer for Subscribe consumers.
	StreamBufferSize int

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger

	// Hooks observe and guard the dispatch pipeline.
	Hooks []bus.Hook
}

// AgentBus is the high-level façade aggregating the underlying dispatch bus.
type AgentBus struct {
	bus *bus.Bus
}

// New creates a new AgentBus instance with optional overrides.
//
// Example:
//
//	ab := agentbus.New(func(o *agentbus.Options) {
//	    o.TerminationKinds = []string{"workflow.done"}
//	    o.CheckpointStore = checkpoint.NewInMemoryStore()
//	})
func New(optFns ...func(o *Options)) *AgentBus {
	opts := Options{
		CheckpointPolicy: bus.AfterEvery(),
		StreamBufferSize: 100,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &AgentBus{bus: bus.New(busOptions(opts))}
}

func busOptions(opts Options) func(o *bus.Options) {
	return func(o *bus.Options) {
		o.Scheduler = opts.Scheduler
		o.TerminationKinds = opts.TerminationKinds
		o.AbortOnError = opts.AbortOnError
		o.CheckpointStore = opts.CheckpointStore
		o.CheckpointPolicy = opts.CheckpointPolicy
		o.StreamBufferSize = opts.StreamBufferSize
		o.Logger = opts.Logger
		o.Hooks = opts.Hooks
	}
}

// Register adds agents to the bus registry. Registration order is part of
// the dispatch tie-break, so register in the order handlers should fire at
// equal priority.
func (ab *AgentBus) Register(agents ...core.Agent) error {
	for _, a := range agents {
		if err := ab.bus.Register(a); err != nil {
			return err
		}
	}
	return nil
}

// Deregister removes the named agent, reporting whether it was present.
func (ab *AgentBus) Deregister(name string) bool { return ab.bus.Deregister(name) }

// Emit publishes an externally-sourced event, assigning identity and the
// next sequence number.
func (ab *AgentBus) Emit(kind string, fields map[string]any) core.Event {
	return ab.bus.Emit(kind, fields)
}

// Run drives the dispatch loop until the cascade completes, terminates,
// suspends awaiting input, or aborts.
func (ab *AgentBus) Run(ctx context.Context) (*bus.Outcome, error) { return ab.bus.Run(ctx) }

// Subscribe returns a stream of completed events plus a cancel function.
func (ab *AgentBus) Subscribe() (<-chan core.Event, func()) { return ab.bus.Subscribe() }

// SupplyInput satisfies an outstanding input request; call Run again to
// continue the cascade.
func (ab *AgentBus) SupplyInput(requestID string, fields map[string]any) (core.Event, error) {
	return ab.bus.SupplyInput(requestID, fields)
}

// CancelInput cancels an outstanding input request, reporting the
// cancellation as an error event.
func (ab *AgentBus) CancelInput(requestID, cause string) error {
	return ab.bus.CancelInput(requestID, cause)
}

// Log returns a copy of the completed event log in dispatch order.
func (ab *AgentBus) Log() []core.Event { return ab.bus.Log() }

// PendingInputs returns the outstanding input requests, oldest first.
func (ab *AgentBus) PendingInputs() []core.Event { return ab.bus.PendingInputs() }

// Capture serializes the current bus state into a checkpoint document.
// Persisting it is the caller's responsibility (or configure a
// CheckpointStore with a policy for automatic captures).
func (ab *AgentBus) Capture() (*checkpoint.Checkpoint, error) { return ab.bus.Capture() }

// Resume reconstructs an AgentBus from a checkpoint and the same set of
// agents that were registered at capture time.
func Resume(cp *checkpoint.Checkpoint, agents []core.Agent, optFns ...func(o *Options)) (*AgentBus, error) {
	opts := Options{
		CheckpointPolicy: bus.AfterEvery(),
		StreamBufferSize: 100,
		Logger:           logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	b, err := bus.Resume(cp, agents, busOptions(opts))
	if err != nil {
		return nil, err
	}
	return &AgentBus{bus: b}, nil
}
