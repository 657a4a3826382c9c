package core

import (
	"context"

	"github.com/hupe1980/agentbus/logging"
)

// Activation is the per-dispatch execution scope handed to a matched handler.
// It aggregates:
//   - The ambient cancellation Context
//   - The triggering Event and the selector's variable Bindings
//   - The activated agent's identity
//   - Emission and input-request hooks back into the bus
//   - A Logger scoped to the activation
//
// Activations are created by the bus per handler invocation and must not be
// retained after the handler returns.
type Activation struct {
	Context   context.Context
	Event     Event
	Bindings  map[string]any
	AgentName string
	Logger    logging.Logger

	emit         func(kind string, fields map[string]any) Event
	requestInput func(prompt string, fields map[string]any) Event
}

// NewActivation constructs an Activation. It is exported for the bus and for
// tests that drive handlers directly.
func NewActivation(
	ctx context.Context,
	event Event,
	bindings map[string]any,
	agentName string,
	logger logging.Logger,
	emit func(kind string, fields map[string]any) Event,
	requestInput func(prompt string, fields map[string]any) Event,
) *Activation {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Activation{
		Context:      ctx,
		Event:        event,
		Bindings:     bindings,
		AgentName:    agentName,
		Logger:       logger,
		emit:         emit,
		requestInput: requestInput,
	}
}

// Done mirrors context.Context's Done.
func (a *Activation) Done() <-chan struct{} { return a.Context.Done() }

// Err returns the cancellation error (if any) from the underlying context.
func (a *Activation) Err() error { return a.Context.Err() }

// Binding returns a variable bound by the matching selector.
func (a *Activation) Binding(name string) (any, bool) {
	v, ok := a.Bindings[name]
	return v, ok
}

// StringBinding returns a bound variable as a string, or "" when absent or
// not a string.
func (a *Activation) StringBinding(name string) string {
	if v, ok := a.Bindings[name]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Emit publishes a new event authored by the activated agent. The event is
// appended to the bus's pending queue and dispatched after the current
// event's cascade level completes (breadth-first, never inline).
func (a *Activation) Emit(kind string, fields map[string]any) Event {
	return a.emit(kind, fields)
}

// RequestInput emits a KindInputRequest event and registers an outstanding
// input request with the bus. The returned event's ID is the request key an
// external driver must use with SupplyInput or CancelInput. Extra fields are
// merged into the request event alongside the prompt.
func (a *Activation) RequestInput(prompt string, fields map[string]any) Event {
	return a.requestInput(prompt, fields)
}
