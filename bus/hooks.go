package bus

import (
	"context"
	"fmt"

	"github.com/hupe1980/agentbus/checkpoint"
	"github.com/hupe1980/agentbus/core"
)

// HookType defines the specific lifecycle points where hooks can be executed.
//
// Hooks provide a mechanism for observing and guarding the dispatch pipeline
// without modifying core logic. They are executed synchronously: keep them
// fast and free of panics.
type HookType string

const (
	// HookBeforeDispatch is triggered before a matched handler is invoked.
	// A hook error suppresses the invocation and is reported as an error
	// event, so before-dispatch hooks can act as guards.
	HookBeforeDispatch HookType = "before_dispatch"

	// HookAfterDispatch is triggered after a matched handler returns,
	// regardless of success.
	HookAfterDispatch HookType = "after_dispatch"

	// HookOnError is triggered when a handler fails (error or panic).
	HookOnError HookType = "on_error"

	// HookOnIdle is triggered when an event matches no selector. Idle events
	// are not errors; this is purely an observability point.
	HookOnIdle HookType = "on_idle"

	// HookOnCheckpoint is triggered after the bus captures a checkpoint
	// under its configured policy.
	HookOnCheckpoint HookType = "on_checkpoint"
)

// HookContext carries the information available at a hook's execution point.
// Fields are populated as applicable for the hook type.
type HookContext struct {
	// Event is the event being processed.
	Event *core.Event

	// AgentName identifies the agent whose handler is (or was) involved.
	// Empty for on_idle and on_checkpoint.
	AgentName string

	// Err holds the handler failure for on_error hooks.
	Err error

	// Checkpoint holds the captured document for on_checkpoint hooks.
	Checkpoint *checkpoint.Checkpoint
}

// Hook is a typed lifecycle observer registered with the bus.
type Hook interface {
	// Type returns the hook type this implementation handles.
	Type() HookType

	// Execute performs the hook logic. For before_dispatch hooks a returned
	// error suppresses the handler invocation; for all other types the error
	// is logged and otherwise ignored.
	Execute(ctx context.Context, hc *HookContext) error
}

// FunctionHook wraps a function as a Hook implementation.
//
// Example:
//
//	audit := bus.NewFunctionHook(bus.HookOnError, func(ctx context.Context, hc *bus.HookContext) error {
//	    log.Printf("agent %s failed on %s", hc.AgentName, hc.Event.ID)
//	    return nil
//	})
type FunctionHook struct {
	hookType HookType
	fn       func(ctx context.Context, hc *HookContext) error
}

// NewFunctionHook creates a new function-based hook for the given type.
func NewFunctionHook(hookType HookType, fn func(ctx context.Context, hc *HookContext) error) *FunctionHook {
	return &FunctionHook{hookType: hookType, fn: fn}
}

// Type returns the hook type this function handles.
func (h *FunctionHook) Type() HookType { return h.hookType }

// Execute calls the wrapped function.
func (h *FunctionHook) Execute(ctx context.Context, hc *HookContext) error {
	return h.fn(ctx, hc)
}

// hookSet routes hook execution by type, in registration order.
type hookSet struct {
	hooks map[HookType][]Hook
}

func newHookSet(hooks []Hook) *hookSet {
	hs := &hookSet{hooks: make(map[HookType][]Hook)}
	for _, h := range hooks {
		hs.hooks[h.Type()] = append(hs.hooks[h.Type()], h)
	}
	return hs
}

// run executes all hooks of the given type, stopping at the first error.
func (hs *hookSet) run(ctx context.Context, hookType HookType, hc *HookContext) error {
	for _, h := range hs.hooks[hookType] {
		if err := h.Execute(ctx, hc); err != nil {
			return fmt.Errorf("%s hook: %w", hookType, err)
		}
	}
	return nil
}
