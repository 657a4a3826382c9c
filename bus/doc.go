// Package bus implements the dispatch substrate of AgentBus: it accepts
// emitted events, determines which agents' selectors match, invokes matched
// handlers in a defined order and owns the resulting cascade's lifecycle.
//
// Dispatch model, per event:
//
//  1. Pending — the event is admitted and assigned the next sequence number.
//  2. Matching — every registered agent's rules are evaluated exhaustively.
//  3. Dispatching — matches are ordered by priority descending, then agent
//     registration order, then rule declaration order, and invoked. Events
//     emitted by handlers join the tail of the pending queue, never the
//     current dispatch (breadth-first cascade, not depth-first recursion).
//  4. Completed — the event joins the log, the cursor advances, the
//     checkpoint policy runs.
//
// A run halts when the queue drains (Completed, or AwaitingInput if handlers
// registered outstanding input requests), when a configured termination kind
// is observed, or when a handler fails under the abort-on-error policy.
//
// Handler failures never crash the cascade by default: they are converted to
// core.KindError events re-entering the same pipeline, so error handling is
// expressible as just another agent reacting to an event kind.
//
// Two schedulers are provided. The sequential scheduler (default) invokes
// matched handlers one at a time in tie-break order, giving deterministic,
// reproducible cascades. The parallel scheduler invokes different agents'
// handlers concurrently while serializing handlers of the same agent and
// all emission into the pending queue; sequence numbering remains a total
// order and breadth-first level ordering is preserved.
package bus
