// Package core provides the foundational domain types and interfaces used by
// AgentBus. It defines the core abstractions for:
//
//   - Events (immutable, identified, sequenced messages)
//   - Selectors (predicate + priority deciding handler activation)
//   - Agents (named participants holding selector/handler rules)
//   - Activations (scoped execution context handed to a matched handler)
//
// The package intentionally keeps implementation concerns (dispatch,
// persistence, concrete agents) out of scope, exposing small interfaces to
// enable custom backends and extensions.
package core
