// Package agent provides ready-made core.Agent implementations:
//
//   - Base: a named reactive agent built from explicit (selector, handler)
//     rules with JSON-snapshottable private state
//   - Proxy: a bridge representing a foreign (non-bus-native) system inside
//     the bus
//
// Agents never call each other directly; every interaction is mediated by
// event emission through the bus.
package agent
