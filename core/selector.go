package core

// Match carries the outcome of a successful selector evaluation: the priority
// used to order handler invocation and any variable bindings collected during
// a structural match. Bindings may be nil for selectors without wildcards.
type Match struct {
	Priority int
	Bindings map[string]any
}

// Selector decides whether an agent's handler activates for a given event.
//
// Implementations must be pure with respect to the match decision: evaluating
// a selector twice against the same event yields the same result, and the
// evaluation has no side effects observable outside the returned Match.
type Selector interface {
	// Match reports whether the event activates the guarded handler. The
	// returned Match is only meaningful when ok is true.
	Match(e Event) (m Match, ok bool)
}

// FuncSelector adapts an arbitrary predicate into a Selector. It is the
// escape hatch for activation logic the pattern syntax cannot express.
type FuncSelector func(e Event) (ok bool, priority int)

// Match evaluates the wrapped predicate.
func (f FuncSelector) Match(e Event) (Match, bool) {
	ok, prio := f(e)
	if !ok {
		return Match{}, false
	}
	return Match{Priority: prio}, true
}

// KindSelector matches every event of a fixed kind at a fixed priority.
// Useful for observers such as error-handling or recording agents.
type KindSelector struct {
	Kind     string
	Priority int
}

// Match reports whether the event kind equals the selector kind.
func (s KindSelector) Match(e Event) (Match, bool) {
	if e.Kind != s.Kind {
		return Match{}, false
	}
	return Match{Priority: s.Priority}, true
}

// AnySelector matches every event at a fixed priority.
type AnySelector struct {
	Priority int
}

// Match always succeeds.
func (s AnySelector) Match(Event) (Match, bool) {
	return Match{Priority: s.Priority}, true
}
