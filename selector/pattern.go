package selector

import (
	"fmt"

	"github.com/hupe1980/agentbus/core"
)

// Pattern is a compiled pattern-matching selector. It implements
// core.Selector: the pattern is evaluated against the event's field mapping,
// optionally constrained to a single event kind, and carries a fixed
// priority. Pattern values are immutable; the With*/For* refiners return
// copies sharing the compiled tree.
type Pattern struct {
	expr     string
	root     objectMatcher
	kind     string
	priority int
}

// Compile parses a pattern expression. See the package documentation for the
// grammar. The returned Pattern matches events of any kind at priority 0;
// refine with ForKind and WithPriority.
func Compile(expr string) (*Pattern, error) {
	root, err := parsePattern(expr)
	if err != nil {
		return nil, err
	}
	return &Pattern{expr: expr, root: root}, nil
}

// MustCompile is like Compile but panics on a malformed expression. Intended
// for patterns fixed at agent construction time.
func MustCompile(expr string) *Pattern {
	p, err := Compile(expr)
	if err != nil {
		panic(fmt.Sprintf("selector: MustCompile(%q): %v", expr, err))
	}
	return p
}

// WithPriority returns a copy of the pattern with the given priority. Higher
// priorities are dispatched first when several selectors match one event.
func (p *Pattern) WithPriority(priority int) *Pattern {
	cp := *p
	cp.priority = priority
	return &cp
}

// ForKind returns a copy of the pattern that additionally requires the event
// kind to equal kind.
func (p *Pattern) ForKind(kind string) *Pattern {
	cp := *p
	cp.kind = kind
	return &cp
}

// Expr returns the source expression the pattern was compiled from.
func (p *Pattern) Expr() string { return p.expr }

// Match evaluates the pattern against the event's fields. Bindings collected
// by =name, *name and **name wildcards are returned on success.
func (p *Pattern) Match(e core.Event) (core.Match, bool) {
	if p.kind != "" && e.Kind != p.kind {
		return core.Match{}, false
	}
	fields := e.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	binds := map[string]any{}
	if !p.root.match(fields, binds) {
		return core.Match{}, false
	}
	return core.Match{Priority: p.priority, Bindings: binds}, true
}

// String renders the pattern for logs and debugging.
func (p *Pattern) String() string {
	if p.kind != "" {
		return fmt.Sprintf("Pattern(kind=%s expr=%s prio=%d)", p.kind, p.expr, p.priority)
	}
	return fmt.Sprintf("Pattern(expr=%s prio=%d)", p.expr, p.priority)
}
