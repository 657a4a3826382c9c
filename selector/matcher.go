package selector

import "reflect"

// matcher is a node of the compiled pattern tree. match reports whether the
// value satisfies the node, recording variable bindings in binds. A failed
// match may leave partial bindings behind; Pattern.Match works on a scratch
// map and only publishes bindings on overall success.
type matcher interface {
	match(value any, binds map[string]any) bool
}

// literalMatcher matches a scalar literal: string, float64, bool or nil.
type literalMatcher struct {
	value any
}

func (m literalMatcher) match(value any, _ map[string]any) bool {
	return equalValues(m.value, value)
}

// bindMatcher matches any value and binds it to a variable. A variable bound
// earlier in the same match must hold an equal value.
type bindMatcher struct {
	name string
}

func (m bindMatcher) match(value any, binds map[string]any) bool {
	return bindVar(m.name, value, binds)
}

func bindVar(name string, value any, binds map[string]any) bool {
	if prev, ok := binds[name]; ok {
		return equalValues(prev, value)
	}
	binds[name] = value
	return true
}

// listMatcher matches a sequence element-wise. Without a rest variable the
// lengths must be equal; with one, the remaining tail is bound to it.
type listMatcher struct {
	items   []matcher
	rest    string
	hasRest bool
}

func (m listMatcher) match(value any, binds map[string]any) bool {
	seq, ok := value.([]any)
	if !ok {
		return false
	}
	if len(m.items) > len(seq) {
		return false
	}
	for i, item := range m.items {
		if !item.match(seq[i], binds) {
			return false
		}
	}
	if !m.hasRest {
		return len(seq) == len(m.items)
	}
	tail := make([]any, len(seq)-len(m.items))
	copy(tail, seq[len(m.items):])
	return bindVar(m.rest, tail, binds)
}

type objectField struct {
	key   string
	value matcher
}

// objectMatcher matches a mapping. Required keys must be present and match;
// extra keys are permitted. With a rest variable the unmatched remainder is
// bound to it (possibly empty).
type objectMatcher struct {
	fields  []objectField
	rest    string
	hasRest bool
}

func (m objectMatcher) match(value any, binds map[string]any) bool {
	obj, ok := value.(map[string]any)
	if !ok {
		return false
	}
	for _, f := range m.fields {
		v, present := obj[f.key]
		if !present {
			return false
		}
		if !f.value.match(v, binds) {
			return false
		}
	}
	if !m.hasRest {
		return true
	}
	rest := make(map[string]any, len(obj))
	for k, v := range obj {
		rest[k] = v
	}
	for _, f := range m.fields {
		delete(rest, f.key)
	}
	return bindVar(m.rest, rest, binds)
}

// equalValues compares two field values structurally. Numbers compare by
// value regardless of Go type, so events round-tripped through JSON (where
// every number decodes as float64) keep matching the same patterns.
func equalValues(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case nil:
		return b == nil
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equalValues(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, v := range av {
			bvv, present := bv[k]
			if !present || !equalValues(v, bvv) {
				return false
			}
		}
		return true
	default:
		// Values outside the JSON data model (typed slices, structs) compare
		// by deep equality; == would panic on uncomparable dynamic types.
		return reflect.DeepEqual(a, b)
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
