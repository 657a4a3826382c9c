package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/agentbus/core"
)

func event(kind string, fields map[string]any) core.Event {
	return core.NewEvent("test", kind, fields)
}

func TestCompile_Accepts(t *testing.T) {
	exprs := []string{
		`{"key": "value"}`,
		`{key: "value"}`,
		`{"key": 123}`,
		`{"key": =value}`,
		`{key: 123}`,
		`{"key": true}`,
		`{"key": false}`,
		`{key: true}`,
		`{"key": null}`,
		`{key: null}`,
		`{"key": [1, 2, 3]}`,
		`{key: [1, 2, 3]}`,
		`{"key": 17, **kwargs}`,
		`{"key": {"nested": "value"}}`,
		`{key: {"nested": "value"}}`,
		`{"key": "value", "key2": 456}`,
		`{key: "value", key2: 456}`,
		`{"key": "value with \"quotes\""}`,
		`{"key": "value\nwith newline"}`,
		`{"key": "value\twith tab"}`,
		`{"key": "value\rwith carriage return"}`,
		`{"key": "value\\with backslash"}`,
		`{"a": "b", "c": {"d": [1, 2, false]}}`,
		`{a: "b", c: {d: [1, 2, false]}}`,
		`{"key": ""}`,
		`{key: ""}`,
		`{"": "value"}`,
		`{"key": []}`,
		`{items: [1, 2, *rest]}`,
		`{"k": 1, **rest}`,
		`{"key": {}}`,
		`{}`,
		`{key: -42}`,
		`{key: 123.45}`,
	}
	for _, expr := range exprs {
		_, err := Compile(expr)
		assert.NoError(t, err, "expected %q to compile", expr)
	}
}

func TestCompile_Rejects(t *testing.T) {
	exprs := []string{
		`{"key": value}`,           // bare identifier in value position
		`{items: [1, 2,]}`,         // trailing comma in list
		`{"key": }`,                // missing value
		`{123: "value"}`,           // non-identifier key
		`{"key"  "value"}`,         // missing colon
		`{"key":123,}`,             // trailing comma in object
		`}`,                        // just a close brace
		`{]`,                       // mismatched braces
		`{k: truefalse}`,           // not a keyword
		`[1, 2, 3]`,                // top level must be an object
		`"scalar"`,                 // top level must be an object
		`{k: 1} trailing`,          // trailing input
		`{**rest, k: 1}`,           // rest must be last
		`{k: "unterminated}`,       // unterminated string
		`{k: =}`,                   // missing variable name
		`{k: [*]}`,                 // missing rest name
	}
	for _, expr := range exprs {
		_, err := Compile(expr)
		assert.Error(t, err, "expected %q to be rejected", expr)
	}
}

func TestPattern_MatchScalarsAndLists(t *testing.T) {
	tests := []struct {
		name    string
		expr    string
		fields  map[string]any
		want    bool
		binds   map[string]any
	}{
		{
			name:   "exact list",
			expr:   `{l: [1, "koko", 3]}`,
			fields: map[string]any{"l": []any{1, "koko", 3}},
			want:   true,
		},
		{
			name:   "list element mismatch",
			expr:   `{l: [1, "koko", 3]}`,
			fields: map[string]any{"l": []any{1, "kok", 3}},
			want:   false,
		},
		{
			name:   "list longer than pattern",
			expr:   `{l: [1, "koko", 3]}`,
			fields: map[string]any{"l": []any{1, "koko", 3, 12}},
			want:   false,
		},
		{
			name:   "list var binding",
			expr:   `{l: [1, =name, 3]}`,
			fields: map[string]any{"l": []any{1, "koko", 3}},
			want:   true,
			binds:  map[string]any{"name": "koko"},
		},
		{
			name:   "list rest binding",
			expr:   `{l: [1, "koko", 3, *r]}`,
			fields: map[string]any{"l": []any{1, "koko", 3, 12}},
			want:   true,
			binds:  map[string]any{"r": []any{12}},
		},
		{
			name:   "list rest binding multiple",
			expr:   `{l: [1, "koko", 3, *r]}`,
			fields: map[string]any{"l": []any{1, "koko", 3, 12, "aa"}},
			want:   true,
			binds:  map[string]any{"r": []any{12, "aa"}},
		},
		{
			name:   "numbers compare across go types",
			expr:   `{age: 30}`,
			fields: map[string]any{"age": float64(30)},
			want:   true,
		},
		{
			name:   "bool and null literals",
			expr:   `{a: true, b: false, c: null}`,
			fields: map[string]any{"a": true, "b": false, "c": nil},
			want:   true,
		},
		{
			name:   "missing required key",
			expr:   `{a: 1, b: 2}`,
			fields: map[string]any{"a": 1},
			want:   false,
		},
		{
			name:   "extra fields are permitted",
			expr:   `{k: "kk"}`,
			fields: map[string]any{"k": "kk", "xx": 77, "text": "..."},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.expr)
			require.NoError(t, err)
			m, ok := p.Match(event("any", tt.fields))
			require.Equal(t, tt.want, ok)
			if tt.want && tt.binds != nil {
				assert.Equal(t, len(tt.binds), len(m.Bindings), "binding count mismatch: %v", m.Bindings)
				for k, v := range tt.binds {
					assert.Equal(t, v, m.Bindings[k], "binding %q", k)
				}
			}
		})
	}
}

func TestPattern_ObjectRestAndVars(t *testing.T) {
	p := MustCompile(`{k: =whichK, "xx": 77, **rest}`)
	m, ok := p.Match(event("any", map[string]any{"k": "kk", "xx": 77, "a": 1, "b": 2}))
	require.True(t, ok)
	assert.Equal(t, "kk", m.Bindings["whichK"])
	assert.Equal(t, map[string]any{"a": 1, "b": 2}, m.Bindings["rest"])
}

func TestPattern_RepeatedVariableMustAgree(t *testing.T) {
	p := MustCompile(`{a: =v, b: =v}`)

	_, ok := p.Match(event("any", map[string]any{"a": "x", "b": "x"}))
	assert.True(t, ok, "equal values must satisfy a repeated variable")

	_, ok = p.Match(event("any", map[string]any{"a": "x", "b": "y"}))
	assert.False(t, ok, "diverging values must fail a repeated variable")
}

func TestPattern_NonJSONFieldValuesCompareByDeepEquality(t *testing.T) {
	// Typed slices are outside the JSON data model but must still evaluate
	// without panicking when a repeated variable forces a comparison.
	p := MustCompile(`{a: =v, b: =v}`)

	_, ok := p.Match(event("any", map[string]any{"a": []int{1, 2}, "b": []int{1, 2}}))
	assert.True(t, ok)

	_, ok = p.Match(event("any", map[string]any{"a": []int{1, 2}, "b": []int{1, 3}}))
	assert.False(t, ok)
}

func TestPattern_NestedStructures(t *testing.T) {
	p := MustCompile(`{user: {name: =who, address: {city: =city}}, grades: [=first, *more]}`)
	fields := map[string]any{
		"user": map[string]any{
			"name":    "ada",
			"address": map[string]any{"city": "london", "street": "x"},
		},
		"grades": []any{91, 84, 78},
	}
	m, ok := p.Match(event("any", fields))
	require.True(t, ok)
	assert.Equal(t, "ada", m.Bindings["who"])
	assert.Equal(t, "london", m.Bindings["city"])
	assert.Equal(t, 91, m.Bindings["first"])
	assert.Equal(t, []any{84, 78}, m.Bindings["more"])
}

func TestPattern_ForKindAndPriority(t *testing.T) {
	p := MustCompile(`{role: "critic"}`).ForKind("review_request").WithPriority(10)

	m, ok := p.Match(event("review_request", map[string]any{"role": "critic"}))
	require.True(t, ok)
	assert.Equal(t, 10, m.Priority)

	_, ok = p.Match(event("other_kind", map[string]any{"role": "critic"}))
	assert.False(t, ok, "kind refinement must filter other kinds")
}

func TestPattern_MatchIsDeterministic(t *testing.T) {
	p := MustCompile(`{task: =t, scores: [*all]}`)
	e := event("any", map[string]any{"task": "review", "scores": []any{1, 2}})
	first, ok := p.Match(e)
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		m, ok := p.Match(e)
		require.True(t, ok)
		assert.Equal(t, first, m)
	}
}

func TestPattern_EmptyPatternMatchesAnyFields(t *testing.T) {
	p := MustCompile(`{}`)
	_, ok := p.Match(event("any", nil))
	assert.True(t, ok)
	_, ok = p.Match(event("any", map[string]any{"a": 1}))
	assert.True(t, ok)
}
