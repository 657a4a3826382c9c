package core

import "testing"

func TestFuncSelector(t *testing.T) {
	sel := FuncSelector(func(e Event) (bool, int) {
		return e.Kind == "wanted", 7
	})

	m, ok := sel.Match(NewEvent("a", "wanted", nil))
	if !ok || m.Priority != 7 {
		t.Fatalf("expected match at priority 7, got %+v %v", m, ok)
	}
	if _, ok := sel.Match(NewEvent("a", "other", nil)); ok {
		t.Error("unexpected match")
	}
}

func TestFuncSelector_Deterministic(t *testing.T) {
	sel := FuncSelector(func(e Event) (bool, int) {
		_, has := e.Field("score")
		return has, 3
	})
	e := NewEvent("a", "k", map[string]any{"score": 12})
	for i := 0; i < 5; i++ {
		m, ok := sel.Match(e)
		if !ok || m.Priority != 3 {
			t.Fatalf("evaluation %d diverged: %+v %v", i, m, ok)
		}
	}
}

func TestKindSelector(t *testing.T) {
	sel := KindSelector{Kind: KindError, Priority: 100}

	if _, ok := sel.Match(NewEvent("a", "task", nil)); ok {
		t.Error("kind selector matched the wrong kind")
	}
	m, ok := sel.Match(NewErrorEvent("a", "t1", nil))
	if !ok || m.Priority != 100 {
		t.Fatalf("expected error-kind match at priority 100, got %+v %v", m, ok)
	}
}

func TestAnySelector(t *testing.T) {
	sel := AnySelector{Priority: -1}
	if m, ok := sel.Match(NewEvent("a", "anything", nil)); !ok || m.Priority != -1 {
		t.Fatalf("any selector must match everything, got %+v %v", m, ok)
	}
}
