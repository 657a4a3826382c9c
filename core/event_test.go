package core

import (
	"errors"
	"testing"
)

// Event constructor & helper method tests
func TestEvent_ConstructorsAndMethods(t *testing.T) {
	e := NewEvent("agentA", "greeting", map[string]any{"text": "hello"})
	if e.Author != "agentA" || e.Kind != "greeting" || e.ID == "" || e.Timestamp.IsZero() {
		t.Fatalf("NewEvent did not initialize fields correctly: %+v", e)
	}
	if e.Seq != 0 {
		t.Fatalf("Seq must stay zero until the bus admits the event, got %d", e.Seq)
	}

	if v, ok := e.Field("text"); !ok || v.(string) != "hello" {
		t.Fatalf("Field extraction failed: %v %v", v, ok)
	}
	if e.StringField("text") != "hello" {
		t.Fatalf("StringField extraction failed")
	}
	if e.StringField("missing") != "" {
		t.Fatalf("StringField should be empty for missing keys")
	}
}

func TestEvent_FieldsAreCopiedFromCreator(t *testing.T) {
	fields := map[string]any{"k": "v"}
	e := NewEvent("a", "kind", fields)

	fields["k"] = "mutated"
	if e.StringField("k") != "v" {
		t.Error("published event observed creator-side mutation")
	}
}

func TestEvent_ErrorEvent(t *testing.T) {
	trigger := NewEvent("worker", "task", nil)
	e := NewErrorEvent("worker", trigger.ID, errors.New("boom"))

	if !e.IsError() || e.Kind != KindError || e.Author != BusAuthor {
		t.Fatalf("error event malformed: %+v", e)
	}
	if e.StringField(FieldOrigin) != "worker" {
		t.Errorf("expected origin worker, got %q", e.StringField(FieldOrigin))
	}
	if e.StringField(FieldTriggerID) != trigger.ID {
		t.Errorf("expected trigger id %s", trigger.ID)
	}
	if e.StringField(FieldDetail) != "boom" {
		t.Errorf("expected detail boom, got %q", e.StringField(FieldDetail))
	}
}

func TestEvent_IDUniqueness(t *testing.T) {
	a := NewID()
	b := NewID()
	if a == b {
		t.Error("Expected unique IDs")
	}
}

func TestEvent_EqualityIsByID(t *testing.T) {
	a := NewEvent("x", "same", map[string]any{"k": 1})
	b := NewEvent("x", "same", map[string]any{"k": 1})
	if a.ID == b.ID {
		t.Error("two emissions with identical fields must be distinct occurrences")
	}
}
