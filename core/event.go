package core

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Well-known event kinds emitted by the bus itself. User-defined kinds should
// avoid the "bus." prefix to keep the control namespace unambiguous.
const (
	// KindError carries a handler failure back into the dispatch pipeline.
	// Fields: FieldOrigin, FieldTriggerID, FieldDetail.
	KindError = "bus.error"

	// KindInputRequest marks a point where a handler is waiting for input
	// from outside the bus (e.g. a human response). Fields: FieldPrompt plus
	// any handler supplied payload.
	KindInputRequest = "bus.input_request"

	// KindInputResponse is emitted when an external driver satisfies a prior
	// input request. Fields: FieldRequestID plus the supplied payload.
	KindInputResponse = "bus.input_response"
)

// Field names used by bus-emitted control events.
const (
	// FieldOrigin names the agent whose handler produced a failure.
	FieldOrigin = "origin"
	// FieldTriggerID holds the ID of the event whose dispatch failed.
	FieldTriggerID = "trigger_id"
	// FieldDetail holds a human readable failure description.
	FieldDetail = "detail"
	// FieldRequestID correlates an input response (or cancellation) with the
	// input request event it answers.
	FieldRequestID = "request_id"
	// FieldPrompt holds the prompt text of an input request.
	FieldPrompt = "prompt"
)

// ExternalAuthor is the author recorded on events injected from outside the
// bus (the workflow initiator or a transport adapter).
const ExternalAuthor = "external"

// BusAuthor is the author recorded on control events emitted by the bus
// itself (error events, input cancellations).
const BusAuthor = "bus"

// Event is the unit of communication between agents. Events are immutable
// after emission: identity (ID) and global ordering (Seq) are assigned by the
// bus, never by the creator, and new information requires emitting a new
// event. Equality is by ID; two events with identical fields are distinct
// occurrences.
//
// Fields is an open mapping of named values. Values should be limited to the
// JSON data model (strings, numbers, booleans, nil, []any, map[string]any) so
// that events survive checkpoint round-trips unchanged.
type Event struct {
	ID        string         `json:"id"`
	Seq       int64          `json:"seq"`
	Kind      string         `json:"kind"`
	Author    string         `json:"author,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewEvent constructs an event with a fresh ID and UTC timestamp. Seq remains
// zero until the bus admits the event into its queue; user code normally goes
// through the bus emission API instead of calling this directly.
func NewEvent(author, kind string, fields map[string]any) Event {
	return Event{
		ID:        NewID(),
		Kind:      kind,
		Author:    author,
		Fields:    cloneFields(fields),
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorEvent builds the distinguished error event for a failed handler
// activation: origin identifies the failing agent, triggerID the event whose
// dispatch failed.
func NewErrorEvent(origin, triggerID string, cause error) Event {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return NewEvent(BusAuthor, KindError, map[string]any{
		FieldOrigin:    origin,
		FieldTriggerID: triggerID,
		FieldDetail:    detail,
	})
}

// NewID generates a new unique identifier for events, checkpoints and runs.
func NewID() string { return uuid.NewString() }

// Field returns the named field value and whether it is present.
func (e Event) Field(key string) (any, bool) {
	v, ok := e.Fields[key]
	return v, ok
}

// StringField returns the named field as a string. Missing or non-string
// values yield the empty string.
func (e Event) StringField(key string) string {
	if v, ok := e.Fields[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// IsError reports whether this is a bus-emitted error event.
func (e Event) IsError() bool { return e.Kind == KindError }

// String renders a compact one-line description for logs and test failures.
func (e Event) String() string {
	return fmt.Sprintf("Event(seq=%d kind=%s author=%s id=%s)", e.Seq, e.Kind, e.Author, e.ID)
}

// cloneFields shallow-copies the top level of a field mapping so the emitter
// cannot mutate a published event through its own reference. Nested values are
// shared; treat them as read-only.
func cloneFields(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	c := make(map[string]any, len(fields))
	for k, v := range fields {
		c[k] = v
	}
	return c
}
