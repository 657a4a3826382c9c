// Package selector implements the declarative pattern language used to decide
// whether an agent activates for an event, plus the recursive structural
// matcher behind it.
//
// A pattern describes the required shape of an event's field mapping:
//
//	{role: "critic", task: "pedantic_review"}
//	{user: {name: =who}, scores: [=first, *rest]}
//
// Grammar summary:
//
//   - Object patterns use identifier or double-quoted string keys. Required
//     keys must be present and match; extra event fields are permitted.
//     A trailing **name binds the unmatched remainder to name.
//   - List patterns match element-wise and exactly in length, unless a
//     trailing *name binds the remaining tail to name.
//   - Literals: double-quoted strings (with \" \\ \n \t \r escapes), signed
//     numbers, true, false, null.
//   - =name binds the value at that position to a variable. A variable bound
//     more than once must match equal values everywhere it appears.
//
// The top-level pattern must be an object: it is matched against the event's
// Fields. Compile once and reuse; a Pattern is immutable and safe for
// concurrent use.
package selector
