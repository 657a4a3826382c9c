// Package checkpoint defines the serializable snapshot of in-flight bus state
// and the Store abstraction for persisting it.
//
// A Checkpoint captures everything needed to resume a cascade after
// interruption: the completed event log, the pending queue, outstanding
// input requests, the sequence cursor and each agent's private state
// snapshot. The document's sufficiency property is defined here; byte layout
// and placement (file, Redis, Postgres, object store) belong to the Store
// implementation chosen by the caller.
package checkpoint
