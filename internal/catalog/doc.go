// Package catalog persists listings, jobs, scripts, and videos in SQLite and
// exposes the primitives the coordinator, review gate, and regeneration
// controller build on.
//
// The Store manages the database connection, schema initialization, and
// single-statement queries. Multi-row updates that must land together, such as
// the coordinator's combined asset, status, and job write after a stage
// finishes, run through Store.WithTx against the Tx type.
//
// Two schema-level invariants live here rather than in application code: the
// partial unique index on active jobs guarantees at most one queued or
// processing job per listing even under concurrent dispatch, and the unique
// (script_id, position) pair keeps the script version history append-only.
package catalog
