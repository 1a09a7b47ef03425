// Package coordinator drives the listing pipeline. Dispatch validates that a
// stage may run against the listing's current status, commits the queued job
// row (the partial unique index on active jobs makes concurrent dispatches
// race-safe), and hands the job to a bounded worker pool.
//
// When a stage finishes, the coordinator persists the asset reference, the
// listing status transition, any document rows (script or video), and the
// terminal job state in a single transaction, so observers never see a
// half-applied outcome. Failures park the listing in the error state
// annotated with the failing stage; redispatching that stage is the retry
// path.
package coordinator
