// Package stage defines the contract between the job coordinator and the
// pipeline step implementations in internal/executors. Executors are pure
// artifact producers: they read listing data, write files under the listing's
// assets directory, and report what they produced. All persistence and status
// transitions stay with the coordinator.
package stage
