// Package services defines shared utilities consumed by the job coordinator,
// review gate, and external stage integrations.
//
// Key responsibilities:
//   - Structured error markers plus the Wrap helper that classify failures
//     for the API layer and the job ledger (conflict vs validation vs
//     external-tool timeout, and so on).
//   - Context helpers that stamp listing IDs, job IDs, and stage names for
//     logging.
//
// Use these helpers when wiring new stage logic so operational behaviour
// stays uniform across the pipeline.
package services
