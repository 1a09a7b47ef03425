// Package pipeline defines the listing lifecycle state machine: the status
// enum, the stage table mapping each stage to its required predecessor and
// success status, and the static downstream-invalidation table walked during
// regeneration.
//
// The package is pure logic with no dependencies; persistence and dispatch
// live in catalog and coordinator respectively.
package pipeline
