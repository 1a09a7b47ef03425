// Package regen re-runs pipeline stages on operator request, invalidating
// the regenerated artifact and everything downstream of it before
// dispatching a replacement job through the coordinator.
package regen
