// Package main hosts the lotreel CLI entrypoint and command graph.
//
// The Cobra-based command tree translates terminal invocations into HTTP
// calls against the lotreeld daemon: listing ingest, stage dispatch and
// regeneration, script and video review, job inspection, and configuration
// scaffolding. Keep this package lean; new behavior belongs in the internal
// packages first and is surfaced here through dedicated commands or flags.
package main
