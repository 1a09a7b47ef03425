// Package main hosts the lotreeld daemon entrypoint: it loads configuration,
// acquires the single-instance lock, opens the catalog, assembles the stage
// executors and coordinator, and serves the HTTP API until interrupted.
package main
