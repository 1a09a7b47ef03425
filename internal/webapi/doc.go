// Package webapi exposes the orchestration core over HTTP using gin:
// listing ingest, stage dispatch and regeneration, the script and video
// review gate, job polling, executor health, and byte-range video serving.
package webapi
