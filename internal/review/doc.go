// Package review implements the human approval gates between automated
// pipeline stages: script approval before voiceover, video approval before
// publication, script editing with append-only version history, and the
// final publish step that uploads the approved video to object storage.
package review
