// Package executors implements the pipeline stages: photo download, image
// processing, script generation, voiceover synthesis, QR code rendering, and
// video composition. Each executor satisfies the stage.Executor contract and
// writes its artifacts under the listing's assets directory.
//
// Stages that shell out to external tools (rembg, qrencode, ffmpeg, the TTS
// wrapper) run them through a shared command runner so failures carry the
// tool's output and timeouts classify consistently. The script generator is
// the only network-bound stage; it talks to the configured chat completion
// endpoint through internal/llm.
package executors
