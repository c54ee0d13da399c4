// ABOUTME: Audio fundamentals package providing core types for the output worker
// ABOUTME: Defines Format, MusicChunk, Tag and sample conversion helpers
// Package audio provides the PCM data model consumed by the output worker:
// audio formats, chunks, tags and replay-gain info. It mirrors the shape
// the upstream pipe and the player controller hand to a per-output worker,
// without owning either of those components.
package audio
