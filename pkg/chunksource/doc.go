// ABOUTME: Concrete ChunkPipe producers for demos and integration tests
// ABOUTME: Decode a whole file up front into a worker.MemPipe, standing in for "the upstream pipe"
// Package chunksource builds worker.ChunkPipe implementations from encoded
// audio files. The worker only ever sees the resulting MemPipe through the
// ChunkPipe interface; nothing here is part of the core state machine.
package chunksource
