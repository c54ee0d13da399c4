// ABOUTME: ChunkPipe is the non-destructive producer interface; MemPipe is the in-memory ring it exposes
// ABOUTME: chunksource/{mp3,opus}.go build MemPipes from decoded files; tests build them by hand
package worker

import "github.com/flowcast/audioworker/pkg/audio"

// ChunkPipe is the upstream pipe of PCM chunks, treated by the worker as a
// lazy, non-destructive producer of immutable chunks in play order.
type ChunkPipe interface {
	// Peek returns the next chunk without consuming it, or nil if none is
	// available yet.
	Peek() *audio.MusicChunk

	// Advance marks the chunk currently at the head of the pipe consumed,
	// so a later Peek (after CurrentChunk has been dropped, e.g. by
	// CANCEL) returns the chunk that follows it rather than replaying
	// the same head again.
	Advance()
}

// MemPipe is a fixed slice of chunks linked via chunk.Next, consumed one at
// a time as the worker advances past them via Advance. It never frees a
// chunk while any Next/Other link still references it within one open
// session — the chunks are owned by the caller, not by MemPipe.
type MemPipe struct {
	chunks []*audio.MusicChunk
	pos    int
}

// NewMemPipe links chunks in order (setting Next on all but the last) and
// returns a pipe that yields them one at a time.
func NewMemPipe(chunks []*audio.MusicChunk) *MemPipe {
	for i := 0; i < len(chunks)-1; i++ {
		chunks[i].Next = chunks[i+1]
	}
	return &MemPipe{chunks: chunks}
}

// Peek returns the next unconsumed chunk, or nil if the pipe is exhausted.
func (p *MemPipe) Peek() *audio.MusicChunk {
	if p.pos >= len(p.chunks) {
		return nil
	}
	return p.chunks[p.pos]
}

// Advance marks the current head consumed, moving pos to the next
// chunk. The worker calls this once per chunk it finishes playing so
// Peek stays correct even after CurrentChunk is dropped mid-pipe (a
// CANCEL, or a REOPEN that preserves the pipe across a CLOSE).
func (p *MemPipe) Advance() {
	if p.pos < len(p.chunks) {
		p.pos++
	}
}

// Remaining reports how many chunks have not yet been advanced past, for
// diagnostics and tests.
func (p *MemPipe) Remaining() int {
	return len(p.chunks) - p.pos
}
