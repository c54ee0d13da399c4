// ABOUTME: OutputState — every field the worker's mutex guards, plus Worker construction
package worker

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/flowcast/audioworker/pkg/audio"
	"github.com/flowcast/audioworker/pkg/backend"
	"github.com/flowcast/audioworker/pkg/filter"
)

// OutputState holds every field the worker's state machine tracks. The
// mutex that guards it lives on Worker, not here, since the mailbox's
// condvar must be bound to that same mutex.
type OutputState struct {
	InAudioFormat     audio.Format
	OutAudioFormat    audio.Format
	ConfigAudioFormat audio.Format

	ReallyEnabled bool
	Open          bool
	Pause         bool
	AllowPlay     bool
	WokenForPlay  bool

	CurrentChunk         *audio.MusicChunk
	CurrentChunkFinished bool
	InPlaybackLoop       bool

	Pipe ChunkPipe

	ReplayGainSerial      uint32
	OtherReplayGainSerial uint32

	CrossFade crossFadeBuffer
	Dither    ditherState

	FailTimer FailTimer
}

// Worker is the per-output state machine: one goroutine running Run, one
// backend.Port, one filter chain, one mutex-guarded OutputState. The
// mutex is held whenever any OutputState field is read or written, by
// either the worker's own goroutine or a Handle method called from a
// controller goroutine.
type Worker struct {
	name string
	id   uuid.UUID

	mu      sync.Mutex
	mailbox *mailbox

	backend               backend.Port
	filterChain           *filter.Chain
	convertFilter         filter.Convert
	replayGainFilter      filter.ReplayGain
	otherReplayGainFilter filter.ReplayGain

	playerSignal PlayerSignal
	clientNotify ClientNotify
	logger       Logger

	tagsEnabled bool
	strict      bool

	ctx    context.Context
	cancel context.CancelFunc

	state OutputState
}

// Option configures optional Worker fields at construction.
type Option func(*Worker)

// WithLogger overrides the default StdLogger sink.
func WithLogger(l Logger) Option {
	return func(w *Worker) { w.logger = l }
}

// WithPlayerSignal registers a controller to notify once per completed
// Play() call.
func WithPlayerSignal(s PlayerSignal) Option {
	return func(w *Worker) { w.playerSignal = s }
}

// WithClientNotify registers an additional observer of command
// acknowledgements, beyond the mailbox's own rendezvous.
func WithClientNotify(n ClientNotify) Option {
	return func(w *Worker) { w.clientNotify = n }
}

// WithTags enables SendTag delivery in PlayChunk.
func WithTags(enabled bool) Option {
	return func(w *Worker) { w.tagsEnabled = enabled }
}

// WithStrict turns invariant assertions into panics instead of silent
// no-ops. Production wiring never sets this; the test suite does.
func WithStrict() Option {
	return func(w *Worker) { w.strict = true }
}

// WithConfigAudioFormat sets the configured output format mask applied
// over whatever the filter chain emits when deriving OutAudioFormat.
func WithConfigAudioFormat(f audio.Format) Option {
	return func(w *Worker) { w.state.ConfigAudioFormat = f }
}

// NewWorker builds a Worker around a backend and a filter chain. rg and
// otherRG may be nil if the chain has no replay-gain stage to drive (a nil
// ReplayGain means "this filterChunk parallel branch doesn't apply gain",
// distinct from a nil *ReplayGainInfo meaning "no gain info for this
// chunk").
func NewWorker(name string, be backend.Port, chain *filter.Chain, convertFilter filter.Convert, rg, otherRG filter.ReplayGain, opts ...Option) *Worker {
	ctx, cancel := context.WithCancel(context.Background())

	w := &Worker{
		name:                  name,
		id:                    uuid.New(),
		backend:               be,
		filterChain:           chain,
		convertFilter:         convertFilter,
		replayGainFilter:      rg,
		otherReplayGainFilter: otherRG,
		playerSignal:          noopSignal{},
		clientNotify:          noopSignal{},
		logger:                NewStdLogger(nil),
		ctx:                   ctx,
		cancel:                cancel,
	}
	w.mailbox = newMailbox(&w.mu)
	w.state.CurrentChunkFinished = true

	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID returns the worker's identity, included in every log line.
func (w *Worker) ID() uuid.UUID { return w.id }

// unlocked runs fn with mu released, then reacquires it even if fn panics.
// This scopes the "unlock → blocking call → lock" pattern so an early
// return or panic inside the blocking region cannot leak the lock.
func (w *Worker) unlocked(fn func()) {
	w.mu.Unlock()
	defer w.mu.Lock()
	fn()
}

// assert panics with msg when strict mode is enabled and cond is false.
// Strict mode is what the test suite turns on; production wiring leaves
// it off, so a violated invariant degrades rather than crashing the
// process.
func (w *Worker) assert(cond bool, msg string) {
	if w.strict && !cond {
		panic("worker " + w.name + ": invariant violated: " + msg)
	}
}
