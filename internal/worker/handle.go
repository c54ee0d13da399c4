// ABOUTME: Handle — the controller-facing produced surface: post commands, set pre-OPEN fields, observe state
package worker

import (
	"github.com/google/uuid"

	"github.com/flowcast/audioworker/pkg/audio"
)

// Handle is what a controller holds: it never touches OutputState
// directly, only through these methods, all of which take the worker's
// mutex for the duration of the read or write.
type Handle struct {
	w *Worker
}

// Handle returns the controller-facing surface for w. The worker must not
// be started (Run called) before SetPipe/SetInAudioFormat have been set
// at least once if the first command is going to be OPEN.
func (w *Worker) Handle() *Handle {
	return &Handle{w: w}
}

// Post writes cmd into the mailbox and blocks until the worker
// acknowledges it. It must not be called concurrently by two goroutines;
// a single controller owns a Handle.
func (h *Handle) Post(cmd Command) {
	w := h.w
	w.mu.Lock()
	for w.mailbox.command != CmdNone {
		w.mailbox.cond.Wait()
	}
	w.mailbox.post(cmd)
	w.mu.Unlock()

	w.mailbox.waitAck()
	w.clientNotify.Signal()
}

// TryPost writes cmd only if the slot is currently NONE, returning false
// without blocking otherwise. Useful for a controller that wants to issue
// PAUSE opportunistically without risking a long wait.
func (h *Handle) TryPost(cmd Command) bool {
	w := h.w
	w.mu.Lock()
	if w.mailbox.command != CmdNone {
		w.mu.Unlock()
		return false
	}
	w.mailbox.post(cmd)
	w.mu.Unlock()

	w.mailbox.waitAck()
	w.clientNotify.Signal()
	return true
}

// SetAllowPlay sets whether the idle step may attempt Play(). Setting it
// true also wakes the worker. Distinct from Post, this does not go through
// the mailbox rendezvous since it isn't a command.
func (h *Handle) SetAllowPlay(allow bool) {
	w := h.w
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.AllowPlay = allow
	if allow {
		w.state.WokenForPlay = true
		w.mailbox.cond.Signal()
	}
}

// SetPipe sets the upstream pipe. Call before posting OPEN.
func (h *Handle) SetPipe(p ChunkPipe) {
	w := h.w
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.Pipe = p
}

// SetInAudioFormat sets the format the upstream pipe's chunks are encoded
// in. Call before posting OPEN or REOPEN.
func (h *Handle) SetInAudioFormat(f audio.Format) {
	w := h.w
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.InAudioFormat = f
}

// SetConfigAudioFormat sets the configured output format mask applied
// over whatever the filter chain emits when OPEN/REOPEN derives
// OutAudioFormat.
func (h *Handle) SetConfigAudioFormat(f audio.Format) {
	w := h.w
	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.ConfigAudioFormat = f
}

// FailTimer returns a snapshot of the fail timer for an external retry
// scheduler to evaluate Ready against.
func (h *Handle) FailTimer() FailTimer {
	w := h.w
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.FailTimer
}

// Snapshot is a point-in-time, mutex-guarded read of OutputState for
// monitoring — controlsrv and cmd/outputmonitor poll this, never the
// worker's internal fields directly.
type Snapshot struct {
	Name             string
	ID               uuid.UUID
	ReallyEnabled    bool
	Open             bool
	Pause            bool
	AllowPlay        bool
	InAudioFormat    audio.Format
	OutAudioFormat   audio.Format
	FailTimerDefined bool
	PendingCommand   Command
}

func (h *Handle) Snapshot() Snapshot {
	w := h.w
	w.mu.Lock()
	defer w.mu.Unlock()
	return Snapshot{
		Name:             w.name,
		ID:               w.id,
		ReallyEnabled:    w.state.ReallyEnabled,
		Open:             w.state.Open,
		Pause:            w.state.Pause,
		AllowPlay:        w.state.AllowPlay,
		InAudioFormat:    w.state.InAudioFormat,
		OutAudioFormat:   w.state.OutAudioFormat,
		FailTimerDefined: w.state.FailTimer.IsDefined(),
		PendingCommand:   w.mailbox.command,
	}
}
