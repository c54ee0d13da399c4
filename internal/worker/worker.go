// ABOUTME: Command dispatch and the ENABLE/DISABLE/OPEN/CLOSE/REOPEN/PAUSE transitions
// ABOUTME: One command at a time, each handler runs with the mutex held and releases it around blocking calls
package worker

import (
	"fmt"
)

// dispatch processes one posted command and returns the control signal the
// run loop needs: Idle to fall through to the play-step/wait, Continue to
// skip straight back to re-checking the command, Terminated to exit. Caller
// holds w.mu throughout; dispatch releases it internally (via w.unlocked)
// around every backend call.
func (w *Worker) dispatch(cmd Command) dispatchResult {
	switch cmd {
	case CmdNone:
		return resultIdle

	case CmdEnable:
		w.doEnable()
		w.acknowledge()
		return resultIdle

	case CmdDisable:
		w.doDisable()
		w.acknowledge()
		return resultIdle

	case CmdOpen:
		w.doOpen()
		w.acknowledge()
		return resultIdle

	case CmdReopen:
		w.doReopen()
		w.acknowledge()
		return resultIdle

	case CmdClose:
		w.doClose(false)
		w.acknowledge()
		return resultIdle

	case CmdPause:
		// doPause acknowledges internally (either immediately, for the
		// !open no-op, or right after Cancel+pause=true, before looping)
		// so that a command posted during the pause loop is dispatched
		// without an intervening Play attempt.
		w.doPause()
		return resultContinue

	case CmdDrain:
		w.doDrain()
		w.acknowledge()
		return resultContinue

	case CmdCancel:
		w.doCancel()
		w.acknowledge()
		return resultContinue

	case CmdKill:
		w.state.CurrentChunk = nil
		w.state.CurrentChunkFinished = true
		w.acknowledge()
		return resultTerminated

	default:
		w.acknowledge()
		return resultIdle
	}
}

// acknowledge clears the mailbox slot and signals the controller. The
// notify send is released from w.mu first, same as every other signal
// crossing the worker/controller boundary.
func (w *Worker) acknowledge() {
	w.mailbox.acknowledge()
	w.unlocked(func() { w.mailbox.notifyAck() })
}

// Run executes the dispatch loop until a KILL command terminates it. Call
// it on its own goroutine; NewWorker does not start one for you.
func (w *Worker) Run() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for {
		switch w.dispatch(w.mailbox.command) {
		case resultTerminated:
			w.cancel()
			return
		case resultContinue:
			continue
		}

		if w.state.Open && w.state.AllowPlay && w.play() {
			continue
		}

		if w.mailbox.command == CmdNone {
			w.state.WokenForPlay = false
			w.mailbox.cond.Wait()
		}
	}
}

func (w *Worker) doEnable() {
	if w.state.ReallyEnabled {
		return
	}

	var err error
	w.unlocked(func() { err = w.backend.Enable(w.ctx) })
	if err != nil {
		w.logf("enable failed: %v", fmt.Errorf("%w: %w", ErrEnableFailed, err))
		return
	}

	w.state.ReallyEnabled = true
	w.logf("enabled")
}

func (w *Worker) doDisable() {
	if w.state.Open {
		w.doClose(false)
	}
	if !w.state.ReallyEnabled {
		return
	}
	w.unlocked(func() { w.backend.Disable(w.ctx) })
	w.state.ReallyEnabled = false
	w.logf("disabled")
}

// doOpen implements the OPEN transition. Precondition (asserted in strict
// mode, reported as ErrBackendOpenFailed otherwise): !open, pipe != nil,
// in_audio_format.valid.
func (w *Worker) doOpen() {
	if w.state.Open {
		return
	}

	w.assert(w.state.Pipe != nil, "OPEN requires a pipe")
	w.assert(w.state.InAudioFormat.Valid(), "OPEN requires a valid in_audio_format")
	if w.state.Pipe == nil || !w.state.InAudioFormat.Valid() {
		w.state.FailTimer.Update()
		w.logf("open failed: %v", fmt.Errorf("%w: no pipe or invalid input format", ErrBackendOpenFailed))
		return
	}

	w.state.FailTimer.Reset()

	if !w.state.ReallyEnabled {
		w.doEnable()
		if !w.state.ReallyEnabled {
			w.state.FailTimer.Update()
			return
		}
	}

	filterOut, err := w.filterChain.Open(w.state.InAudioFormat)
	if err != nil {
		w.state.FailTimer.Update()
		w.logf("open failed: %v", fmt.Errorf("%w: %w", ErrFilterOpenFailed, err))
		return
	}

	outFormat := filterOut.ApplyMask(w.state.ConfigAudioFormat)

	var openErr error
	w.unlocked(func() { openErr = w.backend.Open(w.ctx, outFormat) })
	if openErr != nil {
		w.filterChain.Close()
		w.state.FailTimer.Update()
		w.logf("open failed: %v", fmt.Errorf("%w: %w", ErrBackendOpenFailed, openErr))
		return
	}

	if w.convertFilter != nil {
		if err := w.convertFilter.SetOutFormat(outFormat); err != nil {
			w.unlocked(func() { w.backend.Close(w.ctx) })
			w.filterChain.Close()
			w.state.FailTimer.Update()
			w.logf("open failed: %v", fmt.Errorf("%w: %w", ErrConvertConfigFailed, err))
			return
		}
	}

	w.state.OutAudioFormat = outFormat
	w.state.Open = true
	w.state.CurrentChunkFinished = true
	w.logf("opened in=%s out=%s", w.state.InAudioFormat, outFormat)
}

// doClose implements CLOSE. drain selects backend.Drain (graceful) over
// backend.Cancel (abrupt).
func (w *Worker) doClose(drain bool) {
	if !w.state.Open {
		return
	}

	w.state.Pipe = nil
	w.state.CurrentChunk = nil
	w.state.CurrentChunkFinished = true
	w.state.Open = false
	w.state.Dither = ditherState{}

	w.unlocked(func() {
		if drain {
			w.backend.Drain(w.ctx)
		} else {
			w.backend.Cancel(w.ctx)
		}
		w.backend.Close(w.ctx)
	})
	w.filterChain.Close()
	w.logf("closed")
}

// doReopen implements REOPEN. When config_audio_format is not fully
// defined, an implicit CLOSE(drain=true) happens first with the pipe
// preserved across it, equivalent to a fresh OPEN. When fully defined and
// already open, only the filter chain is torn down and rebuilt against
// in_audio_format, leaving the backend untouched.
func (w *Worker) doReopen() {
	if !w.state.ConfigAudioFormat.Valid() {
		if w.state.Open {
			pipe := w.state.Pipe
			w.doClose(true)
			w.state.Pipe = pipe
		}
		w.doOpen()
		return
	}

	if !w.state.Open {
		w.doOpen()
		return
	}

	w.filterChain.Close()
	filterOut, err := w.filterChain.Open(w.state.InAudioFormat)
	if err != nil {
		w.state.FailTimer.Update()
		w.logf("reopen failed: %v", fmt.Errorf("%w: %w", ErrFilterOpenFailed, err))
		w.doClose(false)
		return
	}

	outFormat := filterOut.ApplyMask(w.state.ConfigAudioFormat)
	if w.convertFilter != nil {
		if err := w.convertFilter.SetOutFormat(outFormat); err != nil {
			w.state.FailTimer.Update()
			w.logf("reopen failed: %v", fmt.Errorf("%w: %w", ErrConvertConfigFailed, err))
			w.doClose(false)
			return
		}
	}

	w.state.OutAudioFormat = outFormat
	w.logf("reopened filter out=%s", outFormat)
}

// doPause implements PAUSE. A closed output acks immediately with no
// backend calls. An open one cancels in-flight audio, acknowledges, then
// repeatedly waits out the device's delay and calls backend.Pause until a
// new command arrives or the device fails.
func (w *Worker) doPause() {
	if !w.state.Open {
		w.acknowledge()
		return
	}

	w.unlocked(func() { w.backend.Cancel(w.ctx) })
	w.state.Pause = true
	w.acknowledge()

	for {
		if !w.waitForDelay() {
			break
		}

		var err error
		w.unlocked(func() { err = w.backend.Pause(w.ctx) })
		if err != nil {
			w.logf("pause failed: %v", fmt.Errorf("%w: %w", ErrPauseFailed, err))
			w.state.FailTimer.Update()
			w.doClose(false)
			break
		}

		if w.mailbox.command != CmdNone {
			break
		}
	}

	w.state.Pause = false
}

// doDrain implements DRAIN. Precondition: the play loop has already run
// the pipe dry (current_chunk == nil, pipe.Peek() == nil) before a
// controller posts this; it is the controller's job to hold off until
// the worker is otherwise idle.
func (w *Worker) doDrain() {
	if w.state.Open {
		w.assert(w.state.CurrentChunk == nil, "DRAIN requires current_chunk == nil")
		w.assert(w.state.Pipe == nil || w.state.Pipe.Peek() == nil, "DRAIN requires an exhausted pipe")
		w.unlocked(func() { w.backend.Drain(w.ctx) })
	}
}

func (w *Worker) doCancel() {
	w.state.CurrentChunk = nil
	w.state.CurrentChunkFinished = true
	if w.state.Open {
		w.unlocked(func() { w.backend.Cancel(w.ctx) })
	}
}

func (w *Worker) logf(format string, args ...interface{}) {
	w.logger.Printf("worker %s[%s]: "+format, append([]interface{}{w.name, w.id}, args...)...)
}
