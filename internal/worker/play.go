// ABOUTME: The hot path — GetNextChunk/Play/PlayChunk/filterChunk/chunkData/WaitForDelay
// ABOUTME: Pulls a chunk from the pipe, runs it through the filter chain and cross-fade, and pushes it to the backend
package worker

import (
	"fmt"
	"time"

	"github.com/flowcast/audioworker/pkg/audio"
	"github.com/flowcast/audioworker/pkg/filter"
)

// getNextChunk returns current_chunk.Next if a chunk is already in flight,
// otherwise peeks the pipe for the first chunk of a fresh run.
func (w *Worker) getNextChunk() *audio.MusicChunk {
	if w.state.CurrentChunk != nil {
		return w.state.CurrentChunk.Next
	}
	if w.state.Pipe == nil {
		return nil
	}
	return w.state.Pipe.Peek()
}

// play runs the chunk-consuming loop for as long as chunks are available
// and no command interrupts it. It returns false only when there was
// nothing to play at all; any amount of actual playback, including a play
// that fails partway, returns true so the run loop re-dispatches instead
// of idling.
func (w *Worker) play() bool {
	chunk := w.getNextChunk()
	if chunk == nil {
		return false
	}

	w.assert(!w.state.InPlaybackLoop, "nested Play() call")
	w.state.InPlaybackLoop = true

	for chunk != nil && w.mailbox.command == CmdNone {
		w.state.CurrentChunk = chunk
		w.state.CurrentChunkFinished = false

		if !w.playChunk(chunk) {
			break
		}
		chunk = chunk.Next
	}

	w.state.InPlaybackLoop = false
	w.state.CurrentChunkFinished = true
	w.unlocked(func() { w.playerSignal.LockSignal() })
	return true
}

// playChunk sends one chunk's filtered bytes to the backend, looping until
// every byte is accepted, a command interrupts, or the backend fails. Only
// a chunk whose bytes were entirely accepted advances the pipe; one cut
// short by an interrupting command is left at the pipe's head so a later
// CANCEL-then-resume does not skip it.
func (w *Worker) playChunk(chunk *audio.MusicChunk) bool {
	if w.tagsEnabled && chunk.Tag != nil {
		w.unlocked(func() { w.backend.SendTag(w.ctx, chunk.Tag) })
	}

	data, err := w.filterChunk(chunk)
	if err != nil {
		w.logf("play failed: %v", fmt.Errorf("%w: %w", ErrFilterPCMFailed, err))
		w.state.FailTimer.Update()
		w.doClose(false)
		return false
	}
	if len(data) == 0 {
		w.advancePipe()
		return true
	}

	for len(data) > 0 && w.mailbox.command == CmdNone {
		if !w.waitForDelay() {
			break
		}

		var n int
		var playErr error
		w.unlocked(func() { n, playErr = w.backend.Play(w.ctx, data) })

		if playErr != nil || n == 0 {
			w.logf("play failed: %v", fmt.Errorf("%w: %v", ErrPlayFailed, playErr))
			w.state.FailTimer.Update()
			w.doClose(false)
			return false
		}

		frameSize := w.state.OutAudioFormat.FrameSize()
		w.assert(n <= len(data), "backend accepted more bytes than it was given")
		w.assert(frameSize == 0 || n%frameSize == 0, "backend accepted a partial frame")

		data = data[n:]
	}
	if len(data) == 0 {
		w.advancePipe()
	}
	return true
}

// advancePipe marks the chunk currently at the pipe's head consumed. A nil
// Pipe (CLOSE already released it, or no pipe was ever set) is a no-op.
func (w *Worker) advancePipe() {
	if w.state.Pipe != nil {
		w.state.Pipe.Advance()
	}
}

// filterChunk computes the bytes to hand the backend for one chunk: the
// primary branch's replay-gain-filtered data, cross-faded against the
// Other chunk's own replay-gain-filtered data when present, then pushed
// through the main filter chain.
func (w *Worker) filterChunk(chunk *audio.MusicChunk) ([]byte, error) {
	data, err := w.chunkData(chunk, w.replayGainFilter, &w.state.ReplayGainSerial)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return data, nil
	}

	if chunk.Other != nil {
		otherData, err := w.chunkData(chunk.Other, w.otherReplayGainFilter, &w.state.OtherReplayGainSerial)
		if err != nil {
			return nil, err
		}
		if len(otherData) == 0 {
			return nil, nil
		}

		// The longer of the two is the trailer of the incoming song and
		// passes through unmixed; clamp the primary to the shorter length.
		length := len(data)
		if length > len(otherData) {
			length = len(otherData)
		}

		mixed := w.state.CrossFade.get(len(otherData))
		copy(mixed, otherData)

		if err := mixCrossFade(&w.state.Dither, w.state.InAudioFormat, mixed, data[:length], chunk.MixRatio); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCrossFadeFormatUnsupported, err)
		}

		data = mixed
	}

	return w.filterChain.FilterPCM(data)
}

// chunkData runs chunk.Data through rgFilter, reconfiguring it first if
// the chunk's ReplayGainSerial differs from *serialCell. A nil rgFilter
// (no replay-gain stage wired for this branch) is a pass-through.
func (w *Worker) chunkData(chunk *audio.MusicChunk, rgFilter filter.ReplayGain, serialCell *uint32) ([]byte, error) {
	w.assert(chunk.CheckFormat(w.state.InAudioFormat), "chunk not frame-aligned to in_audio_format")

	if rgFilter == nil {
		return chunk.Data, nil
	}

	if chunk.ReplayGainSerial != *serialCell {
		if chunk.ReplayGainSerial == 0 {
			rgFilter.SetInfo(nil)
		} else {
			info := chunk.ReplayGainInfo
			rgFilter.SetInfo(&info)
		}
		*serialCell = chunk.ReplayGainSerial
	}

	return rgFilter.FilterPCM(chunk.Data)
}

// waitForDelay polls the backend's non-blocking delay query, sleeping on
// the mailbox's condvar for at most that long, until the device is ready
// or a command interrupts. It returns false on interruption.
func (w *Worker) waitForDelay() bool {
	for {
		if w.mailbox.command != CmdNone {
			return false
		}

		delay := w.backend.Delay()
		if delay <= 0 {
			return true
		}

		w.condWaitTimeout(delay)

		if w.mailbox.command != CmdNone {
			return false
		}
	}
}

// condWaitTimeout waits on the mailbox's condvar for at most d, waking
// early if the controller signals it (a command was posted). Caller holds
// w.mu; Wait releases and reacquires it as usual.
func (w *Worker) condWaitTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		w.mu.Lock()
		w.mailbox.cond.Broadcast()
		w.mu.Unlock()
	})
	defer timer.Stop()
	w.mailbox.cond.Wait()
}
