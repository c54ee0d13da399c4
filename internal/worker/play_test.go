// ABOUTME: Exercises getNextChunk/play/filterChunk/chunkData against a mock backend and spy replay-gain filter
package worker

import (
	"testing"
	"time"

	"github.com/flowcast/audioworker/pkg/audio"
	"github.com/flowcast/audioworker/pkg/filter"
)

func openedTestFormat() audio.Format {
	return audio.Format{SampleRate: 44100, Format: audio.SampleFormatS16, Channels: 2}
}

func TestPlayPushesEveryChunkToBackend(t *testing.T) {
	be := newMockBackend()
	chain := filter.NewChain()
	w := NewWorker("play-test", be, chain, nil, nil, nil)
	go w.Run()
	h := w.Handle()
	t.Cleanup(func() { h.Post(CmdKill) })

	chunks := []*audio.MusicChunk{makeChunk(8), makeChunk(8), makeChunk(8)}
	h.SetPipe(NewMemPipe(chunks))
	h.SetInAudioFormat(openedTestFormat())
	h.Post(CmdOpen)
	h.SetAllowPlay(true)

	waitForCondition(t, func() bool { return be.totalPlayed() == 24 })
}

func TestPlaySkipsEmptyFilteredChunk(t *testing.T) {
	be := newMockBackend()
	chain := filter.NewChain()
	rg := &zeroingReplayGain{}
	w := NewWorker("play-test", be, chain, nil, rg, nil)
	go w.Run()
	h := w.Handle()
	t.Cleanup(func() { h.Post(CmdKill) })

	h.SetPipe(NewMemPipe([]*audio.MusicChunk{makeChunk(8)}))
	h.SetInAudioFormat(openedTestFormat())
	h.Post(CmdOpen)
	h.SetAllowPlay(true)

	// A replay-gain filter that zeroes everything out makes filterChunk
	// return no bytes; play() must treat that as success, not a backend
	// failure, and keep running instead of tearing the worker down.
	waitForCondition(t, func() bool { return h.Snapshot().Open })
	if be.totalPlayed() != 0 {
		t.Fatalf("expected no bytes reaching the backend, got %d", be.totalPlayed())
	}
}

func TestPlayFailureClosesTheWorker(t *testing.T) {
	be := newMockBackend()
	be.playFunc = func(data []byte) (int, error) { return 0, nil }
	chain := filter.NewChain()
	w := NewWorker("play-test", be, chain, nil, nil, nil)
	go w.Run()
	h := w.Handle()
	t.Cleanup(func() { h.Post(CmdKill) })

	h.SetPipe(NewMemPipe([]*audio.MusicChunk{makeChunk(8)}))
	h.SetInAudioFormat(openedTestFormat())
	h.Post(CmdOpen)
	h.SetAllowPlay(true)

	waitForCondition(t, func() bool { return !h.Snapshot().Open })
	if !h.FailTimer().IsDefined() {
		t.Fatal("expected a Play(0, nil) failure to arm the fail timer")
	}
}

func TestCancelDoesNotReplayAlreadyPlayedChunks(t *testing.T) {
	be := newMockBackend()
	// Once chunk one's bytes are accepted, a nonzero Delay() keeps
	// waitForDelay parked on the mailbox's condvar (releasing w.mu) until
	// a command arrives, giving this test a reliable window to land CANCEL
	// right after chunk one finishes but before chunk two's bytes are sent.
	var delayed bool
	be.playFunc = func(data []byte) (int, error) {
		be.mu.Lock()
		defer be.mu.Unlock()
		be.played = append(be.played, data...)
		if !delayed {
			delayed = true
			be.delay = 20 * time.Millisecond
		}
		return len(data), nil
	}
	chain := filter.NewChain()
	w := NewWorker("play-test", be, chain, nil, nil, nil)
	go w.Run()
	h := w.Handle()
	t.Cleanup(func() { h.Post(CmdKill) })

	pipe := NewMemPipe([]*audio.MusicChunk{makeChunk(8), makeChunk(8), makeChunk(8)})
	h.SetPipe(pipe)
	h.SetInAudioFormat(openedTestFormat())
	h.Post(CmdOpen)
	h.SetAllowPlay(true)

	// Let exactly the first chunk play, then cancel before the pipe is
	// exhausted: CurrentChunk is dropped, but the pipe must remember it
	// already gave out chunk one so Peek resumes at chunk two instead of
	// replaying from the head.
	waitForCondition(t, func() bool { return be.totalPlayed() >= 8 })
	h.Post(CmdCancel)

	be.setDelay(0)
	h.SetAllowPlay(true)
	waitForCondition(t, func() bool { return be.totalPlayed() == 24 })
	if be.totalPlayed() != 24 {
		t.Fatalf("expected exactly 24 bytes total (no replay of the already-played chunk), got %d", be.totalPlayed())
	}
}

func TestChunkDataReconfiguresReplayGainOnSerialChange(t *testing.T) {
	be := newMockBackend()
	chain := filter.NewChain()
	rg := &spyReplayGain{}
	w := NewWorker("play-test", be, chain, nil, rg, nil)
	w.state.InAudioFormat = openedTestFormat()

	c1 := &audio.MusicChunk{Data: make([]byte, 8), ReplayGainSerial: 1, ReplayGainInfo: audio.ReplayGainInfo{Gain: 0.5}}
	c2 := &audio.MusicChunk{Data: make([]byte, 8), ReplayGainSerial: 1, ReplayGainInfo: audio.ReplayGainInfo{Gain: 0.5}}
	c3 := &audio.MusicChunk{Data: make([]byte, 8), ReplayGainSerial: 2, ReplayGainInfo: audio.ReplayGainInfo{Gain: 0.9}}

	var serial uint32
	if _, err := w.chunkData(c1, rg, &serial); err != nil {
		t.Fatalf("chunkData: %v", err)
	}
	if _, err := w.chunkData(c2, rg, &serial); err != nil {
		t.Fatalf("chunkData: %v", err)
	}
	if rg.infoCalls != 1 {
		t.Fatalf("expected 1 SetInfo call across two chunks sharing a serial, got %d", rg.infoCalls)
	}

	if _, err := w.chunkData(c3, rg, &serial); err != nil {
		t.Fatalf("chunkData: %v", err)
	}
	if rg.infoCalls != 2 {
		t.Fatalf("expected a second SetInfo call once the serial changed, got %d", rg.infoCalls)
	}
}

func TestFilterChunkMixesOtherBranchAndClampsToShorterLength(t *testing.T) {
	be := newMockBackend()
	chain := filter.NewChain()
	w := NewWorker("play-test", be, chain, nil, nil, nil)
	w.state.InAudioFormat = openedTestFormat()

	primary := &audio.MusicChunk{Data: makeChunk(16).Data, MixRatio: 0.5}
	other := &audio.MusicChunk{Data: makeChunk(8).Data}
	primary.Other = other

	data, err := w.filterChunk(primary)
	if err != nil {
		t.Fatalf("filterChunk: %v", err)
	}
	// The primary branch is clamped to the shorter (other) branch's
	// length before mixing, so the mixed result carries other's length.
	if len(data) != len(other.Data) {
		t.Fatalf("expected mixed output clamped to other's length %d, got %d", len(other.Data), len(data))
	}
	if string(data) == string(primary.Data[:len(other.Data)]) {
		t.Fatal("expected mixCrossFade to actually alter the primary bytes, not pass them through untouched")
	}
}

func TestFilterChunkSkipsMixWhenOtherBranchFiltersToNothing(t *testing.T) {
	be := newMockBackend()
	chain := filter.NewChain()
	otherRG := &zeroingReplayGain{}
	w := NewWorker("play-test", be, chain, nil, nil, otherRG)
	w.state.InAudioFormat = openedTestFormat()

	primary := &audio.MusicChunk{Data: makeChunk(8).Data, MixRatio: 0.5}
	other := &audio.MusicChunk{Data: makeChunk(8).Data}
	primary.Other = other

	data, err := w.filterChunk(primary)
	if err != nil {
		t.Fatalf("filterChunk: %v", err)
	}
	if data != nil {
		t.Fatalf("expected a zeroed-out other branch to short-circuit to nil output, got %d bytes", len(data))
	}
}

func TestChunkDataPassesThroughWithoutReplayGainFilter(t *testing.T) {
	be := newMockBackend()
	chain := filter.NewChain()
	w := NewWorker("play-test", be, chain, nil, nil, nil)
	w.state.InAudioFormat = openedTestFormat()

	c := &audio.MusicChunk{Data: []byte{1, 2, 3, 4, 5, 6, 7, 8}}
	var serial uint32
	data, err := w.chunkData(c, nil, &serial)
	if err != nil {
		t.Fatalf("chunkData: %v", err)
	}
	if string(data) != string(c.Data) {
		t.Fatal("expected a nil replay-gain filter to pass data through unchanged")
	}
}

// zeroingReplayGain satisfies filter.ReplayGain but always returns an
// empty buffer, used to exercise play()'s "filtered to nothing" path.
type zeroingReplayGain struct{}

var _ filter.ReplayGain = (*zeroingReplayGain)(nil)

func (zeroingReplayGain) Open(in audio.Format) (audio.Format, error) { return in, nil }
func (zeroingReplayGain) Close()                                     {}
func (zeroingReplayGain) SetInfo(*audio.ReplayGainInfo)              {}
func (zeroingReplayGain) FilterPCM([]byte) ([]byte, error)           { return nil, nil }

func waitForCondition(t *testing.T, cond func() bool) {
	t.Helper()
	for i := 0; i < 200; i++ {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within timeout")
}
