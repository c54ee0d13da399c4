// ABOUTME: mockBackend — a controllable backend.Port for dispatch/play-step tests
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/flowcast/audioworker/pkg/audio"
	"github.com/flowcast/audioworker/pkg/filter"
)

// spyReplayGain counts SetInfo calls and otherwise passes bytes through
// unchanged, for asserting invariant 8 (one set_info call per distinct
// serial, not per chunk).
type spyReplayGain struct {
	format    audio.Format
	infoCalls int
	lastInfo  *audio.ReplayGainInfo
}

var _ filter.ReplayGain = (*spyReplayGain)(nil)

func (s *spyReplayGain) Open(in audio.Format) (audio.Format, error) { s.format = in; return in, nil }
func (s *spyReplayGain) Close()                                     {}
func (s *spyReplayGain) SetInfo(info *audio.ReplayGainInfo) {
	s.infoCalls++
	s.lastInfo = info
}
func (s *spyReplayGain) FilterPCM(in []byte) ([]byte, error) { return in, nil }

type mockBackend struct {
	mu sync.Mutex

	enableErr error
	openErr   error
	pauseErr  error

	// playFunc overrides the default "accept everything" Play behavior.
	// Called with mu NOT held.
	playFunc func(data []byte) (int, error)

	delay time.Duration

	enables, disables, opens, closes, drains, cancels, pauses int
	played                                                    []byte
	openFormat                                                audio.Format
	sentTags                                                  []*audio.Tag
}

func newMockBackend() *mockBackend {
	return &mockBackend{}
}

func (b *mockBackend) Enable(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enables++
	return b.enableErr
}

func (b *mockBackend) Disable(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disables++
}

func (b *mockBackend) Open(ctx context.Context, format audio.Format) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opens++
	b.openFormat = format
	return b.openErr
}

func (b *mockBackend) Close(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closes++
}

func (b *mockBackend) Play(ctx context.Context, data []byte) (int, error) {
	if b.playFunc != nil {
		return b.playFunc(data)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.played = append(b.played, data...)
	return len(data), nil
}

func (b *mockBackend) Pause(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pauses++
	return b.pauseErr
}

func (b *mockBackend) Drain(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.drains++
}

func (b *mockBackend) Cancel(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cancels++
}

func (b *mockBackend) Delay() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.delay
}

func (b *mockBackend) setDelay(d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delay = d
}

func (b *mockBackend) SendTag(ctx context.Context, tag *audio.Tag) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sentTags = append(b.sentTags, tag)
}

func (b *mockBackend) totalPlayed() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.played)
}

func (b *mockBackend) playedBytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.played))
	copy(out, b.played)
	return out
}

func makeChunk(n int) *audio.MusicChunk {
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i + 1)
	}
	return &audio.MusicChunk{Data: data}
}
