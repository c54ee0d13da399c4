// ABOUTME: oto/v3-based BackendPort implementation
// ABOUTME: Feeds an io.Pipe into an oto/v3 player so a blocked pipe write naturally models device backpressure
package backend

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/flowcast/audioworker/pkg/audio"
)

// Oto plays PCM through the system's default output device via oto/v3.
// oto only supports signed 16-bit little-endian samples, so Open rejects
// any other SampleFormat rather than silently truncating.
type Oto struct {
	name string

	mu         sync.Mutex
	otoCtx     *oto.Context
	player     *oto.Player
	pipeReader *io.PipeReader
	pipeWriter *io.PipeWriter
	format     audio.Format
	ready      bool
}

var _ Port = (*Oto)(nil)

// NewOto creates an oto-backed Port. name is used only in log lines.
func NewOto(name string) *Oto {
	return &Oto{name: name}
}

func (o *Oto) Enable(ctx context.Context) error { return nil }

func (o *Oto) Disable(ctx context.Context) {}

func (o *Oto) Open(ctx context.Context, format audio.Format) error {
	if format.Format != audio.SampleFormatS16 {
		return fmt.Errorf("oto backend %q: only S16 output is supported, got %s", o.name, format.Format)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctxReady, readyChan, err := oto.NewContext(op)
	if err != nil {
		return fmt.Errorf("oto backend %q: failed to create context: %w", o.name, err)
	}
	<-readyChan

	o.otoCtx = ctxReady
	o.format = format
	o.pipeReader, o.pipeWriter = io.Pipe()
	o.player = o.otoCtx.NewPlayer(o.pipeReader)
	o.player.Play()
	o.ready = true

	log.Printf("oto backend %q opened: %s", o.name, format)
	return nil
}

func (o *Oto) Close(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closeLocked()
}

func (o *Oto) closeLocked() {
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeWriter = nil
	}
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
	if o.pipeReader != nil {
		o.pipeReader.Close()
		o.pipeReader = nil
	}
	if o.otoCtx != nil {
		o.otoCtx.Suspend()
		o.otoCtx = nil
	}
	o.ready = false
}

// Play writes data to the pipe feeding the persistent oto player. The
// pipe write blocks until oto's callback has consumed enough of the
// previous write to make room, which is this backend's way of honoring
// device-imposed delay without a separate ring buffer.
func (o *Oto) Play(ctx context.Context, data []byte) (int, error) {
	o.mu.Lock()
	writer := o.pipeWriter
	ready := o.ready
	o.mu.Unlock()

	if !ready || writer == nil {
		return 0, fmt.Errorf("oto backend %q: not open", o.name)
	}

	frameSize := o.format.FrameSize()
	n := len(data)
	if frameSize > 0 {
		n -= n % frameSize
	}
	if n == 0 {
		return 0, nil
	}

	written, err := writer.Write(data[:n])
	if err != nil {
		return 0, fmt.Errorf("oto backend %q: pipe write failed: %w", o.name, err)
	}
	return written, nil
}

func (o *Oto) Pause(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player == nil {
		return fmt.Errorf("oto backend %q: not open", o.name)
	}
	o.player.Pause()
	return nil
}

// Drain lets oto finish playing whatever is already buffered; the pipe
// has no separate drain primitive, so this is a best-effort no-op and the
// caller relies on Close to release resources afterward.
func (o *Oto) Drain(ctx context.Context) {}

// Cancel discards unplayed audio by closing the current pipe and player and
// replacing them with fresh ones, so Play can continue without a re-Open.
func (o *Oto) Cancel(ctx context.Context) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.pipeWriter != nil {
		o.pipeWriter.Close()
		o.pipeReader.Close()
		o.pipeReader, o.pipeWriter = io.Pipe()
		if o.player != nil {
			o.player.Close()
			o.player = o.otoCtx.NewPlayer(o.pipeReader)
			o.player.Play()
		}
	}
}

// Delay reports zero: the pipe write in Play already blocks for exactly
// as long as the device needs, so there is nothing further to wait for
// here, and this query performs no I/O of its own.
func (o *Oto) Delay() time.Duration { return 0 }

func (o *Oto) SendTag(ctx context.Context, tag *audio.Tag) {
	if tag == nil {
		return
	}
	title, _ := tag.Value(audio.TagTitle)
	artist, _ := tag.Value(audio.TagArtist)
	log.Printf("oto backend %q: now playing %q by %q", o.name, title, artist)
}
