// ABOUTME: Decodes a whole MP3 stream into a worker.MemPipe of fixed-size chunks
// ABOUTME: Reads frame-aligned chunks off a streaming go-mp3 decoder until EOF
package chunksource

import (
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"

	"github.com/flowcast/audioworker/internal/worker"
	"github.com/flowcast/audioworker/pkg/audio"
)

// DefaultChunkFrames is how many frames chunksource packs into one
// MusicChunk when the caller doesn't need a specific size.
const DefaultChunkFrames = 4096

// FromMP3 decodes r fully and slices the result into chunkFrames-frame
// MusicChunks linked in play order. go-mp3 always produces signed 16-bit
// little-endian stereo PCM, so the returned audio.Format reflects only the
// sample rate the stream declares.
func FromMP3(r io.Reader, chunkFrames int) (*worker.MemPipe, audio.Format, error) {
	if chunkFrames <= 0 {
		chunkFrames = DefaultChunkFrames
	}

	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("chunksource: mp3 decode: %w", err)
	}

	format := audio.Format{
		SampleRate: dec.SampleRate(),
		Format:     audio.SampleFormatS16,
		Channels:   2,
	}

	frameSize := format.FrameSize()
	chunkBytes := chunkFrames * frameSize

	var chunks []*audio.MusicChunk
	buf := make([]byte, chunkBytes)
	for {
		n, err := io.ReadFull(dec, buf)
		if n > 0 {
			n -= n % frameSize
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				chunks = append(chunks, &audio.MusicChunk{Data: data})
			}
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			break
		}
		if err != nil {
			return nil, audio.Format{}, fmt.Errorf("chunksource: mp3 decode: %w", err)
		}
	}

	return worker.NewMemPipe(chunks), format, nil
}
