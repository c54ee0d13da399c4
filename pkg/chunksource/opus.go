// ABOUTME: Decodes a sequence of raw Opus packets into a worker.MemPipe
// ABOUTME: Decodes each Opus packet independently into one MusicChunk of signed 16-bit PCM
package chunksource

import (
	"encoding/binary"
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/flowcast/audioworker/internal/worker"
	"github.com/flowcast/audioworker/pkg/audio"
)

// maxOpusFrameSamples is the largest frame size a single Opus packet can
// decode to per channel under the libopus API contract.
const maxOpusFrameSamples = 5760

// FromOpusPackets decodes each packet independently and turns it into one
// MusicChunk of signed 16-bit PCM, linked in the order given. Opus itself
// carries no sample-rate field per packet, so the caller supplies the
// stream's negotiated sampleRate/channels (as a real Opus demuxer's
// container headers would).
func FromOpusPackets(packets [][]byte, sampleRate, channels int) (*worker.MemPipe, audio.Format, error) {
	dec, err := opus.NewDecoder(sampleRate, channels)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("chunksource: opus decoder: %w", err)
	}

	format := audio.Format{
		SampleRate: sampleRate,
		Format:     audio.SampleFormatS16,
		Channels:   channels,
	}

	pcm := make([]int16, maxOpusFrameSamples*channels)
	chunks := make([]*audio.MusicChunk, 0, len(packets))
	for i, packet := range packets {
		n, err := dec.Decode(packet, pcm)
		if err != nil {
			return nil, audio.Format{}, fmt.Errorf("chunksource: opus packet %d: %w", i, err)
		}

		samples := n * channels
		data := make([]byte, samples*2)
		for j := 0; j < samples; j++ {
			binary.LittleEndian.PutUint16(data[j*2:], uint16(pcm[j]))
		}
		chunks = append(chunks, &audio.MusicChunk{Data: data})
	}

	return worker.NewMemPipe(chunks), format, nil
}
