// ABOUTME: Growable scratch buffer and the two-chunk weighted mix used by filterChunk
// ABOUTME: A first-order error-feedback dither re-quantizes the mixed sum back to the wire format
package worker

import (
	"math"

	"github.com/flowcast/audioworker/pkg/audio"
)

// ditherStep is one S16 least-significant bit in normalized [-1,1] units —
// the quantization grid the error-feedback loop shapes noise against,
// regardless of the format eventually encoded to.
const ditherStep = 1.0 / 32768.0

// crossFadeBuffer is a growable scratch buffer reused across mixes within
// one open session, avoiding an allocation per cross-faded chunk.
type crossFadeBuffer struct {
	buf []byte
}

// get returns a []byte of exactly size, reusing the backing array when it
// is already large enough.
func (b *crossFadeBuffer) get(size int) []byte {
	if cap(b.buf) < size {
		b.buf = make([]byte, size)
		return b.buf
	}
	b.buf = b.buf[:size]
	return b.buf
}

// ditherState is the opaque noise-shaping accumulator carried across mixes
// for the lifetime of one open session: it persists until Close and is
// never reset between chunks. It feeds back each mix's quantization error
// so it is cancelled out in the following sample rather than correlating
// with the signal.
type ditherState struct {
	errorFeedback float64
}

func (d *ditherState) shape(s float64) float64 {
	biased := s + d.errorFeedback
	quantized := math.Round(biased/ditherStep) * ditherStep
	d.errorFeedback = biased - quantized
	return quantized
}

// mixCrossFade writes other at full weight and the first len(primary)
// samples of primary at weight (1-mixRatio) into dst, which must already
// hold a copy of other. primary is clamped by the caller to at most
// len(other) samples before this is called. format must be identical for
// both operands — the cross-fade rule never mixes across formats, and a
// mismatch is ErrCrossFadeFormatUnsupported at the call site.
func mixCrossFade(dither *ditherState, format audio.Format, dst, primary []byte, mixRatio float64) error {
	dstSamples, err := audio.DecodeFrames(format, dst)
	if err != nil {
		return err
	}
	primarySamples, err := audio.DecodeFrames(format, primary)
	if err != nil {
		return err
	}

	weight := 1 - mixRatio
	n := len(primarySamples)
	if n > len(dstSamples) {
		n = len(dstSamples)
	}
	for i := 0; i < n; i++ {
		mixed := dstSamples[i] + primarySamples[i]*weight
		dstSamples[i] = dither.shape(audio.ClampSample(mixed))
	}

	encoded, err := audio.EncodeFrames(format, dstSamples)
	if err != nil {
		return err
	}
	copy(dst, encoded)
	return nil
}
