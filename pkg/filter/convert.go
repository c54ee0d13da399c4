// ABOUTME: ConvertFilter implementation: retargets sample rate, channel count and sample format
// ABOUTME: SetOutFormat is called by the worker once the backend's true out_audio_format is known
package filter

import (
	"fmt"

	"github.com/flowcast/audioworker/pkg/audio"
)

// Convert resamples and reformats PCM to match a target format decided
// after Open — by the time the worker knows the backend's actual
// out_audio_format, the filter chain (and this filter within it) is
// already open.
type ConvertFilter struct {
	in        audio.Format
	out       audio.Format
	resampler *linearResampler
}

var _ Convert = (*ConvertFilter)(nil)

func NewConvert() *ConvertFilter {
	return &ConvertFilter{}
}

func (f *ConvertFilter) Open(in audio.Format) (audio.Format, error) {
	f.in = in
	if !f.out.Valid() {
		f.out = in
	}
	f.resampler = newLinearResampler(f.out.Channels)
	f.resampler.SetRates(f.in.SampleRate, f.out.SampleRate)
	return f.out, nil
}

func (f *ConvertFilter) Close() {
	f.resampler = nil
}

func (f *ConvertFilter) SetOutFormat(format audio.Format) error {
	if !format.Valid() {
		return fmt.Errorf("convert filter: invalid target format %s", format)
	}
	f.out = format
	if f.resampler != nil {
		f.resampler = newLinearResampler(f.out.Channels)
		f.resampler.SetRates(f.in.SampleRate, f.out.SampleRate)
	}
	return nil
}

func (f *ConvertFilter) FilterPCM(in []byte) ([]byte, error) {
	if f.in == f.out {
		return in, nil
	}

	samples, err := decodeFrames(f.in, in)
	if err != nil {
		return nil, err
	}

	remapped := remapChannels(samples, f.in.Channels, f.out.Channels)

	if f.in.SampleRate == f.out.SampleRate {
		return encodeFrames(f.out, remapped)
	}

	outFrames := int(float64(len(remapped)/f.out.Channels)/f.resampler.ratio) + 1
	resampled := make([]float64, outFrames*f.out.Channels)
	n := f.resampler.Resample(remapped, resampled)
	return encodeFrames(f.out, resampled[:n])
}

// remapChannels up- or down-mixes interleaved frames between channel
// counts. Matching counts pass through unchanged; otherwise every output
// channel is the mean of every input channel — simple and format-agnostic,
// deliberately not a tuned mixdown policy.
func remapChannels(samples []float64, inCh, outCh int) []float64 {
	if inCh == outCh || inCh == 0 {
		return samples
	}

	frames := len(samples) / inCh
	out := make([]float64, frames*outCh)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < inCh; ch++ {
			sum += samples[i*inCh+ch]
		}
		mono := sum / float64(inCh)
		for ch := 0; ch < outCh; ch++ {
			out[i*outCh+ch] = mono
		}
	}
	return out
}
