// ABOUTME: Scalar replay-gain normalization filter
// ABOUTME: Reconfigured via SetInfo whenever the chunk's replay-gain serial changes
package filter

import (
	"github.com/flowcast/audioworker/pkg/audio"
)

// ScalarReplayGain multiplies every sample by the current ReplayGainInfo's
// Gain, scaling down first if that would clip past Peak. A nil info (the
// ReplayGainSerial == 0 case) is a pass-through.
type ScalarReplayGain struct {
	format audio.Format
	info   *audio.ReplayGainInfo
}

var _ ReplayGain = (*ScalarReplayGain)(nil)

func NewScalarReplayGain() *ScalarReplayGain {
	return &ScalarReplayGain{}
}

func (f *ScalarReplayGain) Open(in audio.Format) (audio.Format, error) {
	f.format = in
	return in, nil
}

func (f *ScalarReplayGain) Close() {
	f.info = nil
}

func (f *ScalarReplayGain) SetInfo(info *audio.ReplayGainInfo) {
	f.info = info
}

func (f *ScalarReplayGain) FilterPCM(in []byte) ([]byte, error) {
	if f.info == nil || f.info.Gain == 1 {
		return in, nil
	}

	samples, err := decodeFrames(f.format, in)
	if err != nil {
		return nil, err
	}

	gain := f.effectiveGain()
	for i, s := range samples {
		samples[i] = s * gain
	}

	return encodeFrames(f.format, samples)
}

// effectiveGain scales the configured gain down, never up, so that the
// known peak sample does not clip.
func (f *ScalarReplayGain) effectiveGain() float64 {
	gain := f.info.Gain
	if f.info.Peak > 0 {
		if headroom := 1.0 / f.info.Peak; gain > headroom {
			gain = headroom
		}
	}
	return gain
}
