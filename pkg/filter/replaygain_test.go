// ABOUTME: Tests for the scalar replay-gain filter
package filter

import (
	"testing"

	"github.com/flowcast/audioworker/pkg/audio"
)

func TestScalarReplayGainPassthroughWhenNil(t *testing.T) {
	f := NewScalarReplayGain()
	if _, err := f.Open(audio.Format{SampleRate: 44100, Format: audio.SampleFormatS16, Channels: 2}); err != nil {
		t.Fatal(err)
	}

	in := []byte{1, 2, 3, 4}
	out, err := f.FilterPCM(in)
	if err != nil {
		t.Fatal(err)
	}
	if &out[0] != &in[0] {
		t.Error("expected pass-through buffer identity with no replay gain info set")
	}
}

func TestScalarReplayGainAppliesGain(t *testing.T) {
	f := NewScalarReplayGain()
	format := audio.Format{SampleRate: 44100, Format: audio.SampleFormatS16, Channels: 1}
	if _, err := f.Open(format); err != nil {
		t.Fatal(err)
	}
	f.SetInfo(&audio.ReplayGainInfo{Gain: 0.5})

	samples, err := encodeFrames(format, []float64{1.0, -1.0})
	if err != nil {
		t.Fatal(err)
	}

	out, err := f.FilterPCM(samples)
	if err != nil {
		t.Fatal(err)
	}

	decoded, err := decodeFrames(format, out)
	if err != nil {
		t.Fatal(err)
	}
	if !(decoded[0] > 0.45 && decoded[0] < 0.55) {
		t.Errorf("expected ~0.5 after gain, got %f", decoded[0])
	}
}

func TestScalarReplayGainClampsToPeak(t *testing.T) {
	f := NewScalarReplayGain()
	format := audio.Format{SampleRate: 44100, Format: audio.SampleFormatS16, Channels: 1}
	if _, err := f.Open(format); err != nil {
		t.Fatal(err)
	}
	f.SetInfo(&audio.ReplayGainInfo{Gain: 4.0, Peak: 0.5})

	if got := f.effectiveGain(); got > 2.01 || got < 1.99 {
		t.Errorf("expected gain clamped to 1/peak=2.0, got %f", got)
	}
}
