// ABOUTME: Thin aliases onto pkg/audio's normalized-float64 PCM codec
package filter

import "github.com/flowcast/audioworker/pkg/audio"

func decodeFrames(format audio.Format, data []byte) ([]float64, error) {
	return audio.DecodeFrames(format, data)
}

func encodeFrames(format audio.Format, samples []float64) ([]byte, error) {
	return audio.EncodeFrames(format, samples)
}
