// ABOUTME: Linear-interpolation resampler over normalized float64 frames
// ABOUTME: Resample ratio and phase can be retargeted at runtime via SetRates
package filter

// linearResampler converts between sample rates by linear interpolation
// over the float64 frames this package's filters use. Unlike a resampler
// fixed at construction, its rate can be changed between calls via
// SetRates.
type linearResampler struct {
	channels   int
	inputRate  int
	outputRate int
	ratio      float64
	position   float64
}

func newLinearResampler(channels int) *linearResampler {
	return &linearResampler{channels: channels, ratio: 1}
}

func (r *linearResampler) SetRates(inputRate, outputRate int) {
	if inputRate == r.inputRate && outputRate == r.outputRate {
		return
	}
	r.inputRate = inputRate
	r.outputRate = outputRate
	r.ratio = float64(inputRate) / float64(outputRate)
	r.position = 0
}

// Resample converts interleaved input frames at inputRate to interleaved
// output frames at outputRate, returning the number of output samples
// (not frames) written to output.
func (r *linearResampler) Resample(input, output []float64) int {
	if r.ratio == 1 {
		n := copy(output, input)
		return n
	}
	if len(input) == 0 {
		return 0
	}

	inputFrames := len(input) / r.channels
	outputFrames := len(output) / r.channels
	outIdx := 0

	for outIdx < outputFrames {
		inputPos := r.position
		inputIdx := int(inputPos)
		if inputIdx >= inputFrames-1 {
			break
		}

		frac := inputPos - float64(inputIdx)
		for ch := 0; ch < r.channels; ch++ {
			s1 := input[inputIdx*r.channels+ch]
			s2 := input[(inputIdx+1)*r.channels+ch]
			output[outIdx*r.channels+ch] = s1*(1-frac) + s2*frac
		}

		outIdx++
		r.position += r.ratio
	}

	r.position -= float64(int(r.position))
	return outIdx * r.channels
}

func (r *linearResampler) Reset() {
	r.position = 0
}
