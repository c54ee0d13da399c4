// ABOUTME: FilterPort contracts and the FilterChain container
// ABOUTME: FilterChain.Open/Close are idempotent per open session
package filter

import (
	"fmt"

	"github.com/flowcast/audioworker/pkg/audio"
)

// Port is a single filter stage. FilterPCM may return a borrowed or
// newly-owned buffer; callers must not retain it across the next call.
type Port interface {
	Open(in audio.Format) (audio.Format, error)
	Close()
	FilterPCM(in []byte) ([]byte, error)
}

// ReplayGain extends Port with the ability to be reconfigured whenever a
// chunk's replay-gain serial changes.
type ReplayGain interface {
	Port
	SetInfo(info *audio.ReplayGainInfo)
}

// Convert extends Port with the ability to retarget its output format
// without a full Close/Open cycle, used to follow the backend's actual
// out_audio_format once it is known.
type Convert interface {
	Port
	SetOutFormat(format audio.Format) error
}

// Chain runs PCM through a stack of Port in order. Open and Close are each
// idempotent: calling either twice in a row without the other in between
// is a no-op.
type Chain struct {
	stages []Port
	opened bool
	out    audio.Format
}

// NewChain builds a chain from stages, always run in the given order.
func NewChain(stages ...Port) *Chain {
	return &Chain{stages: stages}
}

// Open opens every stage in order against the format produced by the
// previous one, returning the format the last stage emits.
func (c *Chain) Open(in audio.Format) (audio.Format, error) {
	if c.opened {
		return c.out, nil
	}

	format := in
	for i, stage := range c.stages {
		out, err := stage.Open(format)
		if err != nil {
			for j := i - 1; j >= 0; j-- {
				c.stages[j].Close()
			}
			return audio.Format{}, fmt.Errorf("filter stage %d: %w", i, err)
		}
		format = out
	}

	c.opened = true
	c.out = format
	return format, nil
}

// Close closes every stage in reverse order. Safe to call when not open.
func (c *Chain) Close() {
	if !c.opened {
		return
	}
	for i := len(c.stages) - 1; i >= 0; i-- {
		c.stages[i].Close()
	}
	c.opened = false
}

// FilterPCM runs data through every stage in order.
func (c *Chain) FilterPCM(data []byte) ([]byte, error) {
	for i, stage := range c.stages {
		out, err := stage.FilterPCM(data)
		if err != nil {
			return nil, fmt.Errorf("filter stage %d: %w", i, err)
		}
		data = out
	}
	return data, nil
}
