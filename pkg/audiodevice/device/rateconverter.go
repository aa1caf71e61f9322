package device

import (
	"github.com/oov/audio/resampler"
)

const resampleQuality = 10

type planarResampler interface {
	ProcessFloat32(channel int, in []float32, out []float32) (read int, written int)
}

// Converts interleaved buffers from one sample rate to another, keeping
// filter state between calls so consecutive buffers join without clicks.
type rateConverter struct {
	resampler   planarResampler
	numChannels int
	inRate      int
	outRate     int

	planarIn  [][]float32
	planarOut [][]float32
	out       []float32
}

func newRateConverter(numChannels, inRate, outRate int) *rateConverter {
	return &rateConverter{
		resampler:   resampler.New(numChannels, inRate, outRate, resampleQuality),
		numChannels: numChannels,
		inRate:      inRate,
		outRate:     outRate,
		planarIn:    make([][]float32, numChannels),
		planarOut:   make([][]float32, numChannels),
	}
}

// Resample one interleaved buffer. The returned slice is reused by the next call.
func (c *rateConverter) process(interleaved []float32) []float32 {
	frames := len(interleaved) / c.numChannels
	// headroom for the filter latency settling
	outFrames := frames*c.outRate/c.inRate + 64

	for ch := range c.numChannels {
		c.planarIn[ch] = grow(c.planarIn[ch], frames)
		c.planarOut[ch] = grow(c.planarOut[ch], outFrames)
		for i := range frames {
			c.planarIn[ch][i] = interleaved[i*c.numChannels+ch]
		}
	}

	written := outFrames
	for ch := range c.numChannels {
		_, n := c.resampler.ProcessFloat32(ch, c.planarIn[ch], c.planarOut[ch])
		written = min(written, n)
	}

	c.out = grow(c.out, written*c.numChannels)
	for i := range written {
		for ch := range c.numChannels {
			c.out[i*c.numChannels+ch] = c.planarOut[ch][i]
		}
	}
	return c.out
}

func grow(buf []float32, n int) []float32 {
	if cap(buf) < n {
		return make([]float32, n)
	}
	return buf[:n]
}
