// Package resample implements a synchronous, frequency-domain sample rate converter
// that always produces a fixed number of output frames per call.
//
// Each channel is processed in sub chunks of fftSizeIn frames. A sub chunk is
// zero padded to twice its length, transformed, low pass filtered, truncated or
// extended to the output spectrum size and transformed back. The second half of
// every inverse transform is overlap-added onto the next sub chunk.
//
// Because the converter works on whole blocks, callers must always supply exactly
// InputFramesNext() frames per channel. Short input must be zero padded by the caller.
package resample

import (
	"errors"
	"fmt"
	"math"
)

var (
	ErrInvalidParameters = errors.New("resampler parameters must be positive")
	ErrChannelCount      = errors.New("buffer channel count does not match resampler")
	ErrInputTooShort     = errors.New("input buffer shorter than required frame count")
	ErrOutputTooShort    = errors.New("output buffer shorter than chunk size")
)

// FftFixedOut converts between two sample rates, returning chunkSizeOut frames per
// channel on every Process call. The number of input frames it needs varies
// between calls, see InputFramesNext.
type FftFixedOut struct {
	channels     int
	chunkSizeOut int
	fftSizeIn    int
	fftSizeOut   int

	block    *fftBlock
	overlaps [][]float64
	scratch  []float64

	// frames already resampled but not yet handed out
	saved       [][]float32
	savedFrames int
}

// NewFftFixedOut creates a resampler from inputRate to outputRate.
// Each Process call is split into roughly subChunks FFT blocks, so a larger
// subChunks lowers latency at the cost of more transforms.
func NewFftFixedOut(inputRate, outputRate, chunkSizeOut, subChunks, channels int) (*FftFixedOut, error) {
	if inputRate <= 0 || outputRate <= 0 || chunkSizeOut <= 0 || subChunks <= 0 || channels <= 0 {
		return nil, fmt.Errorf(
			"%w: inputRate=%d outputRate=%d chunkSizeOut=%d subChunks=%d channels=%d",
			ErrInvalidParameters, inputRate, outputRate, chunkSizeOut, subChunks, channels,
		)
	}

	g := gcd(inputRate, outputRate)
	minChunkIn := inputRate / g
	minChunkOut := outputRate / g

	wantedSubSize := max(chunkSizeOut/subChunks, 1)
	fftChunks := ceilDiv(wantedSubSize, minChunkOut)
	fftSizeOut := fftChunks * minChunkOut
	fftSizeIn := fftChunks * minChunkIn

	overlaps := make([][]float64, channels)
	saved := make([][]float32, channels)
	for c := range channels {
		overlaps[c] = make([]float64, fftSizeOut)
		saved[c] = make([]float32, chunkSizeOut+fftSizeOut)
	}

	return &FftFixedOut{
		channels:     channels,
		chunkSizeOut: chunkSizeOut,
		fftSizeIn:    fftSizeIn,
		fftSizeOut:   fftSizeOut,
		block:        newFftBlock(fftSizeIn, fftSizeOut),
		overlaps:     overlaps,
		scratch:      make([]float64, fftSizeOut),
		saved:        saved,
	}, nil
}

func (r *FftFixedOut) Channels() int { return r.channels }

// Number of input frames per channel the next Process call consumes.
func (r *FftFixedOut) InputFramesNext() int {
	needed := r.chunkSizeOut - r.savedFrames
	if needed <= 0 {
		return 0
	}
	return ceilDiv(needed, r.fftSizeOut) * r.fftSizeIn
}

// Upper bound of InputFramesNext over the lifetime of the resampler.
func (r *FftFixedOut) InputFramesMax() int {
	return ceilDiv(r.chunkSizeOut, r.fftSizeOut) * r.fftSizeIn
}

func (r *FftFixedOut) OutputFramesNext() int { return r.chunkSizeOut }

// Allocate empty per-channel input buffers with room for InputFramesMax frames.
func (r *FftFixedOut) InputBufferAllocate() [][]float32 {
	buf := make([][]float32, r.channels)
	for c := range buf {
		buf[c] = make([]float32, 0, r.InputFramesMax())
	}
	return buf
}

// Allocate per-channel output buffers of exactly one chunk.
func (r *FftFixedOut) OutputBufferAllocate() [][]float32 {
	buf := make([][]float32, r.channels)
	for c := range buf {
		buf[c] = make([]float32, r.chunkSizeOut)
	}
	return buf
}

// Process consumes InputFramesNext() frames from every input channel and writes
// exactly chunkSizeOut frames into every output channel.
// Frames beyond InputFramesNext() in the input are ignored.
func (r *FftFixedOut) Process(input [][]float32, output [][]float32) error {
	if len(input) != r.channels || len(output) != r.channels {
		return fmt.Errorf("%w: want %d, got input=%d output=%d", ErrChannelCount, r.channels, len(input), len(output))
	}

	framesIn := r.InputFramesNext()
	for c := range r.channels {
		if len(input[c]) < framesIn {
			return fmt.Errorf("%w: channel %d has %d frames, want %d", ErrInputTooShort, c, len(input[c]), framesIn)
		}
		if len(output[c]) < r.chunkSizeOut {
			return fmt.Errorf("%w: channel %d has %d frames, want %d", ErrOutputTooShort, c, len(output[c]), r.chunkSizeOut)
		}
	}

	blocks := framesIn / r.fftSizeIn
	total := r.savedFrames + blocks*r.fftSizeOut

	for c := range r.channels {
		for b := range blocks {
			in := input[c][b*r.fftSizeIn : (b+1)*r.fftSizeIn]
			r.block.process(in, r.overlaps[c], r.scratch)

			dst := r.saved[c][r.savedFrames+b*r.fftSizeOut:]
			for i, v := range r.scratch {
				dst[i] = float32(v)
			}
		}

		copy(output[c][:r.chunkSizeOut], r.saved[c][:r.chunkSizeOut])
		copy(r.saved[c], r.saved[c][r.chunkSizeOut:total])
	}

	r.savedFrames = total - r.chunkSizeOut
	return nil
}

// Reset clears all filter history and pending output.
func (r *FftFixedOut) Reset() {
	for c := range r.channels {
		clear(r.overlaps[c])
		clear(r.saved[c])
	}
	r.savedFrames = 0
}

// --------------------------------------------------------------------------------

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// Blackman windowed sinc low pass of the given length, normalised to unity DC gain.
// cutoff is relative to the Nyquist frequency.
func lowPass(length int, cutoff float64) []float64 {
	taps := make([]float64, length)
	center := float64(length-1) / 2
	sum := 0.0
	for i := range taps {
		x := float64(i) - center
		var sinc float64
		if x == 0 {
			sinc = cutoff
		} else {
			sinc = math.Sin(math.Pi*cutoff*x) / (math.Pi * x)
		}

		var window float64
		if length > 1 {
			phase := 2 * math.Pi * float64(i) / float64(length-1)
			window = 0.42 - 0.5*math.Cos(phase) + 0.08*math.Cos(2*phase)
		} else {
			window = 1
		}

		taps[i] = sinc * window
		sum += taps[i]
	}

	if sum != 0 {
		for i := range taps {
			taps[i] /= sum
		}
	}
	return taps
}
