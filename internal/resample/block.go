package resample

import (
	"gonum.org/v1/gonum/dsp/fourier"
)

// fraction of the lower Nyquist frequency kept by the anti-aliasing filter
const filterCutoff = 0.95

// fftBlock resamples one block of sizeIn frames into sizeOut frames.
// It holds scratch space only, so a single block can serve every channel
// as long as each channel keeps its own overlap buffer.
type fftBlock struct {
	sizeIn  int
	sizeOut int

	fftIn  *fourier.FFT
	fftOut *fourier.FFT

	filter []complex128

	timeIn  []float64
	specIn  []complex128
	specOut []complex128
	timeOut []float64

	scale float64
}

func newFftBlock(sizeIn, sizeOut int) *fftBlock {
	fftIn := fourier.NewFFT(2 * sizeIn)
	fftOut := fourier.NewFFT(2 * sizeOut)

	cutoff := filterCutoff
	if sizeOut < sizeIn {
		cutoff *= float64(sizeOut) / float64(sizeIn)
	}

	padded := make([]float64, 2*sizeIn)
	copy(padded, lowPass(sizeIn, cutoff))
	filter := fftIn.Coefficients(nil, padded)

	return &fftBlock{
		sizeIn:  sizeIn,
		sizeOut: sizeOut,
		fftIn:   fftIn,
		fftOut:  fftOut,
		filter:  filter,
		timeIn:  make([]float64, 2*sizeIn),
		specIn:  make([]complex128, sizeIn+1),
		specOut: make([]complex128, sizeOut+1),
		timeOut: make([]float64, 2*sizeOut),
		// gonum's inverse transform is unnormalised
		scale: 1 / float64(2*sizeIn),
	}
}

// process resamples in (sizeIn frames) into out (sizeOut frames), adding the tail
// of the previous block from overlap and storing the tail of this one back into it.
func (b *fftBlock) process(in []float32, overlap []float64, out []float64) {
	for i := range b.sizeIn {
		b.timeIn[i] = float64(in[i])
	}
	clear(b.timeIn[b.sizeIn:])

	spec := b.fftIn.Coefficients(b.specIn, b.timeIn)
	for k := range spec {
		spec[k] *= b.filter[k]
	}

	bins := min(b.sizeIn, b.sizeOut) + 1
	clear(b.specOut)
	copy(b.specOut[:bins], spec[:bins])

	seq := b.fftOut.Sequence(b.timeOut, b.specOut)
	for i := range b.sizeOut {
		out[i] = seq[i]*b.scale + overlap[i]
		overlap[i] = seq[i+b.sizeOut] * b.scale
	}
}
