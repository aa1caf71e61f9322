// Package aiff decodes AIFF files with go-audio.
package aiff

import (
	"errors"
	"fmt"
	"io"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/decoder"
	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"
)

var (
	ErrNotAiffFile         = errors.New("not an AIFF file")
	ErrUnsupportedBitDepth = errors.New("unsupported AIFF bit depth")
)

// aiffReader is the part of aiff.Decoder the source needs.
type aiffReader interface {
	PCMBuffer(buf *goaudio.IntBuffer) (int, error)
}

type source struct {
	dec        aiffReader
	sampleRate int
	channels   int
	fullScale  float32
	intBuf     *goaudio.IntBuffer
}

func (s *source) SampleRate() int { return s.sampleRate }
func (s *source) Channels() int   { return s.channels }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	if cap(s.intBuf.Data) < len(dst) {
		s.intBuf.Data = make([]int, len(dst))
	}
	s.intBuf.Data = s.intBuf.Data[:len(dst)]

	n, err := s.dec.PCMBuffer(s.intBuf)
	for i := range n {
		dst[i] = float32(s.intBuf.Data[i]) / s.fullScale
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("aiff: %w", err)
	}
	if n == 0 || err != nil {
		return n, io.EOF
	}
	return n, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.ReadSeeker) (decoder.Stream, error) {
	dec := aiff.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, ErrNotAiffFile
	}
	dec.ReadInfo()

	// AIFF samples are always signed
	var fullScale float32
	switch dec.BitDepth {
	case 8:
		fullScale = 128
	case 16:
		fullScale = 32768
	case 24:
		fullScale = 8388608
	case 32:
		fullScale = 2147483648
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, dec.BitDepth)
	}

	format := dec.Format()
	if format == nil {
		return nil, ErrNotAiffFile
	}

	return &source{
		dec:        dec,
		sampleRate: format.SampleRate,
		channels:   format.NumChannels,
		fullScale:  fullScale,
		intBuf: &goaudio.IntBuffer{
			Format: format,
			Data:   make([]int, 4096),
		},
	}, nil
}
