// Package wav decodes RIFF/WAVE files with go-audio.
//
// Integer PCM at 8, 16, 24 and 32 bits and 32 bit IEEE float data are supported.
package wav

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/decoder"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	formatPCM       = 1
	formatIEEEFloat = 3
)

var (
	ErrNotWavFile          = errors.New("not a WAV file")
	ErrUnsupportedBitDepth = errors.New("unsupported WAV bit depth")
	ErrUnsupportedEncoding = errors.New("unsupported WAV encoding")
)

type source struct {
	dec        *wav.Decoder
	sampleRate int
	channels   int
	convert    func(int) float32
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
		dst[i] = s.convert(s.intBuf.Data[i])
	}
	if err != nil {
		return n, fmt.Errorf("wav: %w", err)
	}
	if n == 0 {
		return 0, io.EOF
	}
	return n, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.ReadSeeker) (decoder.Stream, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNotWavFile, err)
		}
		return nil, ErrNotWavFile
	}

	convert, err := sampleConverter(dec.WavAudioFormat, int(dec.BitDepth))
	if err != nil {
		return nil, err
	}

	return &source{
		dec:        dec,
		sampleRate: int(dec.SampleRate),
		channels:   int(dec.NumChans),
		convert:    convert,
		intBuf: &goaudio.IntBuffer{
			Format: dec.Format(),
			Data:   make([]int, 4096),
		},
	}, nil
}

// Scale decoded integers into [-1, 1].
// 8 bit WAV data is unsigned, every other depth is signed.
func sampleConverter(audioFormat uint16, bitDepth int) (func(int) float32, error) {
	switch audioFormat {
	case formatPCM:
		switch bitDepth {
		case 8:
			return func(v int) float32 { return float32(v-128) / 128 }, nil
		case 16:
			return func(v int) float32 { return float32(v) / 32768 }, nil
		case 24:
			return func(v int) float32 { return float32(v) / 8388608 }, nil
		case 32:
			return func(v int) float32 { return float32(float64(v) / 2147483648) }, nil
		}
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)

	case formatIEEEFloat:
		if bitDepth != 32 {
			return nil, fmt.Errorf("%w: %d bit float", ErrUnsupportedBitDepth, bitDepth)
		}
		// go-audio hands float data back as the raw bits of a signed int32
		return func(v int) float32 { return math.Float32frombits(uint32(int32(v))) }, nil

	default:
		return nil, fmt.Errorf("%w: format tag %d", ErrUnsupportedEncoding, audioFormat)
	}
}
