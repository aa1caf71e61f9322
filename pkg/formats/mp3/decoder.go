// Package mp3 decodes MPEG-1/2 layer III files with go-mp3.
package mp3

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/decoder"
	gomp3 "github.com/hajimehoshi/go-mp3"
)

// go-mp3 always produces interleaved stereo 16 bit little endian PCM
const channels = 2

// mp3Reader is an interface for gomp3.Decoder to allow testing
type mp3Reader interface {
	Read([]byte) (int, error)
	SampleRate() int
}

type source struct {
	dec mp3Reader
	buf []byte
	// a trailing odd byte from the previous read
	pending []byte
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return channels }
func (s *source) Close() error    { return nil }

func (s *source) ReadSamples(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}

	bytesNeeded := len(dst) * 2
	if cap(s.buf) < bytesNeeded {
		s.buf = make([]byte, bytesNeeded)
	}
	s.buf = s.buf[:bytesNeeded]

	held := copy(s.buf, s.pending)
	s.pending = s.pending[:0]

	n, err := s.dec.Read(s.buf[held:])
	n += held

	samples := n / 2
	for i := range samples {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(s.buf[2*i:]))) / 32768
	}
	if n%2 == 1 {
		s.pending = append(s.pending, s.buf[n-1])
	}

	if err != nil && err != io.EOF {
		return samples, fmt.Errorf("mp3: %w", err)
	}
	if samples == 0 && err == io.EOF {
		return 0, io.EOF
	}
	return samples, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.ReadSeeker) (decoder.Stream, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("mp3: %w", err)
	}
	return newSource(dec), nil
}

func newSource(dec mp3Reader) *source {
	return &source{
		dec:     dec,
		buf:     make([]byte, 8192),
		pending: make([]byte, 0, 1),
	}
}
