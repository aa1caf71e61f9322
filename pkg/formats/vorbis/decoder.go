// Package vorbis decodes Ogg Vorbis files with oggvorbis.
package vorbis

import (
	"fmt"
	"io"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/decoder"
	"github.com/jfreymuth/oggvorbis"
)

// oggReader is an interface for oggvorbis.Reader to allow testing
type oggReader interface {
	SampleRate() int
	Channels() int
	Read([]float32) (int, error)
}

type source struct {
	dec oggReader
}

func (s *source) SampleRate() int { return s.dec.SampleRate() }
func (s *source) Channels() int   { return s.dec.Channels() }
func (s *source) Close() error    { return nil }

// oggvorbis reads whole frames and reports values, so dst is trimmed to a frame multiple.
func (s *source) ReadSamples(dst []float32) (int, error) {
	channels := s.dec.Channels()
	usable := len(dst) - len(dst)%channels
	if usable == 0 {
		return 0, nil
	}

	n, err := s.dec.Read(dst[:usable])
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("vorbis: %w", err)
	}
	if n == 0 && err == io.EOF {
		return 0, io.EOF
	}
	return n, nil
}

type Decoder struct{}

func (Decoder) Decode(r io.ReadSeeker) (decoder.Stream, error) {
	dec, err := oggvorbis.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("vorbis: %w", err)
	}
	return &source{dec: dec}, nil
}
