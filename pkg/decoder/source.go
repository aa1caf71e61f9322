package decoder

import (
	"errors"
	"io"
	"log/slog"
)

const defaultSourceBufferSize = 4096

// sampleSource buffers block reads from a Stream and hands them out one at a time.
type sampleSource struct {
	logger *slog.Logger
	stream Stream

	buf    []float32
	pos    int
	filled int
	done   bool
}

// Wrap a Stream as a Source.
// Read errors other than io.EOF are logged and end the Source.
func NewSource(stream Stream, logger *slog.Logger) Source {
	if logger == nil {
		logger = slog.Default()
	}

	// keep whole frames in the buffer
	size := defaultSourceBufferSize - defaultSourceBufferSize%max(stream.Channels(), 1)

	return &sampleSource{
		logger: logger,
		stream: stream,
		buf:    make([]float32, size),
	}
}

func (s *sampleSource) Channels() int   { return s.stream.Channels() }
func (s *sampleSource) SampleRate() int { return s.stream.SampleRate() }
func (s *sampleSource) Close() error    { return s.stream.Close() }

func (s *sampleSource) Next() (float32, bool) {
	for s.pos == s.filled {
		if s.done {
			return 0, false
		}
		s.fill()
	}

	sample := s.buf[s.pos]
	s.pos++
	return sample, true
}

func (s *sampleSource) fill() {
	n, err := s.stream.ReadSamples(s.buf)
	s.pos = 0
	s.filled = max(n, 0)

	switch {
	case err == nil:
		if n == 0 {
			// a stream that returns nothing without an error would spin forever
			s.done = true
		}
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		s.done = true
	default:
		s.logger.Warn("decode error, ending source early", "err", err)
		s.done = true
	}
}
