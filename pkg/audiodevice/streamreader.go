package audiodevice

import (
	"io"
	"log/slog"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/frame"
)

// An io.Reader that pulls float32 samples from a stream and encodes them in the
// device sample format.
//
// Reads never block for longer than the underrun timeout per frame boundary:
// when the stream runs dry the rest of the buffer is filled with silence.
// Once the stream is closed every read returns silence.
type StreamReader struct {
	logger *slog.Logger

	stream      <-chan float32
	format      frame.SampleFormat
	numChannels int
	timeout     time.Duration
	timer       *time.Timer

	// samples handed out since the last frame boundary
	frameOffset int
	underrun    bool
	closed      bool
}

func NewStreamReader(stream <-chan float32, properties DeviceProperties, underrunTimeout time.Duration, logger *slog.Logger) *StreamReader {
	if logger == nil {
		logger = slog.Default()
	}

	timer := time.NewTimer(underrunTimeout)
	timer.Stop()

	return &StreamReader{
		logger:      logger,
		stream:      stream,
		format:      properties.SampleFormat,
		numChannels: max(properties.NumChannels, 1),
		timeout:     underrunTimeout,
		timer:       timer,
	}
}

type receiveResult int

const (
	received receiveResult = iota
	timedOut
	streamClosed
)

func (r *StreamReader) receive() (float32, receiveResult) {
	if r.closed {
		return 0, streamClosed
	}

	select {
	case sample, ok := <-r.stream:
		if !ok {
			return 0, streamClosed
		}
		return sample, received
	default:
	}

	r.timer.Reset(r.timeout)
	defer r.timer.Stop()

	select {
	case sample, ok := <-r.stream:
		if !ok {
			return 0, streamClosed
		}
		return sample, received
	case <-r.timer.C:
		return 0, timedOut
	}
}

// Read fills p with whole samples. It returns io.ErrShortBuffer if p cannot hold a single sample.
func (r *StreamReader) Read(p []byte) (int, error) {
	bps := r.format.BytesPerSample()
	if bps == 0 || len(p) < bps {
		return 0, io.ErrShortBuffer
	}

	n := 0
	for n+bps <= len(p) {
		sample, result := r.receive()
		switch result {
		case received:
			if r.underrun {
				r.logger.Debug("stream underrun recovered")
				r.underrun = false
			}
			frame.EncodeSample(r.format, sample, p[n:])
			n += bps
			r.frameOffset = (r.frameOffset + 1) % r.numChannels

		case streamClosed:
			if !r.closed {
				r.logger.Debug("stream closed, playing silence")
				r.closed = true
			}
			return n + r.silence(p[n:], bps), nil

		case timedOut:
			// only pad at frame boundaries so channels stay aligned
			if r.frameOffset != 0 {
				continue
			}
			frameBytes := bps * r.numChannels
			padded := (len(p) - n) / frameBytes * frameBytes
			if padded == 0 {
				if n > 0 {
					return n, nil
				}
				continue
			}
			if !r.underrun {
				r.logger.Warn("stream underrun, playing silence", "timeout", r.timeout)
				r.underrun = true
			}
			return n + r.silence(p[n:n+padded], bps), nil
		}
	}

	return n, nil
}

func (r *StreamReader) silence(p []byte, bps int) int {
	n := 0
	for ; n+bps <= len(p); n += bps {
		frame.EncodeSample(r.format, 0, p[n:])
	}
	return n
}
