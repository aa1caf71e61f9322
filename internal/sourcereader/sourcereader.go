// Package sourcereader converts a decoded source into an endless-until-exhausted
// sequence of samples in a target device format.
//
// The reader pulls whole chunks from its source, resamples every source channel
// to the target rate, then steps through the resampled chunk in target channel
// order. A source that ends part way through a chunk is padded with silence; the
// chunk after the one holding the last real frame ends the reader.
package sourcereader

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/resample"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/stepper"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/decoder"
	"github.com/google/uuid"
)

const (
	DefaultChunkSize = 2048
	DefaultSubChunks = 2
)

var (
	errInvalidTarget = errors.New("invalid target properties")
)

type options struct {
	chunkSize int
	subChunks int
	logger    *slog.Logger
}

type Option func(*options)

// Number of output frames produced by every resampler call.
func WithChunkSize(frames int) Option {
	return func(o *options) { o.chunkSize = frames }
}

func WithSubChunks(n int) Option {
	return func(o *options) { o.subChunks = n }
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

type SourceReader struct {
	logger *slog.Logger
	uuid   uuid.UUID

	source    decoder.Source
	resampler *resample.FftFixedOut
	stepper   stepper.Stepper

	// planar, one slice per source channel
	input  [][]float32
	output [][]float32

	sourceChannels int
	targetChannels int
	chunkFrames    int

	sourceDone bool
	terminal   bool
	closed     bool
}

// Create a new SourceReader that converts source to the rate and channel count of target.
// The reader takes ownership of source and fills its first chunk before returning.
func New(source decoder.Source, target audiodevice.DeviceProperties, opts ...Option) (*SourceReader, error) {
	o := options{
		chunkSize: DefaultChunkSize,
		subChunks: DefaultSubChunks,
	}
	for _, opt := range opts {
		opt(&o)
	}

	uuid := uuid.New()
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("source reader uuid", uuid)

	if target.SampleRate <= 0 || target.NumChannels <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d, channels %d", errInvalidTarget, target.SampleRate, target.NumChannels)
	}

	step, err := stepper.New(source.Channels(), target.NumChannels)
	if err != nil {
		return nil, fmt.Errorf("source reader: %w", err)
	}

	resampler, err := resample.NewFftFixedOut(
		source.SampleRate(),
		target.SampleRate,
		o.chunkSize,
		o.subChunks,
		source.Channels(),
	)
	if err != nil {
		return nil, fmt.Errorf("source reader: %w", err)
	}

	logger.Debug(
		"created source reader",
		"sourceRate", source.SampleRate(),
		"sourceChannels", source.Channels(),
		"targetRate", target.SampleRate,
		"targetChannels", target.NumChannels,
		"stepper", step.Kind(),
	)

	r := &SourceReader{
		logger:         logger,
		uuid:           uuid,
		source:         source,
		resampler:      resampler,
		stepper:        step,
		input:          resampler.InputBufferAllocate(),
		output:         resampler.OutputBufferAllocate(),
		sourceChannels: source.Channels(),
		targetChannels: target.NumChannels,
		chunkFrames:    resampler.OutputFramesNext(),
	}

	r.Refill()
	return r, nil
}

func (r *SourceReader) SourceChannels() int   { return r.sourceChannels }
func (r *SourceReader) SourceSampleRate() int { return r.source.SampleRate() }

// Refill pulls the next chunk of input from the source and resamples it.
//
// Returns the number of real frames read from the source; the rest of the
// chunk is silence. When the resampler already holds a whole chunk it needs no
// input, the chunk is served from that backlog and 0 is returned without ending
// the reader. Only a refill that needs input and finds the source exhausted
// marks the reader as terminal.
func (r *SourceReader) Refill() int {
	if r.terminal {
		return 0
	}

	framesNext := r.resampler.InputFramesNext()
	for c := range r.input {
		r.input[c] = r.input[c][:0]
	}

	if framesNext == 0 {
		r.process()
		return 0
	}

	realFrames := 0
	for realFrames < framesNext && !r.sourceDone {
		sample, ok := r.source.Next()
		if !ok {
			r.sourceDone = true
			break
		}
		r.input[0] = append(r.input[0], sample)

		// a frame cut short still counts, its missing channels are silent
		for c := 1; c < r.sourceChannels; c++ {
			sample, ok := r.source.Next()
			if !ok {
				r.sourceDone = true
			}
			r.input[c] = append(r.input[c], sample)
		}
		realFrames++
	}

	if realFrames == 0 {
		r.logger.Debug("source exhausted")
		r.terminal = true
		return 0
	}

	for c := range r.input {
		for len(r.input[c]) < framesNext {
			r.input[c] = append(r.input[c], 0)
		}
	}

	r.process()
	return realFrames
}

// Resample the current input into the output chunk and rewind the stepper.
func (r *SourceReader) process() {
	if err := r.resampler.Process(r.input, r.output); err != nil {
		r.logger.Error("failed to resample chunk", "err", err)
	}
	r.stepper.Reset()
}

// Next returns the next sample in target channel order.
// The second return value is false once the source is exhausted.
func (r *SourceReader) Next() (float32, bool) {
	if r.terminal {
		return 0, false
	}

	if r.stepper.SampleIndex() >= r.chunkFrames && r.stepper.SamplesAdvanced()%r.targetChannels == 0 {
		r.Refill()
		if r.terminal {
			return 0, false
		}
	}

	sample := r.output[r.stepper.ChannelIndex()][r.stepper.SampleIndex()]
	r.stepper.Advance()
	return sample, true
}

// Fill dst with the next samples. Returns io.EOF once the reader is exhausted.
func (r *SourceReader) ReadSamples(dst []float32) (int, error) {
	for n := range dst {
		sample, ok := r.Next()
		if !ok {
			return n, io.EOF
		}
		dst[n] = sample
	}
	return len(dst), nil
}

// Close the underlying source. Safe to call more than once.
func (r *SourceReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.terminal = true

	if err := r.source.Close(); err != nil {
		r.logger.Warn("error closing source", "err", err)
		return err
	}
	return nil
}
