// Package decoder defines the boundary between the playback engine and the codec
// backends that turn a file into decoded, interleaved float32 samples.
package decoder

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

var (
	ErrUnknownFormat   = errors.New("no decoder registered for format")
	ErrNoPlayableTrack = errors.New("no playable audio stream found")
)

// A block reading PCM stream, as produced by a format decoder.
type Stream interface {
	// SampleRate of the PCM stream in Hz.
	SampleRate() int
	// Channels count (e.g., 1=mono, 2=stereo).
	Channels() int
	// ReadSamples fills dst with interleaved float32 samples in [-1,1].
	// Returns number of float32 values written (not frames). When n == 0 with err == io.EOF, the stream is finished.
	ReadSamples(dst []float32) (n int, err error)
	// Close releases any resources.
	Close() error
}

// A sample-at-a-time view of a decoded file, consumed by the source reader.
type Source interface {
	Channels() int
	SampleRate() int
	// Next returns the next interleaved sample.
	// ok is false once the stream has permanently ended, including after an unrecoverable decode error.
	Next() (sample float32, ok bool)
	Close() error
}

// Decoder constructs a Stream from an input reader.
type Decoder interface {
	Decode(r io.ReadSeeker) (Stream, error)
}

// --------------------------------------------------------------------------------

// DecodeError is returned when a file cannot be turned into a Source.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// --------------------------------------------------------------------------------

// Registry for decoders by format key (e.g., "wav", "mp3", "ogg").
type Registry struct {
	codecs map[string]Decoder

	mtx sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		codecs: make(map[string]Decoder),
	}
}

// Register a decoder for a format. Keys are case insensitive and may carry a leading dot.
func (r *Registry) Register(format string, d Decoder) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.codecs[normaliseFormat(format)] = d
}

func (r *Registry) Get(format string) (Decoder, bool) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	d, ok := r.codecs[normaliseFormat(format)]
	return d, ok
}

func (r *Registry) Formats() []string {
	r.mtx.RLock()
	defer r.mtx.RUnlock()

	formats := make([]string, 0, len(r.codecs))
	for f := range r.codecs {
		formats = append(formats, f)
	}
	return formats
}

func normaliseFormat(format string) string {
	return strings.ToLower(strings.TrimPrefix(format, "."))
}
