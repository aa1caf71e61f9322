// Package formats wires the format decoders into a decoder registry and opens
// audio files as decoder sources.
package formats

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/decoder"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/formats/aiff"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/formats/mp3"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/formats/vorbis"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/formats/wav"
)

// Create a new registry holding every decoder this module ships, keyed by file extension.
func NewDefaultRegistry() *decoder.Registry {
	r := decoder.NewRegistry()
	r.Register("wav", wav.Decoder{})
	r.Register("wave", wav.Decoder{})
	r.Register("aif", aiff.Decoder{})
	r.Register("aiff", aiff.Decoder{})
	r.Register("mp3", mp3.Decoder{})
	r.Register("ogg", vorbis.Decoder{})
	r.Register("oga", vorbis.Decoder{})
	return r
}

var defaultRegistry = NewDefaultRegistry()

// Open the audio file at path with the default registry.
func Open(path string) (decoder.Source, error) {
	return OpenWith(defaultRegistry, path, slog.Default())
}

// Open the audio file at path, choosing its decoder by extension.
// Every failure is returned as a *decoder.DecodeError.
func OpenWith(registry *decoder.Registry, path string, logger *slog.Logger) (decoder.Source, error) {
	ext := filepath.Ext(path)
	dec, ok := registry.Get(ext)
	if !ok {
		return nil, &decoder.DecodeError{Path: path, Err: fmt.Errorf("%w: %q", decoder.ErrUnknownFormat, ext)}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, &decoder.DecodeError{Path: path, Err: err}
	}

	stream, err := dec.Decode(f)
	if err != nil {
		f.Close()
		return nil, &decoder.DecodeError{Path: path, Err: err}
	}

	if stream.Channels() <= 0 || stream.SampleRate() <= 0 {
		stream.Close()
		f.Close()
		return nil, &decoder.DecodeError{
			Path: path,
			Err:  fmt.Errorf("%w: %d channels at %d Hz", decoder.ErrNoPlayableTrack, stream.Channels(), stream.SampleRate()),
		}
	}

	logger.Debug(
		"opened audio file",
		"path", path,
		"sampleRate", stream.SampleRate(),
		"channels", stream.Channels(),
	)

	return decoder.NewSource(&fileStream{Stream: stream, file: f}, logger.With("path", path)), nil
}

// fileStream closes the backing file along with the stream.
type fileStream struct {
	decoder.Stream
	file *os.File
}

func (s *fileStream) Close() error {
	return errors.Join(s.Stream.Close(), s.file.Close())
}
