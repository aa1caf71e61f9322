package audiotest

import (
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV encodes data (interleaved, already scaled to bitDepth) as a PCM WAV
// file in a temporary directory and returns its path.
func WriteWAV(t testing.TB, name string, sampleRate, channels, bitDepth int, data []int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("could not create %s: %v", path, err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("could not write %s: %v", path, err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("could not finish %s: %v", path, err)
	}
	return path
}

// WriteConstantWAV writes frames frames of a constant 16 bit value on every channel.
func WriteConstantWAV(t testing.TB, name string, sampleRate, channels, frames int, value int16) string {
	t.Helper()

	data := make([]int, frames*channels)
	for i := range data {
		data[i] = int(value)
	}
	return WriteWAV(t, name, sampleRate, channels, 16, data)
}
