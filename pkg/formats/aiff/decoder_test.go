package aiff

import (
	"bytes"
	"errors"
	"io"
	"testing"

	goaudio "github.com/go-audio/audio"
)

// mockAiffReader simulates the aiff.Decoder for testing
type mockAiffReader struct {
	samples []int
	offset  int
	err     error
}

func (m *mockAiffReader) PCMBuffer(buf *goaudio.IntBuffer) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	if m.offset >= len(m.samples) {
		return 0, io.EOF
	}

	n := copy(buf.Data, m.samples[m.offset:])
	m.offset += n
	return n, nil
}

func newTestSource(dec aiffReader, fullScale float32) *source {
	return &source{
		dec:        dec,
		sampleRate: 44100,
		channels:   2,
		fullScale:  fullScale,
		intBuf:     &goaudio.IntBuffer{Data: make([]int, 2)},
	}
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := Decoder{}.Decode(bytes.NewReader([]byte("This is not AIFF data")))
	if err == nil {
		t.Fatal("Decode() expected error for invalid input")
	}
}

func TestSource_ReadSamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		fullScale float32
		samples   []int
		want      []float32
	}{
		{name: "8 bit", fullScale: 128, samples: []int{-128, 0, 64, 127}, want: []float32{-1, 0, 0.5, 127.0 / 128}},
		{name: "16 bit", fullScale: 32768, samples: []int{-32768, 16384, 0, -16384}, want: []float32{-1, 0.5, 0, -0.5}},
		{name: "24 bit", fullScale: 8388608, samples: []int{4194304, -8388608}, want: []float32{0.5, -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := newTestSource(&mockAiffReader{samples: tt.samples}, tt.fullScale)

			// a buffer larger than the internal one forces a resize
			dst := make([]float32, 8)
			n, err := src.ReadSamples(dst)
			if err != nil {
				t.Fatalf("ReadSamples() error = %v", err)
			}
			if n != len(tt.want) {
				t.Fatalf("ReadSamples() = %d, want %d", n, len(tt.want))
			}
			for i, want := range tt.want {
				if dst[i] != want {
					t.Errorf("dst[%d] = %v, want %v", i, dst[i], want)
				}
			}

			if n, err := src.ReadSamples(dst); n != 0 || err != io.EOF {
				t.Errorf("ReadSamples() at end = %d, %v, want 0, EOF", n, err)
			}
		})
	}
}

func TestSource_ReadSamples_Error(t *testing.T) {
	t.Parallel()

	src := newTestSource(&mockAiffReader{err: io.ErrUnexpectedEOF}, 32768)
	_, err := src.ReadSamples(make([]float32, 4))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSamples() error = %v, want %v", err, io.ErrUnexpectedEOF)
	}
}

func TestSource_ReadSamples_EmptyBuffer(t *testing.T) {
	t.Parallel()

	src := newTestSource(&mockAiffReader{samples: []int{1, 2}}, 32768)
	if n, err := src.ReadSamples(nil); n != 0 || err != nil {
		t.Errorf("ReadSamples(nil) = %d, %v, want 0, nil", n, err)
	}
}
