package vorbis

import (
	"bytes"
	"io"
	"testing"
)

// mockOggReader returns whole frames, like oggvorbis.Reader
type mockOggReader struct {
	channels int
	samples  []float32
}

func (m *mockOggReader) SampleRate() int { return 48000 }
func (m *mockOggReader) Channels() int   { return m.channels }

func (m *mockOggReader) Read(p []float32) (int, error) {
	if len(m.samples) == 0 {
		return 0, io.EOF
	}
	n := copy(p, m.samples)
	m.samples = m.samples[n:]
	return n, nil
}

func TestDecoder_InvalidInput(t *testing.T) {
	t.Parallel()

	if _, err := (Decoder{}).Decode(bytes.NewReader([]byte("OggS but not really"))); err == nil {
		t.Fatal("Decode() expected error for invalid input")
	}
}

func TestSource_ReadSamples_Stereo(t *testing.T) {
	t.Parallel()

	src := &source{dec: &mockOggReader{channels: 2, samples: []float32{0.1, -0.1, 0.2, -0.2, 0.3, -0.3}}}
	if src.Channels() != 2 || src.SampleRate() != 48000 {
		t.Fatalf("format = %d ch %d Hz", src.Channels(), src.SampleRate())
	}

	// an odd sized buffer is trimmed to whole frames
	dst := make([]float32, 5)
	n, err := src.ReadSamples(dst)
	if err != nil || n != 4 {
		t.Fatalf("ReadSamples() = %d, %v, want 4, nil", n, err)
	}

	n, err = src.ReadSamples(dst)
	if err != nil || n != 2 || dst[0] != 0.3 || dst[1] != -0.3 {
		t.Fatalf("ReadSamples() = %d, %v, %v", n, err, dst[:n])
	}

	if n, err := src.ReadSamples(dst); n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() at end = %d, %v, want 0, EOF", n, err)
	}
}

func TestSource_ReadSamples_BufferSmallerThanFrame(t *testing.T) {
	t.Parallel()

	src := &source{dec: &mockOggReader{channels: 2, samples: []float32{0.1, 0.1}}}
	if n, err := src.ReadSamples(make([]float32, 1)); n != 0 || err != nil {
		t.Errorf("ReadSamples() = %d, %v, want 0, nil", n, err)
	}
}
