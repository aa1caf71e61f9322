package audiodevice

import (
	"encoding/binary"
	"io"
	"math"
	"testing"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/frame"
)

func stereo(format frame.SampleFormat) DeviceProperties {
	return DeviceProperties{SampleRate: 44100, NumChannels: 2, SampleFormat: format, BufferSize: 16}
}

func decodeFloats(p []byte) []float32 {
	out := make([]float32, len(p)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*4:]))
	}
	return out
}

func TestStreamReaderPassesSamples(t *testing.T) {
	t.Parallel()

	stream := make(chan float32, 8)
	for _, s := range []float32{0.1, -0.1, 0.2, -0.2} {
		stream <- s
	}
	close(stream)

	r := NewStreamReader(stream, stereo(frame.SampleFormatFloat32), 10*time.Millisecond, nil)

	buf := make([]byte, 8*4)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != len(buf) {
		t.Fatalf("Read() = %d, want %d", n, len(buf))
	}

	want := []float32{0.1, -0.1, 0.2, -0.2, 0, 0, 0, 0}
	got := decodeFloats(buf)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestStreamReaderUnderrunSilence(t *testing.T) {
	t.Parallel()

	stream := make(chan float32, 4)
	stream <- 0.5
	stream <- 0.5

	r := NewStreamReader(stream, stereo(frame.SampleFormatFloat32), 5*time.Millisecond, nil)

	buf := make([]byte, 6*4)
	for i := range buf {
		buf[i] = 0xff
	}
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != len(buf) {
		t.Fatalf("Read() = %d, want %d", n, len(buf))
	}

	want := []float32{0.5, 0.5, 0, 0, 0, 0}
	got := decodeFloats(buf)
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}

	// the stream is still open, later samples are picked up
	stream <- 0.25
	stream <- 0.25
	n, err = r.Read(buf[:8])
	if err != nil || n != 8 {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	if got := decodeFloats(buf[:8]); got[0] != 0.25 || got[1] != 0.25 {
		t.Errorf("samples after underrun = %v, want [0.25 0.25]", got)
	}
}

func TestStreamReaderKeepsFrameAlignment(t *testing.T) {
	t.Parallel()

	stream := make(chan float32, 4)
	stream <- 0.5

	r := NewStreamReader(stream, stereo(frame.SampleFormatFloat32), 5*time.Millisecond, nil)

	go func() {
		time.Sleep(30 * time.Millisecond)
		stream <- -0.5
	}()

	// the second half of the frame arrives after several timeouts
	buf := make([]byte, 2*4)
	n, err := r.Read(buf)
	if err != nil || n != len(buf) {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	got := decodeFloats(buf)
	if got[0] != 0.5 || got[1] != -0.5 {
		t.Errorf("frame = %v, want [0.5 -0.5]", got)
	}
}

func TestStreamReaderIntegerSilence(t *testing.T) {
	t.Parallel()

	stream := make(chan float32)
	close(stream)

	r := NewStreamReader(stream, stereo(frame.SampleFormatUint8), time.Millisecond, nil)

	buf := make([]byte, 4)
	n, err := r.Read(buf)
	if err != nil || n != 4 {
		t.Fatalf("Read() = %d, %v", n, err)
	}
	for i, b := range buf {
		if b != 128 {
			t.Errorf("byte %d = %d, want 128", i, b)
		}
	}
}

func TestStreamReaderShortBuffer(t *testing.T) {
	t.Parallel()

	r := NewStreamReader(make(chan float32), stereo(frame.SampleFormatFloat32), time.Millisecond, nil)
	if _, err := r.Read(make([]byte, 3)); err != io.ErrShortBuffer {
		t.Errorf("Read() error = %v, want %v", err, io.ErrShortBuffer)
	}
}
