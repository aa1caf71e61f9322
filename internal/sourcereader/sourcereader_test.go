package sourcereader

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/audiotest"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/stepper"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/frame"
)

var stereo44k = audiodevice.DeviceProperties{
	SampleRate:   44100,
	NumChannels:  2,
	SampleFormat: frame.SampleFormatFloat32,
	BufferSize:   1024,
}

func drain(t *testing.T, r *SourceReader, limit int) []float32 {
	t.Helper()

	var out []float32
	for {
		sample, ok := r.Next()
		if !ok {
			return out
		}
		out = append(out, sample)
		if len(out) > limit {
			t.Fatalf("reader produced more than %d samples", limit)
		}
	}
}

// 10ms of mono 22050Hz audio fits in the first chunk: one chunk of stereo
// 44100Hz output, then the reader ends.
func TestShortClipDoublesRateAndDuplicatesChannels(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSineSource(22050, 1, 220, 441)
	r, err := New(src, stereo44k)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out := drain(t, r, 1<<16)
	if len(out) != 2*DefaultChunkSize {
		t.Fatalf("got %d samples, want %d", len(out), 2*DefaultChunkSize)
	}

	energy := 0.0
	for i := 0; i < len(out); i += 2 {
		if out[i] != out[i+1] {
			t.Fatalf("frame %d: left %v != right %v", i/2, out[i], out[i+1])
		}
		energy += float64(out[i] * out[i])
	}
	if energy == 0 {
		t.Errorf("resampled chunk is silent")
	}

	if _, ok := r.Next(); ok {
		t.Errorf("Next() after exhaustion returned ok")
	}
}

func TestRefillZeroPadsAndCountsRealFrames(t *testing.T) {
	t.Parallel()

	// 22050 -> 44100 consumes 1024 input frames per chunk
	src := audiotest.NewConstantSource(22050, 1, 1500, 0.5)
	r, err := New(src, stereo44k)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := r.Refill(); got != 1500-1024 {
		t.Fatalf("Refill() = %d, want %d", got, 1500-1024)
	}
	if len(r.input[0]) != 1024 {
		t.Fatalf("input length = %d, want 1024", len(r.input[0]))
	}
	for i, v := range r.input[0] {
		want := float32(0.5)
		if i >= 1500-1024 {
			want = 0
		}
		if v != want {
			t.Fatalf("input[0][%d] = %v, want %v", i, v, want)
		}
	}

	if got := r.Refill(); got != 0 {
		t.Errorf("Refill() after end of source = %d, want 0", got)
	}
	if _, ok := r.Next(); ok {
		t.Errorf("Next() after terminal refill returned ok")
	}
}

func TestSameLayoutPreservesLevel(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(44100, 2, 10000, func(_ int, channel int) float32 {
		if channel == 0 {
			return 0.5
		}
		return -0.25
	})
	r, err := New(src, stereo44k)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	out := drain(t, r, 1<<16)
	if len(out)%(2*DefaultChunkSize) != 0 {
		t.Fatalf("got %d samples, want whole chunks", len(out))
	}

	// skip the filter delay, check a frame from the steady state
	mid := 2 * 4096
	if math.Abs(float64(out[mid])-0.5) > 0.01 || math.Abs(float64(out[mid+1])+0.25) > 0.01 {
		t.Errorf("frame at %d = (%v, %v), want ≈(0.5, -0.25)", mid/2, out[mid], out[mid+1])
	}
}

func TestDownChannelRejected(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(44100, 6, 100)
	mono := stereo44k
	mono.NumChannels = 1

	if _, err := New(src, mono); !errors.Is(err, stepper.ErrDownChannelUnsupported) {
		t.Fatalf("New() error = %v, want %v", err, stepper.ErrDownChannelUnsupported)
	}
}

func TestInvalidTarget(t *testing.T) {
	t.Parallel()

	src := audiotest.NewSilentSource(44100, 1, 100)
	if _, err := New(src, audiodevice.DeviceProperties{NumChannels: 2}); err == nil {
		t.Fatal("New() with zero target rate succeeded")
	}
}

func TestEmptySource(t *testing.T) {
	t.Parallel()

	r, err := New(audiotest.NewSilentSource(44100, 1, 0), stereo44k)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, ok := r.Next(); ok {
		t.Errorf("Next() on an empty source returned ok")
	}
}

func TestReadSamplesAndClose(t *testing.T) {
	t.Parallel()

	src := audiotest.NewConstantSource(44100, 1, 100, 0.1)
	r, err := New(src, stereo44k, WithChunkSize(256), WithSubChunks(1))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	buf := make([]float32, 200)
	n, err := r.ReadSamples(buf)
	if n != 200 || err != nil {
		t.Fatalf("ReadSamples() = %d, %v, want 200, nil", n, err)
	}

	// one chunk of 256 stereo frames in total
	n, err = r.ReadSamples(make([]float32, 1000))
	if n != 512-200 || err != io.EOF {
		t.Fatalf("ReadSamples() = %d, %v, want %d, EOF", n, err, 512-200)
	}

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !src.Closed() {
		t.Errorf("source not closed")
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

// Rates with a large reduced ratio make the resampler produce several chunks
// from one block of input. Those chunks must be played, not mistaken for the end.
func TestUncommonRatesPlayWholeSource(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		rate int
	}{
		{name: "half rate", rate: 22050},
		{name: "near 44100", rate: 44056},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// two seconds of source audio
			total := 2 * tt.rate
			consumed := 0
			src := audiotest.NewMockSource(tt.rate, 1, total, func(frame int, _ int) float32 {
				consumed = max(consumed, frame+1)
				return 0.5
			})
			r, err := New(src, stereo44k)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}

			out := drain(t, r, 1<<20)
			if consumed != total {
				t.Errorf("consumed %d of %d source frames", consumed, total)
			}

			frames := len(out) / 2
			if want := 2 * stereo44k.SampleRate; frames < want-DefaultChunkSize || frames > want+DefaultChunkSize {
				t.Fatalf("got %d output frames, want about %d", frames, want)
			}

			mid := 2 * (frames / 2)
			if math.Abs(float64(out[mid])-0.5) > 0.01 || out[mid] != out[mid+1] {
				t.Errorf("frame %d = (%v, %v), want ≈(0.5, 0.5)", mid/2, out[mid], out[mid+1])
			}
		})
	}
}

func TestRefillFromResampledBacklogKeepsReading(t *testing.T) {
	t.Parallel()

	// 44056 -> 44100 turns one block of 11014 input frames into 11025 output frames
	src := audiotest.NewConstantSource(44056, 1, 2*44056, 0.5)
	r, err := New(src, stereo44k)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := r.Refill(); got != 0 {
		t.Fatalf("Refill() = %d, want 0 with a chunk already resampled", got)
	}
	if r.terminal {
		t.Fatal("reader is terminal while the source still has frames")
	}
	if _, ok := r.Next(); !ok {
		t.Fatal("Next() after a backlog refill returned !ok")
	}
}

// Every target frame repeats one source frame across all target channels, so
// a refill landing inside a frame would split a group of equal samples.
func TestUpChannelStaysFrameAlignedAcrossRefills(t *testing.T) {
	t.Parallel()

	const chunk = 256
	const sourceFrames = 1000

	for _, channels := range []int{2, 3, 4} {
		target := stereo44k
		target.NumChannels = channels

		src := audiotest.NewMockSource(44100, 1, sourceFrames, func(frame int, _ int) float32 {
			return float32(frame) / sourceFrames
		})
		r, err := New(src, target, WithChunkSize(chunk), WithSubChunks(1))
		if err != nil {
			t.Fatalf("1->%d: New() error = %v", channels, err)
		}

		out := drain(t, r, 1<<16)

		// four chunks hold real frames, the fifth refill finds the source empty
		if want := 4 * chunk * channels; len(out) != want {
			t.Fatalf("1->%d: got %d samples, want %d", channels, len(out), want)
		}

		distinct := 0
		for i := 0; i < len(out); i += channels {
			for c := 1; c < channels; c++ {
				if out[i+c] != out[i] {
					t.Fatalf("1->%d: frame %d channel %d = %v, want %v", channels, i/channels, c, out[i+c], out[i])
				}
			}
			if i > 0 && out[i] != out[i-channels] {
				distinct++
			}
		}
		if distinct == 0 {
			t.Errorf("1->%d: every frame has the same value", channels)
		}
	}
}
