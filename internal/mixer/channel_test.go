package mixer

import (
	"context"
	"testing"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/audiotest"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/playback"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/sourcereader"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/frame"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/model"
)

var stereo44k = audiodevice.DeviceProperties{
	SampleRate:   44100,
	NumChannels:  2,
	SampleFormat: frame.SampleFormatFloat32,
	BufferSize:   64,
}

func playableClip(t *testing.T, src *audiotest.MockSource, path string) playback.PlayableClip {
	t.Helper()

	reader, err := sourcereader.New(src, stereo44k)
	if err != nil {
		t.Fatalf("sourcereader.New() error = %v", err)
	}
	return playback.PlayableClip{Reader: reader, Clip: model.Clip{Path: path}}
}

func TestChannelPlaysFirstClipThenSilence(t *testing.T) {
	t.Parallel()

	first := audiotest.NewConstantSource(44100, 1, 100, 0.5)
	second := audiotest.NewConstantSource(44100, 1, 100, 0.5)

	clips := []playback.PlayableClip{
		playableClip(t, first, "first.wav"),
		playableClip(t, second, "second.wav"),
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := NewChannel("chan-1", clips, stereo44k.QueueSize())

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	// one chunk from the first clip, then silence for as long as we listen
	chunk := receiveN(t, c.Stream(), 2*sourcereader.DefaultChunkSize)
	energy := float32(0)
	for _, s := range chunk {
		energy += s * s
	}
	if energy == 0 {
		t.Errorf("first chunk is silent")
	}

	for i, s := range receiveN(t, c.Stream(), 3*2*sourcereader.DefaultChunkSize) {
		if s != 0 {
			t.Fatalf("sample %d after the clip = %v, want 0", i, s)
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	for range c.Stream() {
	}
	if !first.Closed() || !second.Closed() {
		t.Errorf("clips not closed on shutdown: first=%v second=%v", first.Closed(), second.Closed())
	}
}

func TestChannelWithoutClipsIsSilent(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := NewChannel("empty", nil, 8)
	go c.Run(ctx)

	for i, s := range receiveN(t, c.Stream(), 64) {
		if s != 0 {
			t.Fatalf("sample %d = %v, want 0", i, s)
		}
	}
}

// Four channels each playing 0.9 mix to a clamped 1.0.
func TestChannelsIntoMixerClamp(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewMixer(stereo44k.QueueSize())
	go m.Run(ctx)

	for range 4 {
		src := audiotest.NewConstantSource(44100, 2, 20000, 0.9)
		c := NewChannel("loud", []playback.PlayableClip{playableClip(t, src, "loud.wav")}, stereo44k.QueueSize())
		go c.Run(ctx)
		if err := m.Add(ctx, c); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	waitFor(t, func() bool { return m.LiveInputs() == 4 })

	// past the resampler's filter delay every channel sits near 0.9
	out := receiveN(t, m.Stream(), 3*2*sourcereader.DefaultChunkSize)
	for i, s := range out {
		if s < -1 || s > 1 {
			t.Fatalf("sample %d = %v outside [-1, 1]", i, s)
		}
	}
	if last := out[len(out)-1]; last != 1 {
		t.Errorf("steady state mix = %v, want 1", last)
	}
}

func TestChannelVolume(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	src := audiotest.NewConstantSource(44100, 2, 20000, 0.5)
	c := NewChannel("quiet", []playback.PlayableClip{playableClip(t, src, "quiet.wav")}, stereo44k.QueueSize())
	c.SetVolume(0.5)
	go c.Run(ctx)

	out := receiveN(t, c.Stream(), 8200)
	if got := out[8192]; got < 0.24 || got > 0.26 {
		t.Errorf("sample 8192 = %v, want ≈0.25", got)
	}

	c.SetVolume(-1)
	if got := c.Volume(); got != 0 {
		t.Errorf("Volume() after negative SetVolume = %v, want 0", got)
	}
}
