// Package audiotest provides generated decoder sources for tests.
package audiotest

import (
	"io"
	"math"
)

// MockSource generates totalFrames frames of audio from a waveform function.
// It implements both decoder.Source and decoder.Stream.
type MockSource struct {
	sampleRate  int
	channels    int
	totalFrames int
	waveform    func(frame int, channel int) float32

	// position in samples, not frames
	position int
	closed   bool
}

func NewMockSource(sampleRate, channels, totalFrames int, waveform func(frame int, channel int) float32) *MockSource {
	return &MockSource{
		sampleRate:  sampleRate,
		channels:    channels,
		totalFrames: totalFrames,
		waveform:    waveform,
	}
}

func NewConstantSource(sampleRate, channels, totalFrames int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(int, int) float32 {
		return value
	})
}

func NewSilentSource(sampleRate, channels, totalFrames int) *MockSource {
	return NewConstantSource(sampleRate, channels, totalFrames, 0)
}

func NewSineSource(sampleRate, channels, totalFrames int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(frame int, channel int) float32 {
		t := float64(frame) / float64(sampleRate)
		return float32(math.Sin(2 * math.Pi * frequency * t))
	})
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }

func (m *MockSource) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MockSource) Closed() bool { return m.closed }

func (m *MockSource) Next() (float32, bool) {
	if m.position >= m.totalFrames*m.channels {
		return 0, false
	}
	frame, channel := m.position/m.channels, m.position%m.channels
	m.position++
	return m.waveform(frame, channel), true
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	n := 0
	for n < len(dst) {
		sample, ok := m.Next()
		if !ok {
			return n, io.EOF
		}
		dst[n] = sample
		n++
	}
	return n, nil
}
