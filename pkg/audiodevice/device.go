package audiodevice

import (
	"errors"
	"fmt"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/frame"
)

var (
	ErrInvalidProperties = errors.New("invalid device properties")
)

// Negotiated stream configuration of an output device.
//
// BufferSize is in frames; it also sizes every queue in the playback pipeline.
type DeviceProperties struct {
	SampleRate   int
	NumChannels  int
	SampleFormat frame.SampleFormat
	BufferSize   int
}

func (p DeviceProperties) Validate() error {
	if p.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidProperties, p.SampleRate)
	}
	if p.NumChannels <= 0 {
		return fmt.Errorf("%w: channel count %d", ErrInvalidProperties, p.NumChannels)
	}
	if p.SampleFormat.BytesPerSample() == 0 {
		return fmt.Errorf("%w: sample format %q", ErrInvalidProperties, p.SampleFormat)
	}
	if p.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size %d", ErrInvalidProperties, p.BufferSize)
	}
	return nil
}

// Capacity, in samples, of the queues between channels, mixer and device.
func (p DeviceProperties) QueueSize() int {
	return max(p.BufferSize*p.NumChannels, 1)
}

// Convert a duration in milliseconds to a frame count at this sample rate.
// The result truncates, e.g. 1ms at 44100Hz is 44 frames.
func (p DeviceProperties) MsToFrames(ms int64) int64 {
	return ms * int64(p.SampleRate) / 1000
}

// Convert a frame count to whole milliseconds at this sample rate, truncating.
func (p DeviceProperties) FramesToMs(frames int64) int64 {
	if p.SampleRate == 0 {
		return 0
	}
	return frames * 1000 / int64(p.SampleRate)
}

// Interface for audio sink devices, e.g. speakers
//
// Sink devices pull interleaved float32 samples from a stream and convert them
// to their own sample format.
type AudioSinkDevice interface {
	// Set the source stream of this audio device.
	//
	// One sample per device channel per frame will be pulled from the given channel.
	// When the stream is closed or runs dry, the device plays silence.
	SetStream(sourceStream <-chan float32) error

	// Start or resume pulling from the stream.
	Play()
	// Stop pulling from the stream without releasing the device.
	Pause()

	// Release the device. Safe to call more than once.
	Close()

	GetDeviceProperties() DeviceProperties
}
