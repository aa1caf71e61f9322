package device

import (
	"log/slog"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/google/uuid"
)

// An AudioSinkDevice that pulls and discards every buffer.
//
// A minimal example of the architecture of an AudioSinkDevice, useful in testing.
type DummyAudioSinkDevice struct {
	properties audiodevice.DeviceProperties
	loop       *pullLoop
}

func NewDummyAudioSinkDevice(properties audiodevice.DeviceProperties, underrunTimeout time.Duration) *DummyAudioSinkDevice {
	logger := slog.Default().With("dummy output device uuid", uuid.New())
	return &DummyAudioSinkDevice{
		properties: properties,
		loop: newPullLoop(properties, underrunTimeout, logger, func([]float32) error {
			return nil
		}),
	}
}

func (d *DummyAudioSinkDevice) SetStream(sourceStream <-chan float32) error {
	return d.loop.setStream(sourceStream)
}

func (d *DummyAudioSinkDevice) Play()  { d.loop.play() }
func (d *DummyAudioSinkDevice) Pause() { d.loop.pause() }
func (d *DummyAudioSinkDevice) Close() { d.loop.close() }

func (d *DummyAudioSinkDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}
