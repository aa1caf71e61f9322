package audioapi

import (
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice/device"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/frame"
)

// An API with a single output device rendering the mix into a .WAV file.
type FileAudioIODeviceAPI struct {
	path            string
	properties      audiodevice.DeviceProperties
	underrunTimeout time.Duration
	fileOpts        []device.FileOption
}

func NewFileAudioIODeviceAPI(
	path string,
	properties audiodevice.DeviceProperties,
	underrunTimeout time.Duration,
	opts ...device.FileOption,
) FileAudioIODeviceAPI {
	return FileAudioIODeviceAPI{
		path:            path,
		properties:      properties,
		underrunTimeout: underrunTimeout,
		fileOpts:        opts,
	}
}

func (api FileAudioIODeviceAPI) OutputDevices() []AudioIODevice {
	return []AudioIODevice{
		{
			ID:               0,
			Name:             api.path,
			DeviceProperties: api.properties,
			SupportedFormats: []frame.SampleFormat{
				frame.SampleFormatFloat32,
				frame.SampleFormatInt16,
				frame.SampleFormatUint16,
				frame.SampleFormatUint8,
			},
		},
	}
}

func (api FileAudioIODeviceAPI) DefaultOutputDevice() (AudioIODevice, error) {
	return firstOutputDevice(api)
}

func (api FileAudioIODeviceAPI) InitOutputDevice(
	ioDevice AudioIODevice,
	properties audiodevice.DeviceProperties,
) (audiodevice.AudioSinkDevice, error) {
	if ioDevice.ID != 0 {
		return nil, ErrNoDeviceWithID
	}
	return device.NewFileAudioOutputDevice(api.path, properties, api.underrunTimeout, api.fileOpts...)
}
