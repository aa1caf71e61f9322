package audioapi

import (
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice/device"
)

// The platform audio api. oto exposes only the system default output,
// so this API lists a single device.
type OtoAudioIODeviceAPI struct {
	properties      audiodevice.DeviceProperties
	underrunTimeout time.Duration
}

// properties are the defaults reported for the system output.
func NewOtoAudioIODeviceAPI(properties audiodevice.DeviceProperties, underrunTimeout time.Duration) OtoAudioIODeviceAPI {
	return OtoAudioIODeviceAPI{
		properties:      properties,
		underrunTimeout: underrunTimeout,
	}
}

func (api OtoAudioIODeviceAPI) OutputDevices() []AudioIODevice {
	return []AudioIODevice{
		{
			ID:               0,
			Name:             "SystemDefault",
			DeviceProperties: api.properties,
			SupportedFormats: device.OtoSampleFormats(),
			MaxChannels:      2,
		},
	}
}

func (api OtoAudioIODeviceAPI) DefaultOutputDevice() (AudioIODevice, error) {
	return firstOutputDevice(api)
}

func (api OtoAudioIODeviceAPI) InitOutputDevice(
	ioDevice AudioIODevice,
	properties audiodevice.DeviceProperties,
) (audiodevice.AudioSinkDevice, error) {
	if ioDevice.ID != 0 {
		return nil, ErrNoDeviceWithID
	}
	return device.NewOtoOutputDevice(properties, api.underrunTimeout)
}
