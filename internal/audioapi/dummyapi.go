package audioapi

import (
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice/device"
)

// A dummy API that lists only one output device, which pulls every
// buffer and does nothing with it.
//
// This API is intended to be used in testing only!
type DummyAudioIODeviceAPI struct {
	properties      audiodevice.DeviceProperties
	underrunTimeout time.Duration
}

func NewDummyAudioIODeviceAPI(properties audiodevice.DeviceProperties, underrunTimeout time.Duration) DummyAudioIODeviceAPI {
	return DummyAudioIODeviceAPI{
		properties:      properties,
		underrunTimeout: underrunTimeout,
	}
}

func (api DummyAudioIODeviceAPI) OutputDevices() []AudioIODevice {
	return []AudioIODevice{
		{
			ID:               0,
			Name:             "DummyOutput",
			DeviceProperties: api.properties,
		},
	}
}

func (api DummyAudioIODeviceAPI) DefaultOutputDevice() (AudioIODevice, error) {
	return firstOutputDevice(api)
}

func (api DummyAudioIODeviceAPI) InitOutputDevice(
	ioDevice AudioIODevice,
	properties audiodevice.DeviceProperties,
) (audiodevice.AudioSinkDevice, error) {
	if ioDevice.ID != 0 {
		return nil, ErrNoDeviceWithID
	}
	if err := properties.Validate(); err != nil {
		return nil, err
	}
	return device.NewDummyAudioSinkDevice(properties, api.underrunTimeout), nil
}

// --------------------------------------------------------------------------------

// Like the dummy API, but every initialised device records what it pulls.
//
// This API is intended to be used in testing only!
type CaptureAudioIODeviceAPI struct {
	properties      audiodevice.DeviceProperties
	underrunTimeout time.Duration
	limit           int

	mtx     sync.Mutex
	devices []*device.CaptureAudioSinkDevice
}

// Each device keeps at most limit samples.
func NewCaptureAudioIODeviceAPI(
	properties audiodevice.DeviceProperties,
	underrunTimeout time.Duration,
	limit int,
) *CaptureAudioIODeviceAPI {
	return &CaptureAudioIODeviceAPI{
		properties:      properties,
		underrunTimeout: underrunTimeout,
		limit:           limit,
	}
}

func (api *CaptureAudioIODeviceAPI) OutputDevices() []AudioIODevice {
	return []AudioIODevice{
		{
			ID:               0,
			Name:             "CaptureOutput",
			DeviceProperties: api.properties,
		},
	}
}

func (api *CaptureAudioIODeviceAPI) DefaultOutputDevice() (AudioIODevice, error) {
	return firstOutputDevice(api)
}

func (api *CaptureAudioIODeviceAPI) InitOutputDevice(
	ioDevice AudioIODevice,
	properties audiodevice.DeviceProperties,
) (audiodevice.AudioSinkDevice, error) {
	if ioDevice.ID != 0 {
		return nil, ErrNoDeviceWithID
	}
	if err := properties.Validate(); err != nil {
		return nil, err
	}

	d := device.NewCaptureAudioSinkDevice(properties, api.underrunTimeout, api.limit)

	api.mtx.Lock()
	defer api.mtx.Unlock()
	api.devices = append(api.devices, d)
	return d, nil
}

// Every device initialised so far, oldest first.
func (api *CaptureAudioIODeviceAPI) Devices() []*device.CaptureAudioSinkDevice {
	api.mtx.Lock()
	defer api.mtx.Unlock()
	return append([]*device.CaptureAudioSinkDevice(nil), api.devices...)
}
