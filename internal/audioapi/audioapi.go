package audioapi

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/frame"
)

var (
	ErrNoDefaultDevice = errors.New("no default device available")
	ErrNoDeviceWithID  = errors.New("no device with specified ID")
)

type AudioIODevice struct {
	// The ID of the device
	//
	// Defined by the AudioIODeviceAPI, and the canonical way to reference
	// the device when asking the API to initialise it.
	ID int

	// A human-readable name for the device, if one exists.
	// Not necessary, and not canonical.
	Name string

	// The properties the device opens with when nothing else is requested.
	DeviceProperties audiodevice.DeviceProperties

	// Sample formats the device accepts, most preferred first.
	SupportedFormats []frame.SampleFormat

	// Upper bound on the channel count, 0 if unbounded.
	MaxChannels int
}

func (device AudioIODevice) String() string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "ID:          %d\n", device.ID)
	fmt.Fprintf(&sb, "Name:        %s\n", device.Name)
	fmt.Fprintf(&sb, "SampleRate:  %d\n", device.DeviceProperties.SampleRate)
	fmt.Fprintf(&sb, "NumChannels: %d\n", device.DeviceProperties.NumChannels)
	fmt.Fprintf(&sb, "Format:      %s\n", device.DeviceProperties.SampleFormat)
	fmt.Fprintf(&sb, "BufferSize:  %d\n", device.DeviceProperties.BufferSize)
	return sb.String()
}

// Resolve the properties to open the device with.
//
// Each requested field wins when set and supported by the device; zero
// fields and unsupported formats fall back to the device's own properties.
func (device AudioIODevice) Negotiate(requested audiodevice.DeviceProperties) audiodevice.DeviceProperties {
	negotiated := device.DeviceProperties

	if requested.SampleRate > 0 {
		negotiated.SampleRate = requested.SampleRate
	}
	if requested.NumChannels > 0 {
		negotiated.NumChannels = requested.NumChannels
	}
	if device.MaxChannels > 0 {
		negotiated.NumChannels = min(negotiated.NumChannels, device.MaxChannels)
	}
	if requested.BufferSize > 0 {
		negotiated.BufferSize = requested.BufferSize
	}

	if requested.SampleFormat != "" {
		negotiated.SampleFormat = requested.SampleFormat
	}
	if len(device.SupportedFormats) > 0 && !slices.Contains(device.SupportedFormats, negotiated.SampleFormat) {
		negotiated.SampleFormat = device.SupportedFormats[0]
	}

	return negotiated
}

// Define an API to interface with output devices.
// Intended to be an abstract way to:
// - Query existing output devices
// - Initialise an output device as an AudioSinkDevice with negotiated properties
type AudioIODeviceAPI interface {
	OutputDevices() []AudioIODevice
	DefaultOutputDevice() (AudioIODevice, error)
	InitOutputDevice(AudioIODevice, audiodevice.DeviceProperties) (audiodevice.AudioSinkDevice, error)
}

// The first listed output device, shared by the single-device APIs.
func firstOutputDevice(api AudioIODeviceAPI) (AudioIODevice, error) {
	devices := api.OutputDevices()
	if len(devices) == 0 {
		return AudioIODevice{}, ErrNoDefaultDevice
	}
	return devices[0], nil
}
