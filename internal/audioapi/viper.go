package audioapi

import (
	"errors"
	"fmt"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice/device"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/frame"
	"github.com/spf13/viper"
)

var (
	ErrUnknownAPI = errors.New("unknown device api")
)

// Read the requested device properties from the viper keys
// samplerate, channels, sampleformat and buffersize.
func PropertiesFromViper() (audiodevice.DeviceProperties, error) {
	format, err := frame.ParseSampleFormat(viper.GetString("sampleformat"))
	if err != nil {
		return audiodevice.DeviceProperties{}, fmt.Errorf("sampleformat %q: %w", viper.GetString("sampleformat"), err)
	}

	properties := audiodevice.DeviceProperties{
		SampleRate:   viper.GetInt("samplerate"),
		NumChannels:  viper.GetInt("channels"),
		SampleFormat: format,
		BufferSize:   viper.GetInt("buffersize"),
	}
	if err := properties.Validate(); err != nil {
		return audiodevice.DeviceProperties{}, err
	}
	return properties, nil
}

// Create the AudioIODeviceAPI named by the viper key device: oto, file or dummy.
//
// The file API writes to outputfile, resampling to outputsamplerate when set,
// and stops after renderms milliseconds when set.
func NewFromViper() (AudioIODeviceAPI, error) {
	properties, err := PropertiesFromViper()
	if err != nil {
		return nil, err
	}
	underrunTimeout := viper.GetDuration("underruntimeout")

	switch name := viper.GetString("device"); name {
	case "oto":
		return NewOtoAudioIODeviceAPI(properties, underrunTimeout), nil
	case "file":
		var opts []device.FileOption
		if rate := viper.GetInt("outputsamplerate"); rate > 0 {
			opts = append(opts, device.WithOutputSampleRate(rate))
		}
		if ms := viper.GetInt64("renderms"); ms > 0 {
			opts = append(opts, device.WithMaxFrames(properties.MsToFrames(ms)))
		}
		return NewFileAudioIODeviceAPI(viper.GetString("outputfile"), properties, underrunTimeout, opts...), nil
	case "dummy":
		return NewDummyAudioIODeviceAPI(properties, underrunTimeout), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAPI, name)
	}
}
