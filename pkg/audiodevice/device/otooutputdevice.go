package device

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/frame"
	"github.com/ebitengine/oto/v3"
	"github.com/google/uuid"
)

var (
	ErrUnsupportedFormat = errors.New("sample format not supported by the host audio api")
	ErrContextMismatch   = errors.New("host audio context already opened with different properties")
)

// oto allows a single context per process; every output device shares it.
var (
	otoMtx        sync.Mutex
	otoContext    *oto.Context
	otoProperties audiodevice.DeviceProperties
)

// Formats the host audio api can open a stream with, in order of preference.
func OtoSampleFormats() []frame.SampleFormat {
	return []frame.SampleFormat{frame.SampleFormatFloat32, frame.SampleFormatInt16, frame.SampleFormatUint8}
}

func otoFormat(format frame.SampleFormat) (oto.Format, error) {
	switch format {
	case frame.SampleFormatFloat32:
		return oto.FormatFloat32LE, nil
	case frame.SampleFormatInt16:
		return oto.FormatSignedInt16LE, nil
	case frame.SampleFormatUint8:
		return oto.FormatUnsignedInt8, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func sharedOtoContext(properties audiodevice.DeviceProperties) (*oto.Context, error) {
	otoMtx.Lock()
	defer otoMtx.Unlock()

	if otoContext != nil {
		if otoProperties != properties {
			return nil, fmt.Errorf("%w: open with %+v, requested %+v", ErrContextMismatch, otoProperties, properties)
		}
		return otoContext, nil
	}

	format, err := otoFormat(properties.SampleFormat)
	if err != nil {
		return nil, err
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   properties.SampleRate,
		ChannelCount: properties.NumChannels,
		Format:       format,
		BufferSize:   time.Duration(properties.BufferSize) * time.Second / time.Duration(properties.SampleRate),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create audio context: %w", err)
	}
	<-ready

	otoContext = ctx
	otoProperties = properties
	return ctx, nil
}

// --------------------------------------------------------------------------------

// OtoOutputDevice plays audio to speakers through the platform audio api.
// It implements the AudioSinkDevice interface.
type OtoOutputDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	context         *oto.Context
	properties      audiodevice.DeviceProperties
	underrunTimeout time.Duration

	mtx    sync.Mutex
	player *oto.Player

	shutdownOnce sync.Once
}

// Create a new OtoOutputDevice on the default output device.
// Only 1 or 2 channels and the formats of OtoSampleFormats are supported.
func NewOtoOutputDevice(properties audiodevice.DeviceProperties, underrunTimeout time.Duration) (*OtoOutputDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"oto output device uuid", uuid,
	)

	if err := properties.Validate(); err != nil {
		return nil, err
	}
	if properties.NumChannels > 2 {
		return nil, fmt.Errorf("%w: %d channels", audiodevice.ErrInvalidProperties, properties.NumChannels)
	}

	ctx, err := sharedOtoContext(properties)
	if err != nil {
		logger.Error("failed to open audio context", "err", err)
		return nil, err
	}

	logger.Debug(
		"initialized oto output device",
		"sampleRate", properties.SampleRate,
		"channels", properties.NumChannels,
		"format", properties.SampleFormat,
		"bufferSize", properties.BufferSize,
	)

	return &OtoOutputDevice{
		logger:          logger,
		uuid:            uuid,
		context:         ctx,
		properties:      properties,
		underrunTimeout: underrunTimeout,
	}, nil
}

// SetStream wires the stream into a player. The player pulls from the
// platform's audio thread once Play is called.
func (d *OtoOutputDevice) SetStream(sourceStream <-chan float32) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if d.player != nil {
		return ErrStreamAlreadySet
	}

	reader := audiodevice.NewStreamReader(sourceStream, d.properties, d.underrunTimeout, d.logger)
	d.player = d.context.NewPlayer(reader)
	d.player.SetBufferSize(d.properties.BufferSize * d.properties.NumChannels * d.properties.SampleFormat.BytesPerSample())
	return nil
}

func (d *OtoOutputDevice) Play() {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.player == nil {
		d.logger.Warn("play called before a stream was set")
		return
	}
	d.player.Play()
}

func (d *OtoOutputDevice) Pause() {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	if d.player != nil {
		d.player.Pause()
	}
}

// Close stops the player. The shared context stays open for later devices.
func (d *OtoOutputDevice) Close() {
	d.logger.Debug("shutdown called")
	d.shutdownOnce.Do(func() {
		d.mtx.Lock()
		defer d.mtx.Unlock()
		if d.player == nil {
			return
		}
		d.player.Pause()
		if err := d.player.Close(); err != nil {
			d.logger.Error("error closing player", "err", err)
		}
		d.logger.Info("oto output device closed")
	})
}

func (d *OtoOutputDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}
