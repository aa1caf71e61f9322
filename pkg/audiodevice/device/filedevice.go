package device

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/frame"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/google/uuid"
)

const (
	wavFormatPCM   = 1
	wavFormatFloat = 3
)

type FileOption func(*FileAudioOutputDevice)

// Write the file at a different sample rate than the engine renders at.
func WithOutputSampleRate(sampleRate int) FileOption {
	return func(d *FileAudioOutputDevice) {
		d.outputSampleRate = sampleRate
	}
}

// Stop pulling after the given number of engine frames have been written.
// Zero means no limit.
func WithMaxFrames(frames int64) FileOption {
	return func(d *FileAudioOutputDevice) {
		d.maxFrames = frames
	}
}

// --------------------------------------------------------------------------------
// FileAudioOutputDevice

// Define an AudioSinkDevice that pulls from a stream and writes the result to a .WAV file.
//
// The device has no clock of its own, so it renders as fast as the stream allows.
// The resulting file is only valid once the device is closed.
type FileAudioOutputDevice struct {
	logger *slog.Logger
	uuid   uuid.UUID

	properties       audiodevice.DeviceProperties
	outputSampleRate int
	maxFrames        int64

	encoder    *wav.Encoder
	fileHandle *os.File
	format     *goaudio.Format
	bitDepth   int
	converter  *rateConverter
	loop       *pullLoop

	framesWritten atomic.Int64
	// only touched from the pull loop goroutine
	intBuf []int

	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
}

// Create a new FileAudioOutputDevice writing to the .WAV file at audioFilePath.
// The file's bit depth follows the sample format of properties:
// u8 is written as 8 bit, i16 and u16 as signed 16 bit and f32 as 32 bit float.
func NewFileAudioOutputDevice(
	audioFilePath string,
	properties audiodevice.DeviceProperties,
	underrunTimeout time.Duration,
	opts ...FileOption,
) (*FileAudioOutputDevice, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"file output device uuid", uuid,
	)

	if err := properties.Validate(); err != nil {
		return nil, err
	}

	d := &FileAudioOutputDevice{
		logger:     logger,
		uuid:       uuid,
		properties: properties,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.outputSampleRate <= 0 {
		d.outputSampleRate = properties.SampleRate
	}

	bitDepth, audioFormat := wavLayout(properties.SampleFormat)

	f, err := os.Create(audioFilePath)
	if err != nil {
		logger.Error(
			"could not create audio file",
			"audioFile", audioFilePath,
			"err", err,
		)
		return nil, fmt.Errorf("create %s: %w", audioFilePath, err)
	}

	d.fileHandle = f
	d.bitDepth = bitDepth
	d.encoder = wav.NewEncoder(f, d.outputSampleRate, bitDepth, properties.NumChannels, audioFormat)
	d.format = &goaudio.Format{
		SampleRate:  d.outputSampleRate,
		NumChannels: properties.NumChannels,
	}
	if d.outputSampleRate != properties.SampleRate {
		d.converter = newRateConverter(properties.NumChannels, properties.SampleRate, d.outputSampleRate)
	}
	d.loop = newPullLoop(properties, underrunTimeout, logger, d.write)

	logger.Debug(
		"created audio file",
		"audioFile", audioFilePath,
		"sampleRate", d.outputSampleRate,
		"channels", properties.NumChannels,
		"bitDepth", bitDepth,
		"resampling", d.converter != nil,
	)

	return d, nil
}

func wavLayout(format frame.SampleFormat) (bitDepth int, audioFormat int) {
	switch format {
	case frame.SampleFormatUint8:
		return 8, wavFormatPCM
	case frame.SampleFormatFloat32:
		return 32, wavFormatFloat
	default:
		return 16, wavFormatPCM
	}
}

func (d *FileAudioOutputDevice) write(samples []float32) error {
	if d.maxFrames > 0 {
		remaining := d.maxFrames - d.framesWritten.Load()
		if remaining <= 0 {
			d.finish()
			return errStopPulling
		}
		samples = samples[:min(int64(len(samples)), remaining*int64(d.properties.NumChannels))]
	}
	written := d.framesWritten.Add(int64(len(samples) / d.properties.NumChannels))

	if d.converter != nil {
		samples = d.converter.process(samples)
	}

	if cap(d.intBuf) < len(samples) {
		d.intBuf = make([]int, len(samples))
	}
	data := d.intBuf[:len(samples)]
	for i, sample := range samples {
		switch d.bitDepth {
		case 8:
			data[i] = int(frame.Float32ToUint8(sample))
		case 32:
			data[i] = int(int32(math.Float32bits(sample)))
		default:
			data[i] = int(frame.Float32ToInt16(sample))
		}
	}

	err := d.encoder.Write(&goaudio.IntBuffer{
		Format:         d.format,
		Data:           data,
		SourceBitDepth: d.bitDepth,
	})
	if err != nil {
		return fmt.Errorf("write frame to file: %w", err)
	}

	if d.maxFrames > 0 && written >= d.maxFrames {
		d.finish()
		return errStopPulling
	}
	return nil
}

func (d *FileAudioOutputDevice) finish() {
	d.doneOnce.Do(func() {
		d.logger.Debug("finished writing", "frames", d.framesWritten.Load())
		close(d.done)
	})
}

// Closed once the frame limit is reached or the device is closed.
func (d *FileAudioOutputDevice) Done() <-chan struct{} {
	return d.done
}

// Number of engine frames written so far.
func (d *FileAudioOutputDevice) FramesWritten() int64 {
	return d.framesWritten.Load()
}

func (d *FileAudioOutputDevice) SetStream(sourceStream <-chan float32) error {
	return d.loop.setStream(sourceStream)
}

func (d *FileAudioOutputDevice) Play()  { d.loop.play() }
func (d *FileAudioOutputDevice) Pause() { d.loop.pause() }

// Stop pulling and finalise the file headers.
func (d *FileAudioOutputDevice) Close() {
	d.closeOnce.Do(func() {
		d.loop.close()
		if err := d.encoder.Close(); err != nil {
			d.logger.Error("error while finalising audio file", "err", err)
		}
		if err := d.fileHandle.Sync(); err != nil {
			d.logger.Error("error while syncing audio file", "err", err)
		}
		if err := d.fileHandle.Close(); err != nil {
			d.logger.Error("error while closing audio file", "err", err)
		}
		d.finish()
	})
}

func (d *FileAudioOutputDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}
