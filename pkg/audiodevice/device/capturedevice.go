package device

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/google/uuid"
)

// An AudioSinkDevice that records what it pulls into memory, up to a limit.
// Samples past the limit are discarded.
type CaptureAudioSinkDevice struct {
	logger     *slog.Logger
	properties audiodevice.DeviceProperties
	loop       *pullLoop
	limit      int

	mtx      sync.Mutex
	captured []float32
	// closed and replaced every time new samples arrive
	updated chan struct{}
}

// Create a new CaptureAudioSinkDevice keeping at most limit samples.
func NewCaptureAudioSinkDevice(
	properties audiodevice.DeviceProperties,
	underrunTimeout time.Duration,
	limit int,
) *CaptureAudioSinkDevice {
	d := &CaptureAudioSinkDevice{
		logger:     slog.Default().With("capture output device uuid", uuid.New()),
		properties: properties,
		limit:      limit,
		captured:   make([]float32, 0, limit),
		updated:    make(chan struct{}),
	}
	d.loop = newPullLoop(properties, underrunTimeout, d.logger, d.record)
	return d
}

func (d *CaptureAudioSinkDevice) record(samples []float32) error {
	d.mtx.Lock()
	defer d.mtx.Unlock()

	if room := d.limit - len(d.captured); room > 0 {
		d.captured = append(d.captured, samples[:min(room, len(samples))]...)
		close(d.updated)
		d.updated = make(chan struct{})
	}
	return nil
}

// Copy of everything captured so far.
func (d *CaptureAudioSinkDevice) Samples() []float32 {
	d.mtx.Lock()
	defer d.mtx.Unlock()
	return append([]float32(nil), d.captured...)
}

// Block until at least n samples are captured, returning them.
func (d *CaptureAudioSinkDevice) WaitForSamples(ctx context.Context, n int) ([]float32, error) {
	for {
		d.mtx.Lock()
		if len(d.captured) >= n {
			samples := append([]float32(nil), d.captured...)
			d.mtx.Unlock()
			return samples, nil
		}
		updated := d.updated
		d.mtx.Unlock()

		select {
		case <-updated:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (d *CaptureAudioSinkDevice) SetStream(sourceStream <-chan float32) error {
	return d.loop.setStream(sourceStream)
}

func (d *CaptureAudioSinkDevice) Play()  { d.loop.play() }
func (d *CaptureAudioSinkDevice) Pause() { d.loop.pause() }

func (d *CaptureAudioSinkDevice) Close() {
	if d.loop.close() {
		d.logger.Debug("capture device closed", "captured", len(d.Samples()))
	}
}

func (d *CaptureAudioSinkDevice) GetDeviceProperties() audiodevice.DeviceProperties {
	return d.properties
}
