package device

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/frame"
)

var (
	ErrStreamAlreadySet = errors.New("stream already set")
	ErrNoStream         = errors.New("no stream set")
	ErrDeviceClosed     = errors.New("device closed")

	// returned by a bufferConsumer to end the loop without an error
	errStopPulling = errors.New("stop pulling")
)

// Callback receiving one device buffer of decoded samples at a time.
// The slice is reused between calls.
type bufferConsumer func(samples []float32) error

// pullLoop drives a device without its own audio clock: while playing it
// reads BufferSize frames at a time through a StreamReader, decodes them
// back from the device sample format and hands them to consume.
type pullLoop struct {
	logger          *slog.Logger
	properties      audiodevice.DeviceProperties
	underrunTimeout time.Duration
	consume         bufferConsumer

	mtx    sync.Mutex
	reader *audiodevice.StreamReader
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func newPullLoop(
	properties audiodevice.DeviceProperties,
	underrunTimeout time.Duration,
	logger *slog.Logger,
	consume bufferConsumer,
) *pullLoop {
	return &pullLoop{
		logger:          logger,
		properties:      properties,
		underrunTimeout: underrunTimeout,
		consume:         consume,
	}
}

func (l *pullLoop) setStream(sourceStream <-chan float32) error {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.closed {
		return ErrDeviceClosed
	}
	if l.reader != nil {
		return ErrStreamAlreadySet
	}
	l.reader = audiodevice.NewStreamReader(sourceStream, l.properties, l.underrunTimeout, l.logger)
	return nil
}

func (l *pullLoop) play() {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	if l.closed || l.reader == nil || l.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	l.wg.Add(1)
	go l.run(ctx, l.reader)
}

// Stop the loop and wait for the buffer in flight to be consumed.
func (l *pullLoop) pause() {
	l.mtx.Lock()
	cancel := l.cancel
	l.cancel = nil
	l.mtx.Unlock()

	if cancel != nil {
		cancel()
	}
	l.wg.Wait()
}

// Returns false if the loop was already closed.
func (l *pullLoop) close() bool {
	l.pause()

	l.mtx.Lock()
	defer l.mtx.Unlock()
	if l.closed {
		return false
	}
	l.closed = true
	return true
}

func (l *pullLoop) run(ctx context.Context, reader io.Reader) {
	defer l.wg.Done()

	bps := l.properties.SampleFormat.BytesPerSample()
	raw := make([]byte, l.properties.BufferSize*l.properties.NumChannels*bps)
	samples := make([]float32, l.properties.BufferSize*l.properties.NumChannels)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if _, err := io.ReadFull(reader, raw); err != nil {
			l.logger.Error("failed to read from stream", "err", err)
			return
		}
		for i := range samples {
			samples[i] = frame.DecodeSample(l.properties.SampleFormat, raw[i*bps:])
		}
		if err := l.consume(samples); errors.Is(err, errStopPulling) {
			return
		} else if err != nil {
			l.logger.Error("failed to consume buffer", "err", err)
			return
		}
	}
}
