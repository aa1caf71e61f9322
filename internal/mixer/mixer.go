// Package mixer runs the playback pipeline between source readers and the device:
// one goroutine per channel and a single mixer goroutine summing them in lock-step.
package mixer

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	ErrMixerStopped = errors.New("mixer is not running")
)

// Any producer of exactly one sample per mixer tick.
type Input interface {
	ID() string
	Stream() <-chan float32
}

// Mixer receives one sample from every input per tick, sums and clamps them,
// and sends the result on its own bounded stream.
//
// The input set is owned by the Run goroutine; inputs join through Add and
// leave when their stream is closed.
type Mixer struct {
	logger *slog.Logger
	uuid   uuid.UUID

	add    chan Input
	stream chan float32
	done   chan struct{}

	inputs  []Input
	pending []Input
	live    atomic.Int32

	// inputs only join on ticks that start a frame
	frameSize int
	ticks     uint64
}

type Option func(*Mixer)

// Number of interleaved samples per frame, so joining inputs stay channel aligned.
func WithFrameSize(samples int) Option {
	return func(m *Mixer) { m.frameSize = max(samples, 1) }
}

func NewMixer(queueSize int, opts ...Option) *Mixer {
	uuid := uuid.New()
	m := &Mixer{
		logger:    slog.Default().With("mixer uuid", uuid),
		uuid:      uuid,
		add:       make(chan Input),
		stream:    make(chan float32, max(queueSize, 1)),
		done:      make(chan struct{}),
		frameSize: 1,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Stream of mixed samples, closed when Run returns.
func (m *Mixer) Stream() <-chan float32 { return m.stream }

// Number of inputs currently being mixed.
func (m *Mixer) LiveInputs() int { return int(m.live.Load()) }

// Hand an input to the mixer goroutine. Blocks until the mixer accepts it.
func (m *Mixer) Add(ctx context.Context, input Input) error {
	select {
	case m.add <- input:
		return nil
	case <-m.done:
		return ErrMixerStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run mixes until ctx is cancelled, then closes the output stream.
func (m *Mixer) Run(ctx context.Context) {
	defer close(m.done)
	defer close(m.stream)

	m.logger.Debug("mixer started")

	for ; ; m.ticks++ {
		if m.ticks%uint64(m.frameSize) == 0 {
			m.acceptInputs()
		}

		var sum float32
		kept := m.inputs[:0]
		for _, input := range m.inputs {
			sample, ok, cancelled := m.receive(ctx, input)
			if cancelled {
				m.logger.Debug("mixer stopped")
				return
			}
			if !ok {
				m.logger.Info("input stream closed, removing from mix", "input", input.ID())
				continue
			}
			sum += sample
			kept = append(kept, input)
		}
		clear(m.inputs[len(kept):])
		m.inputs = kept
		m.live.Store(int32(len(m.inputs) + len(m.pending)))

		if !m.send(ctx, Clamp(sum)) {
			m.logger.Debug("mixer stopped")
			return
		}
	}
}

// Receive one sample from input, queueing inputs that arrive meanwhile.
func (m *Mixer) receive(ctx context.Context, input Input) (sample float32, ok bool, cancelled bool) {
	for {
		select {
		case sample, ok := <-input.Stream():
			return sample, ok, false
		case pending := <-m.add:
			m.queueInput(pending)
		case <-ctx.Done():
			return 0, false, true
		}
	}
}

// Send a mixed sample downstream, queueing inputs that arrive meanwhile.
// Returns false if ctx was cancelled first.
func (m *Mixer) send(ctx context.Context, sample float32) bool {
	for {
		select {
		case m.stream <- sample:
			return true
		case pending := <-m.add:
			m.queueInput(pending)
		case <-ctx.Done():
			return false
		}
	}
}

func (m *Mixer) queueInput(input Input) {
	m.pending = append(m.pending, input)
	m.live.Add(1)
}

// Move queued and waiting inputs into the mix. They contribute from this tick on.
func (m *Mixer) acceptInputs() {
	for drained := false; !drained; {
		select {
		case input := <-m.add:
			m.queueInput(input)
		default:
			drained = true
		}
	}

	for _, input := range m.pending {
		m.inputs = append(m.inputs, input)
		m.logger.Debug("input added to mix", "input", input.ID(), "inputs", len(m.inputs))
	}
	clear(m.pending)
	m.pending = m.pending[:0]
	m.live.Store(int32(len(m.inputs)))
}

// Clamp a mixed sample into [-1, 1]. NaN becomes silence.
func Clamp(sample float32) float32 {
	if math.IsNaN(float64(sample)) {
		return 0
	}
	return max(-1, min(1, sample))
}
