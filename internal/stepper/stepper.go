// Package stepper maps a running count of emitted samples to the (channel, sample)
// position that should be read from a set of planar, per-channel buffers.
//
// The mapping depends on how the source channel count relates to the target
// channel count:
//   - OneToOne: standard interleaved stepping, channel index wraps and bumps the sample index.
//   - UpChannel: every source sample is emitted targetChannels times before moving on,
//     e.g. mono to stereo duplicates each sample across both outputs.
//   - DownChannel: not supported, construction fails.
package stepper

import (
	"errors"
	"fmt"
)

type Kind int

const (
	OneToOne Kind = iota
	UpChannel
	DownChannel
)

func (k Kind) String() string {
	switch k {
	case OneToOne:
		return "OneToOne"
	case UpChannel:
		return "UpChannel"
	case DownChannel:
		return "DownChannel"
	default:
		return "Unknown"
	}
}

var (
	ErrInvalidChannelCount    = errors.New("channel counts must be positive")
	ErrDownChannelUnsupported = errors.New("down channel conversion is not supported")
)

// Classify the conversion between the two channel counts.
func KindFor(sourceChannels, targetChannels int) Kind {
	switch {
	case sourceChannels == targetChannels:
		return OneToOne
	case sourceChannels < targetChannels:
		return UpChannel
	default:
		return DownChannel
	}
}

// Stepper is a small value type; copy it freely.
type Stepper struct {
	kind           Kind
	sourceChannels int
	targetChannels int

	channelIndex    int
	sampleIndex     int
	samplesAdvanced int
}

func New(sourceChannels, targetChannels int) (Stepper, error) {
	if sourceChannels <= 0 || targetChannels <= 0 {
		return Stepper{}, fmt.Errorf("%w: source=%d target=%d", ErrInvalidChannelCount, sourceChannels, targetChannels)
	}

	kind := KindFor(sourceChannels, targetChannels)
	if kind == DownChannel {
		return Stepper{}, fmt.Errorf("%w: source=%d target=%d", ErrDownChannelUnsupported, sourceChannels, targetChannels)
	}

	return Stepper{
		kind:           kind,
		sourceChannels: sourceChannels,
		targetChannels: targetChannels,
	}, nil
}

func (s *Stepper) Kind() Kind { return s.kind }

func (s *Stepper) Advance() {
	s.samplesAdvanced++

	switch s.kind {
	case OneToOne:
		if s.channelIndex+1 == s.sourceChannels {
			s.channelIndex = 0
			s.sampleIndex++
			return
		}
		s.channelIndex++
	case UpChannel:
		// indices are derived from samplesAdvanced
	}
}

func (s *Stepper) SampleIndex() int {
	switch s.kind {
	case UpChannel:
		return s.samplesAdvanced / s.targetChannels
	default:
		return s.sampleIndex
	}
}

func (s *Stepper) ChannelIndex() int {
	switch s.kind {
	case UpChannel:
		return s.samplesAdvanced % s.sourceChannels
	default:
		return s.channelIndex
	}
}

// Number of Advance calls since construction or the last Reset.
func (s *Stepper) SamplesAdvanced() int { return s.samplesAdvanced }

// Reset returns to (channel 0, sample 0). Channel counts are kept.
func (s *Stepper) Reset() {
	s.channelIndex = 0
	s.sampleIndex = 0
	s.samplesAdvanced = 0
}
