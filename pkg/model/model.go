// Package model holds the declarative description of a playback: which files
// play on which channels. The types are plain data and are loaded from config.
package model

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyPath        = errors.New("clip has no path")
	ErrDuplicateChannel = errors.New("duplicate channel id")
	ErrEmptyChannelID   = errors.New("channel has no id")
	ErrNegativeVolume   = errors.New("channel volume is negative")
)

// A Clip names an audio file and where it sits on its channel's timeline.
//
// StartTimeMs and DurationMs are scheduling metadata. Playback currently runs
// a clip from the start of its file to the end of its stream.
type Clip struct {
	Path        string `mapstructure:"path"`
	StartTimeMs int32  `mapstructure:"start_time_ms"`
	DurationMs  uint32 `mapstructure:"duration_ms"`
}

// A Channel is an ordered list of clips. Clips are listed in playback order.
//
// Volume is the channel gain; nil means unity.
type Channel struct {
	ID     string   `mapstructure:"id"`
	Clips  []Clip   `mapstructure:"clips"`
	Volume *float32 `mapstructure:"volume"`
}

// Gain to apply to the channel, defaulting to 1.
func (c Channel) Gain() float32 {
	if c.Volume == nil {
		return 1
	}
	return *c.Volume
}

type Mixer struct {
	Channels []Channel `mapstructure:"channels"`
}

// Check the description for missing paths and duplicate or empty channel ids.
func (m Mixer) Validate() error {
	seen := make(map[string]struct{}, len(m.Channels))
	var errs []error

	for i, channel := range m.Channels {
		if channel.ID == "" {
			errs = append(errs, fmt.Errorf("channel %d: %w", i, ErrEmptyChannelID))
		} else if _, ok := seen[channel.ID]; ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateChannel, channel.ID))
		}
		seen[channel.ID] = struct{}{}

		if channel.Gain() < 0 {
			errs = append(errs, fmt.Errorf("channel %q: %w", channel.ID, ErrNegativeVolume))
		}

		for j, clip := range channel.Clips {
			if clip.Path == "" {
				errs = append(errs, fmt.Errorf("channel %q clip %d: %w", channel.ID, j, ErrEmptyPath))
			}
		}
	}

	return errors.Join(errs...)
}

// Number of clips across every channel.
func (m Mixer) ClipCount() int {
	n := 0
	for _, channel := range m.Channels {
		n += len(channel.Clips)
	}
	return n
}
