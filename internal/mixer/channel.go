package mixer

import (
	"context"
	"log/slog"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/playback"
	"github.com/google/uuid"
)

// A Channel plays its clips into a bounded stream, one sample at a time.
//
// Only the first clip is played. Once it is exhausted the channel keeps sending
// silence so the mixer always gets one sample per tick from it.
type Channel struct {
	logger *slog.Logger
	uuid   uuid.UUID

	id     string
	clips  []playback.PlayableClip
	stream chan float32

	// float32 bits of the gain applied to every sample
	volume atomic.Uint32
}

// Create a new Channel. queueSize bounds how far the channel may run ahead of the mixer.
func NewChannel(id string, clips []playback.PlayableClip, queueSize int) *Channel {
	uuid := uuid.New()
	c := &Channel{
		logger: slog.Default().With("channel uuid", uuid, "channel", id),
		uuid:   uuid,
		id:     id,
		clips:  clips,
		stream: make(chan float32, max(queueSize, 1)),
	}
	c.SetVolume(1)
	return c
}

// Create a Channel for every channel of a built playback.
func ChannelsFromPlayback(pb *playback.Playback) []*Channel {
	channels := make([]*Channel, 0, len(pb.Channels))
	for _, c := range pb.Channels {
		channel := NewChannel(c.ID, c.Clips, pb.Properties.QueueSize())
		channel.SetVolume(c.Volume)
		channels = append(channels, channel)
	}
	return channels
}

func (c *Channel) ID() string { return c.id }

func (c *Channel) Stream() <-chan float32 { return c.stream }

// Set the gain applied to every sample. 0 mutes, 1 is unity.
// Negative values are treated as 0. Safe to call while running.
func (c *Channel) SetVolume(volume float32) {
	if volume < 0 {
		volume = 0
	}
	c.volume.Store(math.Float32bits(volume))
}

func (c *Channel) Volume() float32 {
	return math.Float32frombits(c.volume.Load())
}

// Run produces samples until ctx is cancelled, then closes the stream and every clip.
// Run pins its goroutine to an OS thread and must be called once.
func (c *Channel) Run(ctx context.Context) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	defer c.closeClips()
	defer close(c.stream)

	var clip *playback.PlayableClip
	if len(c.clips) > 0 {
		clip = &c.clips[0]
	}
	if len(c.clips) > 1 {
		c.logger.Debug("channel has more than one clip, only the first is played", "clips", len(c.clips))
	}

	c.logger.Debug("channel started")

	for {
		var sample float32
		if clip != nil {
			next, ok := clip.Reader.Next()
			if ok {
				sample = next * c.Volume()
			} else {
				c.logger.Debug("clip finished, sending silence", "path", clip.Clip.Path)
				clip = nil
			}
		}

		select {
		case c.stream <- sample:
		case <-ctx.Done():
			c.logger.Debug("channel stopped")
			return
		}
	}
}

// Close the clips of a channel that will never run. Must not be called once Run has started.
func (c *Channel) Discard() {
	c.closeClips()
}

func (c *Channel) closeClips() {
	for _, clip := range c.clips {
		if err := clip.Reader.Close(); err != nil {
			c.logger.Warn("error closing clip", "path", clip.Clip.Path, "err", err)
		}
	}
}
