// Package engine owns the output device and the mixing pipeline, and drives
// their lifecycle from a single goroutine fed by commands.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/audioapi"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/mixer"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/playback"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/model"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

var (
	ErrEngineClosed   = errors.New("engine is closed")
	ErrUnknownChannel = errors.New("no channel with that id")
)

// Resolved configuration of a running engine.
type Config struct {
	Device     audioapi.AudioIODevice
	Properties audiodevice.DeviceProperties
}

type Option func(*Controller)

// Request device properties. Zero fields take the device's defaults.
func WithProperties(properties audiodevice.DeviceProperties) Option {
	return func(c *Controller) { c.requested = properties }
}

// Use a custom builder for sources and playbacks, e.g. with another opener.
func WithBuilder(builder *playback.Builder) Option {
	return func(c *Controller) { c.builder = builder }
}

// --------------------------------------------------------------------------------

type commandKind int

const (
	commandLifecycle commandKind = iota
	commandAddChannels
	commandSetVolume
	commandListChannels
)

type command struct {
	kind      commandKind
	lifecycle Command
	channels  []*mixer.Channel
	channelID string
	volume    float32
	reply     chan reply
}

type reply struct {
	state    State
	channels []string
	err      error
}

// A Controller is the handle applications use to drive the engine.
//
// Every method is safe for concurrent use. The lifecycle state and the
// registered channels are owned by the engine goroutine; methods talk to it
// over a command channel.
type Controller struct {
	logger *slog.Logger
	uuid   uuid.UUID

	requested audiodevice.DeviceProperties
	builder   *playback.Builder

	config Config
	device audiodevice.AudioSinkDevice
	mixer  *mixer.Mixer

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	commands chan command
	state    atomic.Int32

	closeOnce sync.Once
}

// Create a new engine on the default output device of api.
//
// The device is opened with the negotiated properties straight away;
// failing to open it is fatal. The mixer starts running but nothing is
// handed to the device until the first Play.
func New(api audioapi.AudioIODeviceAPI, opts ...Option) (*Controller, error) {
	uuid := uuid.New()
	logger := slog.Default().With(
		"engine uuid", uuid,
	)

	c := &Controller{
		logger:   logger,
		uuid:     uuid,
		commands: make(chan command),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.builder == nil {
		c.builder = playback.NewBuilder()
	}

	ioDevice, err := api.DefaultOutputDevice()
	if err != nil {
		logger.Error("no output device", "err", err)
		return nil, fmt.Errorf("find output device: %w", err)
	}

	properties := ioDevice.Negotiate(c.requested)
	if err := properties.Validate(); err != nil {
		return nil, err
	}

	device, err := api.InitOutputDevice(ioDevice, properties)
	if err != nil {
		logger.Error("could not open output device", "device", ioDevice.Name, "err", err)
		return nil, fmt.Errorf("open output device %q: %w", ioDevice.Name, err)
	}

	c.config = Config{Device: ioDevice, Properties: properties}
	c.device = device
	c.mixer = mixer.NewMixer(properties.QueueSize(), mixer.WithFrameSize(properties.NumChannels))

	ctx, cancel := context.WithCancel(context.Background())
	c.group, c.ctx = errgroup.WithContext(ctx)
	c.cancel = cancel

	c.group.Go(func() error {
		c.mixer.Run(c.ctx)
		return nil
	})
	c.group.Go(func() error {
		c.run()
		return nil
	})

	logger.Info(
		"engine started",
		"device", ioDevice.Name,
		"sampleRate", properties.SampleRate,
		"channels", properties.NumChannels,
		"format", properties.SampleFormat,
		"bufferSize", properties.BufferSize,
	)

	return c, nil
}

// The engine goroutine. It never touches samples, only lifecycle and bookkeeping.
func (c *Controller) run() {
	registered := make(map[string]*mixer.Channel)
	var order []string

	for {
		select {
		case <-c.ctx.Done():
			c.logger.Debug("engine loop stopped", "channels", len(registered))
			return
		case cmd := <-c.commands:
			var r reply
			switch cmd.kind {
			case commandLifecycle:
				r.err = c.apply(cmd.lifecycle)
			case commandAddChannels:
				for i, channel := range cmd.channels {
					if err := c.startChannel(channel); err != nil {
						c.discardChannels(cmd.channels[i+1:])
						r.err = err
						break
					}
					if _, ok := registered[channel.ID()]; !ok {
						order = append(order, channel.ID())
					}
					registered[channel.ID()] = channel
				}
			case commandSetVolume:
				channel, ok := registered[cmd.channelID]
				if !ok {
					r.err = fmt.Errorf("%w: %q", ErrUnknownChannel, cmd.channelID)
					break
				}
				channel.SetVolume(cmd.volume)
			case commandListChannels:
				r.channels = append([]string(nil), order...)
			}
			r.state = c.State()
			cmd.reply <- r
		}
	}
}

func (c *Controller) apply(cmd Command) error {
	current := c.State()
	next := Transition(current, cmd)
	if next == current {
		c.logger.Debug("command ignored", "command", cmd, "state", current)
		return nil
	}

	switch {
	case current == Idle && next == Playing:
		if err := c.startStream(); err != nil {
			return err
		}
		c.device.Play()
	case next == Playing:
		c.device.Play()
	case next == Paused:
		c.device.Pause()
	}

	c.state.Store(int32(next))
	c.logger.Info("engine state changed", "from", current, "to", next)
	return nil
}

// Hand the mixed stream to the device.
func (c *Controller) startStream() error {
	if err := c.device.SetStream(c.mixer.Stream()); err != nil {
		c.logger.Error("could not set device stream", "err", err)
		return fmt.Errorf("start stream: %w", err)
	}
	return nil
}

func (c *Controller) startChannel(channel *mixer.Channel) error {
	c.group.Go(func() error {
		channel.Run(c.ctx)
		return nil
	})
	if err := c.mixer.Add(c.ctx, channel); err != nil {
		return fmt.Errorf("add channel %q: %w", channel.ID(), err)
	}
	c.logger.Debug("channel registered", "channel", channel.ID())
	return nil
}

// Channels of a failed batch that were never started still own their clips.
func (c *Controller) discardChannels(channels []*mixer.Channel) {
	for _, channel := range channels {
		c.logger.Debug("discarding channel", "channel", channel.ID())
		channel.Discard()
	}
}

// Hand cmd to the engine goroutine. An error means the command was never taken.
func (c *Controller) deliver(ctx context.Context, cmd command) (<-chan reply, error) {
	replies := make(chan reply, 1)
	cmd.reply = replies

	select {
	case c.commands <- cmd:
		return replies, nil
	case <-c.ctx.Done():
		return nil, ErrEngineClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Controller) send(ctx context.Context, cmd command) (reply, error) {
	replies, err := c.deliver(ctx, cmd)
	if err != nil {
		return reply{}, err
	}

	// the engine goroutine always replies once it has taken a command
	r := <-replies
	return r, r.err
}

// Send channels to the engine goroutine. Once the command is taken the engine
// owns every channel and their clips; before that they are still the caller's.
func (c *Controller) addChannels(ctx context.Context, channels []*mixer.Channel) error {
	replies, err := c.deliver(ctx, command{kind: commandAddChannels, channels: channels})
	if err != nil {
		c.discardChannels(channels)
		return err
	}
	return (<-replies).err
}

// --------------------------------------------------------------------------------

// Start or resume playback. Returns the resulting state.
func (c *Controller) Play(ctx context.Context) (State, error) {
	r, err := c.send(ctx, command{kind: commandLifecycle, lifecycle: Play})
	return r.state, err
}

// Pause playback. Returns the resulting state.
func (c *Controller) Pause(ctx context.Context) (State, error) {
	r, err := c.send(ctx, command{kind: commandLifecycle, lifecycle: Pause})
	return r.state, err
}

// Decode the file at path into a new channel of its own and mix it in.
// The returned id names the channel for SetVolume.
func (c *Controller) AddSource(ctx context.Context, path string) (uuid.UUID, error) {
	clip, err := c.builder.BuildClip(model.Clip{Path: path}, c.config.Properties)
	if err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	channel := mixer.NewChannel(id.String(), []playback.PlayableClip{clip}, c.config.Properties.QueueSize())
	if err := c.addChannels(ctx, []*mixer.Channel{channel}); err != nil {
		return uuid.Nil, err
	}

	c.logger.Info("source added", "path", path, "channel", id)
	return id, nil
}

// Build every channel of a declarative description and mix them in.
func (c *Controller) AddMixer(ctx context.Context, description model.Mixer) error {
	pb, err := c.builder.Build(description, c.config.Properties)
	if err != nil {
		return err
	}
	return c.AddPlayback(ctx, pb)
}

// Mix in every channel of an already built playback.
// The playback must have been built for Config().Properties.
func (c *Controller) AddPlayback(ctx context.Context, pb *playback.Playback) error {
	if pb.Properties != c.config.Properties {
		return fmt.Errorf("%w: playback built for %+v, engine runs %+v",
			audiodevice.ErrInvalidProperties, pb.Properties, c.config.Properties)
	}

	return c.addChannels(ctx, mixer.ChannelsFromPlayback(pb))
}

// Set the gain of a registered channel.
func (c *Controller) SetVolume(ctx context.Context, channelID string, volume float32) error {
	_, err := c.send(ctx, command{kind: commandSetVolume, channelID: channelID, volume: volume})
	return err
}

// Ids of the registered channels, in registration order.
func (c *Controller) Channels(ctx context.Context) ([]string, error) {
	r, err := c.send(ctx, command{kind: commandListChannels})
	return r.channels, err
}

func (c *Controller) State() State {
	return State(c.state.Load())
}

func (c *Controller) Config() Config {
	return c.config
}

func (c *Controller) Device() audiodevice.AudioSinkDevice {
	return c.device
}

// Stop every goroutine, release the device and move to Stopped.
// Safe to call more than once.
func (c *Controller) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.logger.Debug("shutdown called")
		c.cancel()
		err = c.group.Wait()
		c.device.Close()
		c.state.Store(int32(Stopped))
		c.logger.Info("engine stopped")
	})
	return err
}
