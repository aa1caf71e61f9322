// Package playback materializes a declarative model.Mixer into runtime channels
// of source readers, all converting to one negotiated device format.
package playback

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/internal/sourcereader"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/audiodevice"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/decoder"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/formats"
	"github.com/Honorable-Knights-of-the-Roundtable/trackmix/pkg/model"
	"github.com/google/uuid"
)

// A source reader paired with the clip it was built from.
type PlayableClip struct {
	Reader *sourcereader.SourceReader
	Clip   model.Clip

	startFrame     int64
	durationFrames int64
}

// Clip start offset in frames at the playback rate.
func (c PlayableClip) StartFrame() int64 { return c.startFrame }

// Declared clip length in frames at the playback rate.
func (c PlayableClip) DurationFrames() int64 { return c.durationFrames }

type Channel struct {
	ID     string
	Clips  []PlayableClip
	Volume float32
}

// Close every clip reader of the channel.
func (c *Channel) Close() error {
	var errs []error
	for _, clip := range c.Clips {
		errs = append(errs, clip.Reader.Close())
	}
	return errors.Join(errs...)
}

type Playback struct {
	Channels   []*Channel
	Properties audiodevice.DeviceProperties
}

func (p *Playback) Close() error {
	var errs []error
	for _, channel := range p.Channels {
		errs = append(errs, channel.Close())
	}
	return errors.Join(errs...)
}

// --------------------------------------------------------------------------------

// Opens a file as a decoder source.
type OpenFunc func(path string) (decoder.Source, error)

type Builder struct {
	logger     *slog.Logger
	uuid       uuid.UUID
	open       OpenFunc
	readerOpts []sourcereader.Option
}

type BuilderOption func(*Builder)

func WithOpener(open OpenFunc) BuilderOption {
	return func(b *Builder) { b.open = open }
}

func WithReaderOptions(opts ...sourcereader.Option) BuilderOption {
	return func(b *Builder) { b.readerOpts = append(b.readerOpts, opts...) }
}

// Create a new Builder. Files are opened with formats.Open unless WithOpener is given.
func NewBuilder(opts ...BuilderOption) *Builder {
	uuid := uuid.New()
	b := &Builder{
		logger: slog.Default().With("playback builder uuid", uuid),
		uuid:   uuid,
		open:   formats.Open,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build opens every clip of the description and wraps it in a source reader
// targeting properties.
//
// Any failure closes the readers built so far and fails the whole build.
func (b *Builder) Build(mixer model.Mixer, properties audiodevice.DeviceProperties) (*Playback, error) {
	if err := mixer.Validate(); err != nil {
		return nil, err
	}
	if err := properties.Validate(); err != nil {
		return nil, err
	}

	playback := &Playback{
		Channels:   make([]*Channel, 0, len(mixer.Channels)),
		Properties: properties,
	}

	for _, channelModel := range mixer.Channels {
		channel := &Channel{
			ID:     channelModel.ID,
			Clips:  make([]PlayableClip, 0, len(channelModel.Clips)),
			Volume: channelModel.Gain(),
		}
		playback.Channels = append(playback.Channels, channel)

		for _, clipModel := range channelModel.Clips {
			clip, err := b.BuildClip(clipModel, properties)
			if err != nil {
				b.logger.Error(
					"could not build clip",
					"channel", channelModel.ID,
					"path", clipModel.Path,
					"err", err,
				)
				playback.Close()
				return nil, fmt.Errorf("channel %q: %w", channelModel.ID, err)
			}
			channel.Clips = append(channel.Clips, clip)
		}
	}

	b.logger.Debug(
		"built playback",
		"channels", len(playback.Channels),
		"clips", mixer.ClipCount(),
		"sampleRate", properties.SampleRate,
		"numChannels", properties.NumChannels,
	)

	return playback, nil
}

// Open a single clip as a source reader targeting properties.
func (b *Builder) BuildClip(clip model.Clip, properties audiodevice.DeviceProperties) (PlayableClip, error) {
	source, err := b.open(clip.Path)
	if err != nil {
		return PlayableClip{}, err
	}

	reader, err := sourcereader.New(source, properties, b.readerOpts...)
	if err != nil {
		source.Close()
		return PlayableClip{}, &decoder.DecodeError{Path: clip.Path, Err: err}
	}

	return PlayableClip{
		Reader:         reader,
		Clip:           clip,
		startFrame:     properties.MsToFrames(int64(clip.StartTimeMs)),
		durationFrames: properties.MsToFrames(int64(clip.DurationMs)),
	}, nil
}
