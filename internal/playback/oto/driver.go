// Package oto drives playback through ebitengine/oto
package oto

import (
	"fmt"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"

	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/logger"
	"github.com/tphakala/pcmplay/internal/playback"
)

const (
	// DriverName identifies this driver in configuration and metrics
	DriverName = "oto"

	componentOto = "playback.oto"

	// bufferSlots sizes the player's internal buffer in engine slots
	bufferSlots = 2
)

// oto permits a single context per process; its format is fixed by the first Open
var (
	sharedMu       sync.Mutex
	sharedCtx      *oto.Context
	sharedRate     int
	sharedChannels int
)

// Driver opens oto players. oto exposes only the system default output.
type Driver struct {
	log logger.Logger
}

// NewDriver returns an oto driver. A nil logger selects the global one.
func NewDriver(log logger.Logger) *Driver {
	if log == nil {
		log = logger.Global().Module("playback").Module("oto")
	}
	return &Driver{log: log}
}

// Name implements playback.Driver
func (d *Driver) Name() string { return DriverName }

// Devices implements playback.DeviceLister
func (d *Driver) Devices(hostAPI string) ([]playback.DeviceInfo, error) {
	if err := checkHostAPI(hostAPI); err != nil {
		return nil, err
	}
	return []playback.DeviceInfo{{Name: "default", ID: "default", Default: true, HostAPI: DriverName}}, nil
}

func checkHostAPI(hostAPI string) error {
	if hostAPI == "" || hostAPI == "default" || hostAPI == DriverName {
		return nil
	}
	return errors.New(fmt.Errorf("%w %q", playback.ErrUnknownHostAPI, hostAPI)).
		Component(componentOto).
		Category(errors.CategoryConfiguration).
		Context("host_api", hostAPI).
		Build()
}

// Open implements playback.Driver
func (d *Driver) Open(params playback.StreamParams, cb playback.Callback, _ playback.StreamHooks) (playback.Stream, error) {
	if err := checkHostAPI(params.HostAPI); err != nil {
		return nil, err
	}
	if params.Device != "" && params.Device != "default" {
		return nil, errors.New(fmt.Errorf("%w: %q", playback.ErrNoDevice, params.Device)).
			Component(componentOto).
			Category(errors.CategoryNotFound).
			Context("device_name", params.Device).
			Build()
	}

	ctx, err := sharedContext(params)
	if err != nil {
		return nil, err
	}

	r := newCallbackReader(cb, params.Channels, params.FramesPerBuffer, params.SampleRate)
	player := ctx.NewPlayer(r)
	player.SetBufferSize(params.FramesPerBuffer * params.Channels * 2 * bufferSlots)

	d.log.Info("oto player opened",
		logger.Int("sample_rate", params.SampleRate),
		logger.Int("channels", params.Channels),
		logger.Int("frames_per_buffer", params.FramesPerBuffer))

	return &stream{player: player, reader: r}, nil
}

// sharedContext returns the process-wide oto context, creating it on first use
func sharedContext(params playback.StreamParams) (*oto.Context, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedCtx != nil {
		if sharedRate != params.SampleRate || sharedChannels != params.Channels {
			return nil, errors.New(fmt.Errorf("%w: oto context already running at %dHz/%dch",
				playback.ErrUnsupportedFormat, sharedRate, sharedChannels)).
				Component(componentOto).
				Category(errors.CategoryAudioFormat).
				StreamContext(params.SampleRate, params.Channels, params.FramesPerBuffer).
				Build()
		}
		return sharedCtx, nil
	}

	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   params.SampleRate,
		ChannelCount: params.Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   params.SuggestedLatency,
	})
	if err != nil {
		return nil, errors.New(err).
			Component(componentOto).
			Category(errors.CategoryAudioDevice).
			Context("operation", "new_context").
			StreamContext(params.SampleRate, params.Channels, params.FramesPerBuffer).
			Build()
	}
	<-ready

	sharedCtx, sharedRate, sharedChannels = ctx, params.SampleRate, params.Channels
	return ctx, nil
}

// player is the subset of *oto.Player a stream drives
type player interface {
	Play()
	Pause()
	Seek(offset int64, whence int) (int64, error)
	Err() error
	Close() error
}

type stream struct {
	player player
	reader *callbackReader
	mu     sync.Mutex
	closed bool
}

func (s *stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return playback.ErrClosed
	}
	s.reader.start()
	s.player.Play()
	if err := s.player.Err(); err != nil {
		s.reader.stop()
		return errors.New(err).
			Component(componentOto).
			Category(errors.CategoryAudioDevice).
			Context("operation", "play").
			Build()
	}
	return nil
}

func (s *stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.reader.stop()
	s.player.Pause()
	// Pause keeps already rendered PCM queued in the player; seeking
	// discards it so the next Play starts from fresh callbacks.
	if _, err := s.player.Seek(0, io.SeekCurrent); err != nil {
		return errors.New(err).
			Component(componentOto).
			Category(errors.CategoryAudioDevice).
			Context("operation", "flush_player").
			Build()
	}
	return nil
}

func (s *stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.reader.stop()
	if err := s.player.Close(); err != nil {
		return errors.New(err).
			Component(componentOto).
			Category(errors.CategoryAudioDevice).
			Context("operation", "close_player").
			Build()
	}
	return nil
}
