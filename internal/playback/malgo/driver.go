// Package malgo drives playback through miniaudio via gen2brain/malgo
package malgo

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/logger"
	"github.com/tphakala/pcmplay/internal/playback"
)

const (
	// DriverName identifies this driver in configuration and metrics
	DriverName = "malgo"

	componentMalgo = "playback.malgo"

	// scratchSlots sizes the callback scratch buffer in engine slots.
	// Larger device periods are rendered in chunks.
	scratchSlots = 4
)

// Driver opens miniaudio playback streams
type Driver struct {
	log logger.Logger
}

// NewDriver returns a miniaudio driver. A nil logger selects the global one.
func NewDriver(log logger.Logger) *Driver {
	if log == nil {
		log = logger.Global().Module("playback").Module("malgo")
	}
	return &Driver{log: log}
}

// Name implements playback.Driver
func (d *Driver) Name() string { return DriverName }

// Open implements playback.Driver
func (d *Driver) Open(params playback.StreamParams, cb playback.Callback, hooks playback.StreamHooks) (playback.Stream, error) {
	backend, err := resolveBackend(params.HostAPI)
	if err != nil {
		return nil, err
	}

	log := d.log
	ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, func(message string) {
		log.Debug("miniaudio", logger.String("message", message))
	})
	if err != nil {
		return nil, errors.New(err).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_context").
			Context("host_api", backendName(backend)).
			Build()
	}

	s := &stream{
		ctx:      ctx,
		cb:       cb,
		hooks:    hooks,
		channels: params.Channels,
		slot:     params.FramesPerBuffer * params.Channels,
		log:      log,
	}
	s.scratch = make([]int16, s.slot*scratchSlots)
	s.stopping.Store(true)

	if err := s.init(params, backend); err != nil {
		s.release()
		return nil, err
	}
	return s, nil
}

// stream is one miniaudio playback device bound to an engine callback
type stream struct {
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	cb     playback.Callback
	hooks  playback.StreamHooks
	log    logger.Logger

	channels int
	slot     int     // samples per engine slot
	scratch  []int16 // callback-owned
	frames   uint64  // frames rendered since Start, callback-owned
	rate     int

	mu       sync.Mutex
	stopping atomic.Bool // set while the device is stopped on request
	complete atomic.Bool // set once the callback returned Complete
	closed   bool
}

func (s *stream) init(params playback.StreamParams, backend malgo.Backend) error {
	infos, err := s.ctx.Devices(malgo.Playback)
	if err != nil {
		return errors.New(err).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("operation", "enumerate_devices").
			Build()
	}
	chosen, err := selectDevice(candidatesFrom(infos), params.Device)
	if err != nil {
		return err
	}
	info := infos[chosen.index]

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(params.Channels)
	cfg.Playback.DeviceID = info.ID.Pointer()
	cfg.SampleRate = uint32(params.SampleRate)
	cfg.PeriodSizeInFrames = uint32(params.FramesPerBuffer)
	cfg.Periods = periodsFor(params)
	cfg.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(s.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: s.onData,
		Stop: s.onStop,
	})
	if err != nil {
		return errors.New(err).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_device").
			Context("device_name", chosen.name).
			Context("host_api", backendName(backend)).
			StreamContext(params.SampleRate, params.Channels, params.FramesPerBuffer).
			Build()
	}
	s.device = device

	format := device.PlaybackFormat()
	if format != malgo.FormatS16 ||
		int(device.PlaybackChannels()) != params.Channels ||
		int(device.SampleRate()) != params.SampleRate {
		_, formatName := formatInfo(format)
		return errors.New(fmt.Errorf("%w: got %s/%dch/%dHz", playback.ErrUnsupportedFormat,
			formatName, device.PlaybackChannels(), device.SampleRate())).
			Component(componentMalgo).
			Category(errors.CategoryAudioFormat).
			Context("device_name", chosen.name).
			StreamContext(params.SampleRate, params.Channels, params.FramesPerBuffer).
			Build()
	}
	s.rate = params.SampleRate

	s.log.Info("playback device opened",
		logger.String("device", chosen.name),
		logger.String("device_id", chosen.id),
		logger.String("host_api", backendName(backend)),
		logger.Int("sample_rate", params.SampleRate),
		logger.Int("channels", params.Channels),
		logger.Int("period_frames", params.FramesPerBuffer),
		logger.Int("periods", int(cfg.Periods)))
	return nil
}

// periodsFor converts a suggested latency into a miniaudio period count
func periodsFor(params playback.StreamParams) uint32 {
	if params.SuggestedLatency <= 0 || params.SampleRate <= 0 || params.FramesPerBuffer <= 0 {
		return 0
	}
	period := time.Duration(params.FramesPerBuffer) * time.Second / time.Duration(params.SampleRate)
	n := (params.SuggestedLatency + period - 1) / period
	return uint32(max(2, n))
}

// onData runs on the miniaudio device thread
func (s *stream) onData(out, _ []byte, frameCount uint32) {
	total := int(frameCount) * s.channels
	if len(out) < total*2 {
		total = len(out) / 2
	}

	if s.complete.Load() {
		clear(out)
		return
	}

	done := 0
	for done < total {
		n := min(total-done, len(s.scratch))
		buf := s.scratch[:n]
		info := playback.CallbackInfo{
			Frames: n / s.channels,
			Time:   time.Duration(s.frames) * time.Second / time.Duration(s.rate),
		}
		res := s.cb(buf, info)
		encodeS16(out[done*2:], buf)
		s.frames += uint64(info.Frames)
		done += n
		if res == playback.Complete {
			s.complete.Store(true)
			clear(out[done*2 : total*2])
			return
		}
	}
}

// onStop runs when miniaudio stops the device, requested or not
func (s *stream) onStop() {
	if s.stopping.Load() {
		return
	}
	if s.hooks.Halted != nil {
		s.hooks.Halted(errors.Newf("playback device stopped unexpectedly").
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("operation", "device_stop").
			Build())
	}
}

func (s *stream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return playback.ErrClosed
	}

	s.frames = 0
	s.complete.Store(false)
	s.stopping.Store(false)
	if err := s.device.Start(); err != nil {
		s.stopping.Store(true)
		return errors.New(err).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("operation", "start_device").
			Build()
	}
	return nil
}

// Stop returns after miniaudio has joined the callback
func (s *stream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	s.stopping.Store(true)
	if err := s.device.Stop(); err != nil {
		return errors.New(err).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("operation", "stop_device").
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
	s.stopping.Store(true)
	return s.release()
}

func (s *stream) release() error {
	if s.device != nil {
		s.device.Uninit()
		s.device = nil
	}
	var err error
	if s.ctx != nil {
		if uerr := s.ctx.Uninit(); uerr != nil {
			err = errors.New(uerr).
				Component(componentMalgo).
				Category(errors.CategoryAudioDevice).
				Context("operation", "uninit_context").
				Build()
		}
		s.ctx.Free()
		s.ctx = nil
	}
	return err
}
