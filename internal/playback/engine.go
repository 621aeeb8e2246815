package playback

import (
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/logger"
)

// Engine is a single-producer, single-consumer playback engine bound to one
// driver stream. See the package documentation for the threading contract.
type Engine struct {
	id      string
	backend string
	cfg     Config
	log     logger.Logger

	pool   *bufferPool
	ready  readyCounter
	stream Stream
	filler *underrunFiller

	// Producer-owned write cursor
	writeSlot   int
	writeOffset int

	// Consumer-owned read cursor
	readSlot int

	// Cursor mirrors for Snapshot
	writeSlotPub atomic.Int32
	readSlotPub  atomic.Int32

	state    atomic.Int32
	policy   atomic.Int32
	stopping atomic.Bool
	halted   atomic.Bool
	// drained is set while the producer drains; an empty pool then plays
	// silence that does not count as starvation until the next slot commits
	drained atomic.Bool
	stats   stats

	noiseSeed    uint64
	overrunLimit *rate.Limiter
}

// New validates cfg, negotiates an output stream with driver and returns an
// engine in the Ready state. Any failure is returned before a stream exists.
func New(cfg Config, driver Driver, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if driver == nil {
		return nil, errors.New(fmt.Errorf("%w: driver is required", ErrInvalidConfig)).
			Component(ComponentPlayback).
			Category(errors.CategoryValidation).
			Build()
	}

	e := &Engine{
		id:           uuid.NewString(),
		backend:      driver.Name(),
		cfg:          cfg,
		log:          logger.Global().Module("playback"),
		pool:         newBufferPool(cfg.BufferCount, cfg.FramesPerBuffer*cfg.Channels),
		noiseSeed:    rand.Uint64(),
		overrunLimit: rate.NewLimiter(rate.Every(time.Second), 1),
	}
	e.ready.capacity = int32(cfg.BufferCount)
	e.state.Store(int32(StateUninitialized))
	e.policy.Store(int32(cfg.Policy))

	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(logger.String("engine_id", e.id), logger.String("backend", e.backend))
	e.filler = newUnderrunFiller(cfg.Policy, cfg.SampleRate, cfg.Channels, e.noiseSeed)

	start := time.Now()
	stream, err := driver.Open(cfg.streamParams(), e.render, StreamHooks{Halted: e.onHalted})
	if err != nil {
		return nil, errors.New(fmt.Errorf("%w: %s: %w", ErrDriverNegotiation, driver.Name(), err)).
			Component(ComponentPlayback).
			Category(errors.CategoryAudioDevice).
			StreamContext(cfg.SampleRate, cfg.Channels, cfg.FramesPerBuffer).
			Context("backend", driver.Name()).
			Context("host_api", cfg.HostAPI).
			Context("device", cfg.Device).
			Timing("open_stream", time.Since(start)).
			Build()
	}
	e.stream = stream
	e.state.Store(int32(StateReady))

	e.log.Info("output stream negotiated",
		logger.Int("sample_rate", cfg.SampleRate),
		logger.Int("channels", cfg.Channels),
		logger.Int("frames_per_buffer", cfg.FramesPerBuffer),
		logger.Int("buffer_count", cfg.BufferCount),
		logger.String("policy", cfg.Policy.String()),
		logger.Duration("buffer_duration", cfg.BufferDuration()))

	return e, nil
}

// ID returns the engine instance ID
func (e *Engine) ID() string {
	return e.id
}

// Backend returns the driver name the engine was opened with
func (e *Engine) Backend() string {
	return e.backend
}

// Config returns the configuration the engine was built with
func (e *Engine) Config() Config {
	return e.cfg
}

// State returns the current lifecycle state
func (e *Engine) State() State {
	return State(e.state.Load())
}

// Start starts the stream. Starting a streaming engine is a no-op.
func (e *Engine) Start() error {
	switch e.State() {
	case StateStreaming:
		return nil
	case StateTornDown:
		return ErrClosed
	}

	if err := e.stream.Start(); err != nil {
		e.stats.driverErrors.Add(1)
		return errors.New(fmt.Errorf("%w: %w", ErrStreamStart, err)).
			Component(ComponentPlayback).
			Category(errors.CategoryAudioDevice).
			Context("backend", e.backend).
			Context("operation", "start_stream").
			Build()
	}
	e.halted.Store(false)
	e.state.Store(int32(StateStreaming))

	e.log.Debug("stream started", logger.Int("ready", int(e.ready.load())))
	return nil
}

// onPoolFull is the pre-roll transition: whenever every slot holds data
// while the engine is Ready, the stream starts.
func (e *Engine) onPoolFull() error {
	if e.State() != StateReady {
		return nil
	}
	e.stats.prerollStarts.Add(1)
	e.log.Debug("pre-roll complete", logger.Int("slots", e.pool.size()))
	return e.Start()
}

// Stop halts the stream and discards all queued audio: the ready count,
// both cursors and every slot are reset. Driver failures are counted in
// DriverErrors rather than returned. Stopping an engine that is not
// streaming is a no-op, so audio queued ahead of pre-roll survives.
func (e *Engine) Stop() error {
	switch e.State() {
	case StateTornDown:
		return ErrClosed
	case StateReady:
		return nil
	}

	e.stopping.Store(true)
	if err := e.stream.Stop(); err != nil {
		e.stats.driverErrors.Add(1)
		e.log.Warn("failed to stop output stream", logger.Error(err))
	}
	e.reset()
	e.state.Store(int32(StateReady))
	e.stopping.Store(false)
	e.log.Debug("stream stopped")
	return nil
}

// reset clears pool and cursors. The stream must not be running.
func (e *Engine) reset() {
	e.ready.reset()
	e.writeSlot, e.writeOffset = 0, 0
	e.readSlot = 0
	e.writeSlotPub.Store(0)
	e.readSlotPub.Store(0)
	e.drained.Store(false)
	e.pool.zero()
}

// Close stops and releases the stream. It may be called repeatedly; driver
// failures are counted and logged, never returned.
func (e *Engine) Close() error {
	if e.State() == StateTornDown {
		return nil
	}

	_ = e.Stop()
	if err := e.stream.Close(); err != nil {
		e.stats.driverErrors.Add(1)
		e.log.Warn("failed to close output stream", logger.Error(err))
	}
	e.state.Store(int32(StateTornDown))

	snap := e.Snapshot()
	e.log.Info("engine closed",
		logger.Uint64("underruns", snap.Underruns),
		logger.Uint64("overruns", snap.Overruns),
		logger.Uint64("driver_errors", snap.DriverErrors),
		logger.Uint64("callback_faults", snap.CallbackFaults))
	return nil
}

// SetUnderrunPolicy changes the underrun policy. It fails with ErrStreaming
// while the stream runs. The tone phase survives policy changes.
func (e *Engine) SetUnderrunPolicy(p PolicyKind) error {
	switch e.State() {
	case StateStreaming:
		return errors.New(fmt.Errorf("%w: cannot change underrun policy", ErrStreaming)).
			Component(ComponentPlayback).
			Category(errors.CategoryState).
			Context("policy", p.String()).
			Build()
	case StateTornDown:
		return ErrClosed
	}
	if p < PolicySilence || p > PolicyTone {
		return errors.New(fmt.Errorf("%w: unknown underrun policy %d", ErrInvalidConfig, int32(p))).
			Component(ComponentPlayback).
			Category(errors.CategoryValidation).
			Build()
	}

	e.filler.policy = p
	e.policy.Store(int32(p))
	e.cfg.Policy = p
	return nil
}

// onHalted runs on a driver thread when the stream stops without a request.
func (e *Engine) onHalted(error) {
	if e.stopping.Load() {
		return
	}
	e.halted.Store(true)
	e.stats.driverErrors.Add(1)
}
