package playback

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"time"

	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/logger"
)

const (
	// spinYields is how many Gosched retries precede sleeping backoff
	spinYields = 64
	// minBackoff and maxBackoff bound the sleep between retries once yielding gives up
	minBackoff = 50 * time.Microsecond
	maxBackoff = time.Millisecond
)

// toSample converts a float sample in [-1, 1] to int16. Out-of-range input
// panics in playbackdebug builds and is clamped otherwise; NaN becomes 0.
func toSample(s float32) int16 {
	assertSampleRange(s)
	switch {
	case s != s:
		return 0
	case s > 1:
		s = 1
	case s < -1:
		s = -1
	}
	return int16(math.Round(float64(s) * math.MaxInt16))
}

// WriteMono appends one frame. On a stereo engine the sample is written to
// both channels.
func (e *Engine) WriteMono(s float32) error {
	if err := e.beginFrame(); err != nil {
		return err
	}
	v := toSample(s)
	slot := e.pool.slot(e.writeSlot)
	slot[e.writeOffset] = v
	if e.cfg.Channels == 2 {
		slot[e.writeOffset+1] = v
	}
	return e.endFrame()
}

// WriteStereo appends one frame. On a mono engine the two channels are
// averaged.
func (e *Engine) WriteStereo(l, r float32) error {
	if err := e.beginFrame(); err != nil {
		return err
	}
	slot := e.pool.slot(e.writeSlot)
	if e.cfg.Channels == 2 {
		slot[e.writeOffset] = toSample(l)
		slot[e.writeOffset+1] = toSample(r)
	} else {
		assertSampleRange(l)
		assertSampleRange(r)
		slot[e.writeOffset] = toSample((l + r) / 2)
	}
	return e.endFrame()
}

// Flush pads a partially written slot with silence and publishes it.
// It is a no-op when the write cursor sits on a slot boundary.
func (e *Engine) Flush() error {
	if e.State() == StateTornDown {
		return ErrClosed
	}
	if e.writeOffset == 0 {
		return nil
	}
	clear(e.pool.slot(e.writeSlot)[e.writeOffset:])
	return e.commitSlot()
}

// Drain blocks until every published slot has been consumed, starting the
// stream first if it has not pre-rolled yet. It returns early when ctx ends
// or the driver halts the stream.
func (e *Engine) Drain(ctx context.Context) error {
	switch e.State() {
	case StateTornDown:
		return ErrClosed
	case StateReady:
		if e.ready.load() == 0 {
			return nil
		}
		if err := e.Start(); err != nil {
			return err
		}
	}

	// The producer is parked here, so an empty pool is the end of the
	// stream rather than starvation.
	e.drained.Store(true)

	poll := e.cfg.BufferDuration() / 2
	if poll <= 0 {
		poll = time.Millisecond
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for e.ready.load() > 0 {
		if e.halted.Load() {
			return ErrStreamHalted
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	// Let the last copied slot reach the device
	target := e.stats.callbacks.Load() + 1
	for e.stats.callbacks.Load() < target && !e.halted.Load() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// beginFrame waits for a free slot when the write cursor is on a slot boundary.
func (e *Engine) beginFrame() error {
	if e.writeOffset != 0 {
		return nil
	}
	if e.State() == StateTornDown {
		return ErrClosed
	}
	if !e.ready.full() {
		return nil
	}
	return e.waitForSlot()
}

// endFrame advances the write cursor and publishes the slot once full.
func (e *Engine) endFrame() error {
	e.writeOffset += e.cfg.Channels
	if e.writeOffset < e.pool.slotLen {
		return nil
	}
	return e.commitSlot()
}

// commitSlot publishes the slot under the write cursor and advances it.
func (e *Engine) commitSlot() error {
	e.drained.Store(false)
	n := e.ready.increment()
	e.writeSlot = e.pool.next(e.writeSlot)
	e.writeOffset = 0
	e.writeSlotPub.Store(int32(e.writeSlot))

	if int(n) == e.pool.size() {
		return e.onPoolFull()
	}
	return nil
}

// waitForSlot spins until the consumer frees a slot. Every retry counts as an
// overrun. After spinYields yields the wait sleeps with exponential backoff.
func (e *Engine) waitForSlot() error {
	var (
		spins   int
		delay   = minBackoff
		started = time.Now()
	)

	if e.overrunLimit.Allow() {
		e.log.Debug("producer waiting for free buffer",
			logger.Uint64("overruns", e.stats.overruns.Load()))
	}

	for e.ready.full() {
		e.stats.overruns.Add(1)

		if e.halted.Load() {
			return ErrStreamHalted
		}
		if e.State() != StateStreaming {
			return ErrNotStreaming
		}
		if e.cfg.OverrunTimeout > 0 && time.Since(started) > e.cfg.OverrunTimeout {
			return errors.New(fmt.Errorf("%w after %s", ErrProducerStalled, e.cfg.OverrunTimeout)).
				Component(ComponentPlayback).
				Category(errors.CategoryTimeout).
				Context("overruns", e.stats.overruns.Load()).
				Context("ready", e.ready.load()).
				Build()
		}

		if spins < spinYields {
			spins++
			runtime.Gosched()
			continue
		}
		time.Sleep(delay)
		delay = min(delay*2, maxBackoff)
	}
	return nil
}
