package oto

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/playback"
)

// callbackReader adapts the engine callback to the io.Reader oto pulls from.
// oto asks for arbitrary byte counts, so rendering goes through a one-slot
// staging buffer and the callback always sees whole slots.
type callbackReader struct {
	cb       playback.Callback
	channels int
	rate     int

	mu      sync.Mutex // held for the duration of every Read
	running atomic.Bool
	done    bool // callback returned Complete

	staged  []int16
	encoded []byte
	pending []byte // unread tail of encoded
	frames  uint64
}

func newCallbackReader(cb playback.Callback, channels, framesPerBuffer, rate int) *callbackReader {
	slot := framesPerBuffer * channels
	return &callbackReader{
		cb:       cb,
		channels: channels,
		rate:     rate,
		staged:   make([]int16, slot),
		encoded:  make([]byte, slot*2),
	}
}

// Read implements io.Reader. While stopped it yields silence without calling back.
func (r *callbackReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running.Load() || r.done {
		clear(p)
		return len(p), nil
	}

	n := 0
	for n < len(p) {
		if len(r.pending) == 0 {
			if r.done {
				clear(p[n:])
				return len(p), nil
			}
			r.renderSlot()
		}
		c := copy(p[n:], r.pending)
		r.pending = r.pending[c:]
		n += c
	}
	return n, nil
}

func (r *callbackReader) renderSlot() {
	info := playback.CallbackInfo{
		Frames: len(r.staged) / r.channels,
		Time:   time.Duration(r.frames) * time.Second / time.Duration(r.rate),
	}
	if r.cb(r.staged, info) == playback.Complete {
		r.done = true
	}
	for i, v := range r.staged {
		binary.LittleEndian.PutUint16(r.encoded[2*i:], uint16(v))
	}
	r.frames += uint64(info.Frames)
	r.pending = r.encoded
}

func (r *callbackReader) start() {
	r.mu.Lock()
	r.done = false
	r.pending = nil
	r.frames = 0
	r.mu.Unlock()
	r.running.Store(true)
}

// stop returns once no Read is in flight; later Reads produce silence
func (r *callbackReader) stop() {
	r.running.Store(false)
	r.mu.Lock()
	r.pending = nil
	r.mu.Unlock()
}

// Seek implements io.Seeker so oto can drop its queued PCM. The stream has
// no position; only a zero offset is accepted and it discards the staged tail.
func (r *callbackReader) Seek(offset int64, whence int) (int64, error) {
	if offset != 0 {
		return 0, errors.New(fmt.Errorf("oto: cannot seek live stream to offset %d (whence %d)", offset, whence)).
			Component(componentOto).
			Category(errors.CategoryValidation).
			Build()
	}
	r.mu.Lock()
	r.pending = nil
	r.mu.Unlock()
	return 0, nil
}

var _ io.ReadSeeker = (*callbackReader)(nil)
