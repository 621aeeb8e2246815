package playback

import (
	"fmt"
	"sync"
	"time"

	"github.com/tphakala/pcmplay/internal/errors"
)

// HeadlessDriverName is the backend name of the hardware-free driver
const HeadlessDriverName = "null"

// HeadlessDriver is a Driver with no audio hardware behind it. Streams are
// pumped explicitly with HeadlessStream.Pump, or by a goroutine ticking at
// the buffer period when Clocked is set.
type HeadlessDriver struct {
	// Clocked makes started streams pull one buffer per period on their own
	Clocked bool
	// OpenErr, StartErr, StopErr and CloseErr inject driver failures
	OpenErr  error
	StartErr error
	StopErr  error
	CloseErr error

	mu      sync.Mutex
	streams []*HeadlessStream
}

// NewHeadlessDriver returns a manually pumped headless driver
func NewHeadlessDriver() *HeadlessDriver {
	return &HeadlessDriver{}
}

// Name implements Driver
func (d *HeadlessDriver) Name() string {
	return HeadlessDriverName
}

// Open implements Driver
func (d *HeadlessDriver) Open(params StreamParams, cb Callback, hooks StreamHooks) (Stream, error) {
	if d.OpenErr != nil {
		return nil, d.OpenErr
	}
	if params.Device != "" && params.Device != "default" && params.Device != headlessDeviceName {
		return nil, errors.New(fmt.Errorf("%w: %q", ErrNoDevice, params.Device)).
			Component(ComponentPlayback).
			Category(errors.CategoryNotFound).
			Build()
	}

	s := &HeadlessStream{
		driver: d,
		params: params,
		cb:     cb,
		hooks:  hooks,
		buf:    make([]int16, params.FramesPerBuffer*params.Channels),
	}

	d.mu.Lock()
	d.streams = append(d.streams, s)
	d.mu.Unlock()

	return s, nil
}

const headlessDeviceName = "Null Playback Device"

// Devices implements DeviceLister
func (d *HeadlessDriver) Devices(string) ([]DeviceInfo, error) {
	return []DeviceInfo{{Index: 0, Name: headlessDeviceName, ID: "null", Default: true, HostAPI: HeadlessDriverName}}, nil
}

// LastStream returns the most recently opened stream, or nil
func (d *HeadlessDriver) LastStream() *HeadlessStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.streams) == 0 {
		return nil
	}
	return d.streams[len(d.streams)-1]
}

// HeadlessStream is a Stream opened by HeadlessDriver
type HeadlessStream struct {
	driver *HeadlessDriver
	params StreamParams
	cb     Callback
	hooks  StreamHooks

	// mu serializes callbacks with Start/Stop, matching the Stream contract
	mu       sync.Mutex
	buf      []int16
	status   StatusFlags
	started  bool
	closed   bool
	complete bool
	frames   int64
	starts   int
	stops    int

	tickStop chan struct{}
	tickDone chan struct{}
}

// Params returns the negotiated parameters
func (s *HeadlessStream) Params() StreamParams {
	return s.params
}

// Start implements Stream
func (s *HeadlessStream) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.driver.StartErr != nil {
		return s.driver.StartErr
	}
	if s.started {
		return nil
	}
	s.started = true
	s.complete = false
	s.starts++

	if s.driver.Clocked {
		s.tickStop = make(chan struct{})
		s.tickDone = make(chan struct{})
		go s.clock(s.tickStop, s.tickDone)
	}
	return nil
}

// Stop implements Stream. It returns after any in-flight callback finishes.
func (s *HeadlessStream) Stop() error {
	s.mu.Lock()
	stop, done := s.tickStop, s.tickDone
	s.tickStop, s.tickDone = nil, nil
	wasStarted := s.started
	s.started = false
	if wasStarted {
		s.stops++
	}
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	return s.driver.StopErr
}

// Close implements Stream
func (s *HeadlessStream) Close() error {
	_ = s.Stop()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return s.driver.CloseErr
}

// InjectStatus sets the status flags reported with the next callback
func (s *HeadlessStream) InjectStatus(flags StatusFlags) {
	s.mu.Lock()
	s.status |= flags
	s.mu.Unlock()
}

// Halt simulates the device disappearing: the stream stops and the engine is
// notified through its hooks.
func (s *HeadlessStream) Halt(err error) {
	s.mu.Lock()
	s.started = false
	s.mu.Unlock()
	if s.hooks.Halted != nil {
		s.hooks.Halted(err)
	}
}

// Pump runs one callback with a full buffer and returns a copy of the output.
// ok is false when the stream is not running.
func (s *HeadlessStream) Pump() (out []int16, result CallbackResult, ok bool) {
	return s.PumpFrames(s.params.FramesPerBuffer)
}

// PumpFrames runs one callback asking for frames frames.
func (s *HeadlessStream) PumpFrames(frames int) (out []int16, result CallbackResult, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started || s.complete {
		return nil, Complete, false
	}
	buf := make([]int16, frames*s.params.Channels)
	result = s.runLocked(buf)
	return buf, result, true
}

// Started reports whether the stream is running
func (s *HeadlessStream) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Closed reports whether Close was called
func (s *HeadlessStream) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Counts returns how many times the stream was started and stopped
func (s *HeadlessStream) Counts() (starts, stops int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.starts, s.stops
}

func (s *HeadlessStream) runLocked(buf []int16) CallbackResult {
	info := CallbackInfo{
		Frames: len(buf) / s.params.Channels,
		Time:   time.Duration(s.frames) * time.Second / time.Duration(s.params.SampleRate),
		Status: s.status,
	}
	s.status = 0
	result := s.cb(buf, info)
	s.frames += int64(info.Frames)
	if result == Complete {
		s.complete = true
	}
	return result
}

func (s *HeadlessStream) clock(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	period := time.Duration(s.params.FramesPerBuffer) * time.Second / time.Duration(s.params.SampleRate)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			if s.started && !s.complete {
				s.runLocked(s.buf)
			}
			s.mu.Unlock()
		}
	}
}
