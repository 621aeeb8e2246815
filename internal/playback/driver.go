package playback

import "time"

// StatusFlags are the per-callback conditions a driver reports
type StatusFlags uint32

const (
	// StatusOutputUnderflow means the device ran out of data before this callback
	StatusOutputUnderflow StatusFlags = 1 << iota
	// StatusOutputOverflow means data was discarded by the device
	StatusOutputOverflow
	// StatusPrimingOutput means the callback fills the device's initial buffers
	StatusPrimingOutput
)

// CallbackResult tells the driver whether to keep pulling data
type CallbackResult int

const (
	// Continue keeps the stream running
	Continue CallbackResult = iota
	// Complete asks the driver to stop calling back
	Complete
)

// CallbackInfo describes one driver callback
type CallbackInfo struct {
	Frames int           // frames requested, len(out) / channels
	Time   time.Duration // stream time of the first frame, zero when unknown
	Status StatusFlags
}

// Callback fills out with interleaved int16 samples. It runs on the driver's
// real-time thread and must not allocate, lock or block.
type Callback func(out []int16, info CallbackInfo) CallbackResult

// StreamParams is the output stream the engine asks a driver to negotiate
type StreamParams struct {
	SampleRate       int
	Channels         int
	FramesPerBuffer  int
	SuggestedLatency time.Duration // zero selects the driver default
	HostAPI          string        // empty selects the default host API
	Device           string        // empty or "default" selects the default output device
}

// StreamHooks carries notifications raised by a driver outside the data callback.
// Hooks may run on a driver thread and must return quickly.
type StreamHooks struct {
	// Halted reports that the stream stopped without being asked to,
	// for example because the device was unplugged.
	Halted func(err error)
}

// Stream is a negotiated output stream.
//
// Stop must not return while a callback is still executing, and no callback
// may start after Stop returns until the next Start.
type Stream interface {
	Start() error
	Stop() error
	Close() error
}

// Driver opens output streams on a host audio API
type Driver interface {
	Name() string
	Open(params StreamParams, cb Callback, hooks StreamHooks) (Stream, error)
}

// DeviceInfo describes a playback device
type DeviceInfo struct {
	Index   int    `json:"index"`
	Name    string `json:"name"`
	ID      string `json:"id"`
	Default bool   `json:"default"`
	HostAPI string `json:"hostApi"`
}

// DeviceLister is implemented by drivers that can enumerate playback devices
type DeviceLister interface {
	Devices(hostAPI string) ([]DeviceInfo, error)
}
