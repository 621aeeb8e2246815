package playback

import "sync/atomic"

// stats are monotonic over the engine lifetime; Stop does not reset them.
type stats struct {
	underruns        atomic.Uint64
	overruns         atomic.Uint64
	driverUnderflows atomic.Uint64
	driverOverflows  atomic.Uint64
	driverErrors     atomic.Uint64
	callbackFaults   atomic.Uint64
	formatMismatches atomic.Uint64
	prerollStarts    atomic.Uint64
	callbacks        atomic.Uint64
}

// Snapshot is a point-in-time view of engine diagnostics
type Snapshot struct {
	ID      string     `json:"id"`
	Backend string     `json:"backend"`
	State   State      `json:"state"`
	Active  bool       `json:"active"`
	Halted  bool       `json:"halted"`
	Policy  PolicyKind `json:"policy"`

	SampleRate      int `json:"sampleRate"`
	Channels        int `json:"channels"`
	FramesPerBuffer int `json:"framesPerBuffer"`
	PoolSize        int `json:"poolSize"`
	ReadyCount      int `json:"readyCount"`
	ReadSlot        int `json:"readSlot"`
	WriteSlot       int `json:"writeSlot"`

	Underruns        uint64 `json:"underruns"`
	Overruns         uint64 `json:"overruns"`
	DriverUnderflows uint64 `json:"driverUnderflows"`
	DriverOverflows  uint64 `json:"driverOverflows"`
	DriverErrors     uint64 `json:"driverErrors"`
	CallbackFaults   uint64 `json:"callbackFaults"`
	FormatMismatches uint64 `json:"formatMismatches"`
	PrerollStarts    uint64 `json:"prerollStarts"`
	Callbacks        uint64 `json:"callbacks"`
}

// Snapshot returns current diagnostics. Safe to call from any goroutine;
// fields are read individually so the view is not a single atomic cut.
func (e *Engine) Snapshot() Snapshot {
	state := e.State()
	return Snapshot{
		ID:      e.id,
		Backend: e.backend,
		State:   state,
		Active:  state == StateStreaming,
		Halted:  e.halted.Load(),
		Policy:  PolicyKind(e.policy.Load()),

		SampleRate:      e.cfg.SampleRate,
		Channels:        e.cfg.Channels,
		FramesPerBuffer: e.cfg.FramesPerBuffer,
		PoolSize:        e.pool.size(),
		ReadyCount:      int(e.ready.load()),
		ReadSlot:        int(e.readSlotPub.Load()),
		WriteSlot:       int(e.writeSlotPub.Load()),

		Underruns:        e.stats.underruns.Load(),
		Overruns:         e.stats.overruns.Load(),
		DriverUnderflows: e.stats.driverUnderflows.Load(),
		DriverOverflows:  e.stats.driverOverflows.Load(),
		DriverErrors:     e.stats.driverErrors.Load(),
		CallbackFaults:   e.stats.callbackFaults.Load(),
		FormatMismatches: e.stats.formatMismatches.Load(),
		PrerollStarts:    e.stats.prerollStarts.Load(),
		Callbacks:        e.stats.callbacks.Load(),
	}
}
