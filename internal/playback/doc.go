// Package playback implements a low-latency PCM playback engine that bridges
// an application thread producing samples to a host audio driver pulling
// them from a real-time callback.
//
// # Architecture
//
// The engine owns a fixed pool of N int16 buffers ("slots"), each holding
// FramesPerBuffer × Channels interleaved samples. Slots are used strictly in
// ring order:
//
//	producer (application goroutine)          consumer (driver callback)
//	  WriteMono / WriteStereo                   render
//	  fills slot[write] ──► ready++     ready-- ◄── copies slot[read]
//
// The ready counter is the only state mutated by both sides. The producer
// owns the write cursor (slot + sample offset), the consumer owns the read
// cursor. A slot is published by incrementing ready after it is completely
// written, and released by decrementing ready after it is completely copied,
// so slot contents never need additional synchronization.
//
// # Lifecycle
//
//	Uninitialized ──New──► Ready ──Start / pool full──► Streaming
//	                         ▲                              │
//	                         └───────────Stop───────────────┘
//	Ready | Streaming ──Close──► TornDown
//
// Construction negotiates an output-only stream with the Driver and fails
// with a descriptive error if the driver rejects the configuration. The
// stream is started automatically the first time every slot is filled
// (pre-roll), or explicitly with Start. Stop halts the stream and discards
// every queued sample. Close is safe to call repeatedly.
//
// # Real-time constraints
//
// The driver callback never allocates, locks, logs or blocks. When no slot
// is ready it counts an underrun and synthesizes output according to the
// configured UnderrunPolicy (silence, noise or a phase-continuous tone).
// Panics inside the callback are recovered into silent output and counted.
//
// When every slot is full the producer waits: it yields the processor on
// each retry, backs off exponentially after a burst of yields, and counts one
// overrun per retry. Waiting happens only on the producer side.
//
// # Concurrency
//
// Producer methods (WriteMono, WriteStereo, Flush, Drain) and lifecycle
// methods (Start, Stop, Close, SetUnderrunPolicy) must be called from a
// single application goroutine. Snapshot and State are safe from any
// goroutine.
package playback
