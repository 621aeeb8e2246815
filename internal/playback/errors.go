package playback

import (
	"github.com/tphakala/pcmplay/internal/errors"
)

// ComponentPlayback is the error component name for this package
const ComponentPlayback = "playback"

// Sentinel errors. Errors returned by the engine wrap these; match with errors.Is.
var (
	// ErrInvalidConfig indicates a configuration rejected before touching the driver
	ErrInvalidConfig = errors.New(errors.NewStd("invalid playback configuration")).
				Component(ComponentPlayback).
				Category(errors.CategoryValidation).
				Build()

	// ErrDriverNegotiation indicates the host driver refused to open the stream
	ErrDriverNegotiation = errors.New(errors.NewStd("audio driver negotiation failed")).
				Component(ComponentPlayback).
				Category(errors.CategoryAudioDevice).
				Build()

	// ErrUnsupportedFormat indicates the driver negotiated a format the engine cannot feed
	ErrUnsupportedFormat = errors.New(errors.NewStd("negotiated stream format not supported")).
				Component(ComponentPlayback).
				Category(errors.CategoryAudioFormat).
				Build()

	// ErrNoDevice indicates no playback device matched the requested name
	ErrNoDevice = errors.New(errors.NewStd("no matching playback device")).
			Component(ComponentPlayback).
			Category(errors.CategoryNotFound).
			Build()

	// ErrUnknownHostAPI indicates the requested host API is not known to the driver
	ErrUnknownHostAPI = errors.New(errors.NewStd("unknown host API")).
				Component(ComponentPlayback).
				Category(errors.CategoryConfiguration).
				Build()

	// ErrStreamStart indicates the driver failed to start the negotiated stream
	ErrStreamStart = errors.New(errors.NewStd("failed to start output stream")).
			Component(ComponentPlayback).
			Category(errors.CategoryAudioDevice).
			Build()

	// ErrStreaming is returned by operations that require a stopped stream
	ErrStreaming = errors.New(errors.NewStd("operation not allowed while streaming")).
			Component(ComponentPlayback).
			Category(errors.CategoryState).
			Build()

	// ErrNotStreaming is returned when every slot is full and nothing is draining them
	ErrNotStreaming = errors.New(errors.NewStd("buffer pool full while stream is not running")).
			Component(ComponentPlayback).
			Category(errors.CategoryState).
			Build()

	// ErrClosed is returned by any operation on a torn-down engine
	ErrClosed = errors.New(errors.NewStd("playback engine is closed")).
			Component(ComponentPlayback).
			Category(errors.CategoryState).
			Build()

	// ErrProducerStalled is returned when the producer waited longer than Config.OverrunTimeout
	ErrProducerStalled = errors.New(errors.NewStd("producer stalled waiting for a free buffer")).
				Component(ComponentPlayback).
				Category(errors.CategoryTimeout).
				Build()

	// ErrStreamHalted is returned once the driver reports the stream stopped on its own
	ErrStreamHalted = errors.New(errors.NewStd("output stream halted by driver")).
			Component(ComponentPlayback).
			Category(errors.CategoryAudioDevice).
			Build()
)
