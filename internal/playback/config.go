package playback

import (
	"fmt"
	"strings"
	"time"

	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/logger"
)

const (
	// MinBufferCount is the smallest usable pool: one slot playing, one filling
	MinBufferCount = 2
	// MinFramesPerBuffer is the smallest slot the engine accepts
	MinFramesPerBuffer = 16
	// MaxChannels is the widest layout supported (stereo)
	MaxChannels = 2
)

// PolicyKind selects what the consumer outputs when no slot is ready
type PolicyKind int32

const (
	PolicySilence PolicyKind = iota
	PolicyNoise
	PolicyTone
)

func (p PolicyKind) String() string {
	switch p {
	case PolicySilence:
		return "silence"
	case PolicyNoise:
		return "noise"
	case PolicyTone:
		return "tone"
	default:
		return fmt.Sprintf("policy(%d)", int32(p))
	}
}

// MarshalText implements encoding.TextMarshaler
func (p PolicyKind) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *PolicyKind) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePolicy converts a policy name into a PolicyKind
func ParsePolicy(name string) (PolicyKind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "silence":
		return PolicySilence, nil
	case "noise":
		return PolicyNoise, nil
	case "tone":
		return PolicyTone, nil
	default:
		return PolicySilence, errors.New(fmt.Errorf("%w: unknown underrun policy %q", ErrInvalidConfig, name)).
			Component(ComponentPlayback).
			Category(errors.CategoryValidation).
			Context("policy", name).
			Build()
	}
}

// Config describes the stream and pool the engine negotiates
type Config struct {
	SampleRate       int
	Channels         int
	FramesPerBuffer  int
	BufferCount      int
	Policy           PolicyKind
	SuggestedLatency time.Duration
	HostAPI          string
	Device           string

	// OverrunTimeout bounds how long a single write may wait for a free slot.
	// Zero waits indefinitely.
	OverrunTimeout time.Duration
}

// DefaultConfig returns 48 kHz stereo with four 10 ms buffers
func DefaultConfig() Config {
	return Config{
		SampleRate:      48000,
		Channels:        2,
		FramesPerBuffer: 480,
		BufferCount:     4,
		Policy:          PolicySilence,
	}
}

// Validate checks the configuration without contacting a driver
func (c *Config) Validate() error {
	var problem string
	switch {
	case c.Channels < 1 || c.Channels > MaxChannels:
		problem = fmt.Sprintf("channels must be 1 or 2, got %d", c.Channels)
	case c.BufferCount < MinBufferCount:
		problem = fmt.Sprintf("buffer count must be at least %d, got %d", MinBufferCount, c.BufferCount)
	case c.FramesPerBuffer < MinFramesPerBuffer:
		problem = fmt.Sprintf("frames per buffer must be at least %d, got %d", MinFramesPerBuffer, c.FramesPerBuffer)
	case c.SampleRate <= 0:
		problem = fmt.Sprintf("sample rate must be positive, got %d", c.SampleRate)
	case c.Policy < PolicySilence || c.Policy > PolicyTone:
		problem = fmt.Sprintf("unknown underrun policy %d", int32(c.Policy))
	case c.SuggestedLatency < 0:
		problem = "suggested latency must not be negative"
	case c.OverrunTimeout < 0:
		problem = "overrun timeout must not be negative"
	default:
		return nil
	}

	return errors.New(fmt.Errorf("%w: %s", ErrInvalidConfig, problem)).
		Component(ComponentPlayback).
		Category(errors.CategoryValidation).
		StreamContext(c.SampleRate, c.Channels, c.FramesPerBuffer).
		Context("buffer_count", c.BufferCount).
		Build()
}

// BufferDuration is the playback time held by one slot
func (c *Config) BufferDuration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(c.FramesPerBuffer) * time.Second / time.Duration(c.SampleRate)
}

func (c *Config) streamParams() StreamParams {
	return StreamParams{
		SampleRate:       c.SampleRate,
		Channels:         c.Channels,
		FramesPerBuffer:  c.FramesPerBuffer,
		SuggestedLatency: c.SuggestedLatency,
		HostAPI:          c.HostAPI,
		Device:           c.Device,
	}
}

// Option configures optional engine behaviour
type Option func(*Engine)

// WithLogger sets the engine logger. Defaults to the global "playback" module logger.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithID overrides the generated engine ID
func WithID(id string) Option {
	return func(e *Engine) {
		if id != "" {
			e.id = id
		}
	}
}

// WithNoiseSeed makes the noise underrun policy deterministic
func WithNoiseSeed(seed uint64) Option {
	return func(e *Engine) {
		e.noiseSeed = seed
	}
}
