// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"slices"
	"strings"

	"github.com/tphakala/pcmplay/internal/playback"
)

// Backend names accepted by playback.backend
const (
	BackendMalgo = "malgo"
	BackendOto   = "oto"
	BackendNull  = "null"
)

// Backends lists every supported playback backend
var Backends = []string{BackendMalgo, BackendOto, BackendNull}

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validatePlaybackSettings(&settings.Playback); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateTelemetrySettings(&settings.Telemetry); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validatePlaybackSettings(p *PlaybackSettings) error {
	var errs []string

	if p.SampleRate < 8000 || p.SampleRate > 384000 {
		errs = append(errs, fmt.Sprintf("samplerate must be between 8000 and 384000, got %d", p.SampleRate))
	}
	if p.Channels < 1 || p.Channels > playback.MaxChannels {
		errs = append(errs, fmt.Sprintf("channels must be 1 or 2, got %d", p.Channels))
	}
	if p.BufferCount < playback.MinBufferCount {
		errs = append(errs, fmt.Sprintf("buffercount must be at least %d, got %d", playback.MinBufferCount, p.BufferCount))
	}
	if p.BufferDuration <= 0 {
		errs = append(errs, "bufferduration must be positive")
	} else if p.SampleRate > 0 && p.FramesPerBuffer() < playback.MinFramesPerBuffer {
		errs = append(errs, fmt.Sprintf("bufferduration %v holds %d frames, need at least %d",
			p.BufferDuration, p.FramesPerBuffer(), playback.MinFramesPerBuffer))
	}
	if p.Latency < 0 {
		errs = append(errs, "latency must not be negative")
	}
	if p.OverrunTimeout < 0 {
		errs = append(errs, "overruntimeout must not be negative")
	}
	if err := validatePolicy(p.Policy); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateBackend(p.Backend); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("playback settings errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

func validateTelemetrySettings(t *TelemetrySettings) error {
	var errs []string

	if t.Listen != "" {
		if _, _, err := net.SplitHostPort(t.Listen); err != nil {
			errs = append(errs, fmt.Sprintf("listen address %q must be host:port", t.Listen))
		}
	}
	if t.Sentry.Enabled && t.Sentry.DSN == "" {
		errs = append(errs, "sentry is enabled but no DSN is set")
	}

	if len(errs) > 0 {
		return fmt.Errorf("telemetry settings errors: %s", strings.Join(errs, ", "))
	}
	return nil
}

func validatePolicy(name string) error {
	if _, err := playback.ParsePolicy(name); err != nil {
		return fmt.Errorf("policy must be silence, noise or tone, got %q", name)
	}
	return nil
}

func validateBackend(name string) error {
	if !slices.Contains(Backends, name) {
		return fmt.Errorf("backend must be one of %s, got %q", strings.Join(Backends, ", "), name)
	}
	return nil
}
