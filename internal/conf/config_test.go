package conf

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/pcmplay/internal/playback"
)

// Load uses the global viper instance, so these tests do not run in parallel.

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	settings, err := Load(writeConfig(t, "debug: false\n"))
	require.NoError(t, err)

	p := settings.Playback
	assert.Equal(t, 48000, p.SampleRate)
	assert.Equal(t, 2, p.Channels)
	assert.Equal(t, 4, p.BufferCount)
	assert.Equal(t, 10*time.Millisecond, p.BufferDuration)
	assert.Equal(t, "silence", p.Policy)
	assert.Equal(t, BackendMalgo, p.Backend)
	assert.Equal(t, 480, p.FramesPerBuffer())

	require.NotNil(t, settings.Logging.Console)
	assert.True(t, settings.Logging.Console.Enabled)
	assert.Equal(t, "info", settings.Logging.DefaultLevel)
	assert.Same(t, settings, GetSettings())
}

func TestLoadFileAndEnvironmentPrecedence(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, `
playback:
  samplerate: 44100
  channels: 1
  bufferduration: 20ms
  policy: tone
  backend: "null"
telemetry:
  listen: 127.0.0.1:9090
`)
	t.Setenv("PCMPLAY_PLAYBACK_BUFFERCOUNT", "8")
	t.Setenv("PCMPLAY_POLICY", "noise")

	settings, err := Load(path)
	require.NoError(t, err)

	p := settings.Playback
	assert.Equal(t, 44100, p.SampleRate)
	assert.Equal(t, 1, p.Channels)
	assert.Equal(t, 8, p.BufferCount, "environment overrides defaults")
	assert.Equal(t, "noise", p.Policy, "environment overrides the file")
	assert.Equal(t, BackendNull, p.Backend)
	assert.Equal(t, 882, p.FramesPerBuffer())
	assert.Equal(t, "127.0.0.1:9090", settings.Telemetry.Listen)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	resetViper(t)

	path := writeConfig(t, `
playback:
  channels: 6
  buffercount: 1
  backend: asio
`)
	_, err := Load(path)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	require.Len(t, ve.Errors, 1)
	assert.Contains(t, ve.Errors[0], "channels must be 1 or 2")
	assert.Contains(t, ve.Errors[0], "buffercount must be at least 2")
	assert.Contains(t, ve.Errors[0], `backend must be one of malgo, oto, null, got "asio"`)
}

func TestLoadRejectsInvalidEnvironment(t *testing.T) {
	resetViper(t)

	t.Setenv("PCMPLAY_BACKEND", "coreaudio")
	_, err := Load(writeConfig(t, "debug: true\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PCMPLAY_BACKEND")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	resetViper(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidatePlaybackSettings(t *testing.T) {
	t.Parallel()

	valid := func() PlaybackSettings {
		return PlaybackSettings{
			SampleRate: 48000, Channels: 2, BufferCount: 4,
			BufferDuration: 10 * time.Millisecond, Policy: "silence", Backend: BackendOto,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*PlaybackSettings)
		wantErr string
	}{
		{"valid", func(*PlaybackSettings) {}, ""},
		{"low sample rate", func(p *PlaybackSettings) { p.SampleRate = 4000 }, "samplerate"},
		{"tiny slot", func(p *PlaybackSettings) { p.BufferDuration = 100 * time.Microsecond }, "need at least 16"},
		{"zero duration", func(p *PlaybackSettings) { p.BufferDuration = 0 }, "bufferduration must be positive"},
		{"negative latency", func(p *PlaybackSettings) { p.Latency = -time.Millisecond }, "latency"},
		{"negative timeout", func(p *PlaybackSettings) { p.OverrunTimeout = -time.Second }, "overruntimeout"},
		{"unknown policy", func(p *PlaybackSettings) { p.Policy = "whitenoise" }, "policy must be"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := valid()
			tt.mutate(&p)
			err := validatePlaybackSettings(&p)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateTelemetrySettings(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateTelemetrySettings(&TelemetrySettings{}))
	assert.Error(t, validateTelemetrySettings(&TelemetrySettings{Listen: "9090"}))
	assert.Error(t, validateTelemetrySettings(&TelemetrySettings{Sentry: SentrySettings{Enabled: true}}))
}

func TestToPlaybackConfig(t *testing.T) {
	t.Parallel()

	p := PlaybackSettings{
		SampleRate: 44100, Channels: 2, BufferCount: 3, BufferDuration: 5 * time.Millisecond,
		Latency: 30 * time.Millisecond, Policy: "Tone", OverrunTimeout: time.Second,
		HostAPI: "pulseaudio", Device: "USB",
	}
	cfg, err := p.ToPlaybackConfig()
	require.NoError(t, err)
	assert.Equal(t, playback.Config{
		SampleRate: 44100, Channels: 2, FramesPerBuffer: 221, BufferCount: 3,
		Policy: playback.PolicyTone, SuggestedLatency: 30 * time.Millisecond,
		HostAPI: "pulseaudio", Device: "USB", OverrunTimeout: time.Second,
	}, cfg)
	require.NoError(t, cfg.Validate())

	p.Policy = "loud"
	_, err = p.ToPlaybackConfig()
	assert.ErrorIs(t, err, playback.ErrInvalidConfig)
}

func TestDumpYAMLMasksSecrets(t *testing.T) {
	t.Parallel()

	settings := &Settings{
		Playback:  PlaybackSettings{SampleRate: 48000, BufferDuration: 10 * time.Millisecond},
		Telemetry: TelemetrySettings{Sentry: SentrySettings{Enabled: true, DSN: "https://key@sentry.example/1"}},
	}

	var buf bytes.Buffer
	require.NoError(t, DumpYAML(&buf, settings))
	assert.NotContains(t, buf.String(), "key@sentry")
	assert.Contains(t, buf.String(), "bufferduration: 10ms")
	assert.Equal(t, "https://key@sentry.example/1", settings.Telemetry.Sentry.DSN, "input is not modified")

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Contains(t, decoded, "playback")
}
