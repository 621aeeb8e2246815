// config.go: settings struct for pcmplay and the functions that load and dump it.
package conf

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/logger"
	"github.com/tphakala/pcmplay/internal/playback"
)

const componentConf = "configuration"

// PlaybackSettings configures the playback engine and its host driver
type PlaybackSettings struct {
	SampleRate     int           `yaml:"samplerate" mapstructure:"samplerate"`         // frames per second
	Channels       int           `yaml:"channels" mapstructure:"channels"`             // 1 or 2
	BufferCount    int           `yaml:"buffercount" mapstructure:"buffercount"`       // slots in the pool
	BufferDuration time.Duration `yaml:"bufferduration" mapstructure:"bufferduration"` // length of one slot
	Latency        time.Duration `yaml:"latency" mapstructure:"latency"`               // suggested device latency, 0 for driver default
	Policy         string        `yaml:"policy" mapstructure:"policy"`                 // underrun policy: silence, noise or tone
	OverrunTimeout time.Duration `yaml:"overruntimeout" mapstructure:"overruntimeout"` // 0 waits forever for a free slot
	Backend        string        `yaml:"backend" mapstructure:"backend"`               // malgo, oto or null
	HostAPI        string        `yaml:"hostapi" mapstructure:"hostapi"`               // host API for the malgo backend
	Device         string        `yaml:"device" mapstructure:"device"`                 // output device name or ID
}

// SentrySettings configures error reporting
type SentrySettings struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	DSN     string `yaml:"dsn" mapstructure:"dsn"`
}

// TelemetrySettings configures the status endpoint and error reporting
type TelemetrySettings struct {
	Listen string         `yaml:"listen" mapstructure:"listen"` // host:port for the HTTP endpoint, empty disables it
	Sentry SentrySettings `yaml:"sentry" mapstructure:"sentry"`
}

// Settings is the root of the configuration
type Settings struct {
	Debug     bool                 `yaml:"debug" mapstructure:"debug"`
	Playback  PlaybackSettings     `yaml:"playback" mapstructure:"playback"`
	Logging   logger.LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Telemetry TelemetrySettings    `yaml:"telemetry" mapstructure:"telemetry"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads configuration from defaults, the config file, PCMPLAY_ environment
// variables and any flags bound to viper, in increasing precedence. An empty
// configFile searches the default config paths; a missing file is not an error.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(configFile); err != nil {
		return nil, err
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component(componentConf).
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, errors.New(err).
			Component(componentConf).
			Category(errors.CategoryValidation).
			Build()
	}

	settingsInstance = settings
	return settings, nil
}

func initViper(configFile string) error {
	viper.SetConfigType("yaml")
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		paths, err := GetDefaultConfigPaths()
		if err != nil {
			return err
		}
		for _, path := range paths {
			viper.AddConfigPath(path)
		}
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		return errors.New(err).
			Component(componentConf).
			Category(errors.CategoryConfiguration).
			Context("operation", "bind_env").
			Build()
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) && configFile == "" {
			return nil
		}
		return errors.New(err).
			Component(componentConf).
			Category(errors.CategoryConfiguration).
			Context("operation", "read_config").
			Build()
	}
	return nil
}

// GetSettings returns the settings from the last successful Load
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// FramesPerBuffer converts BufferDuration into frames at SampleRate
func (p *PlaybackSettings) FramesPerBuffer() int {
	return int((int64(p.SampleRate)*int64(p.BufferDuration) + int64(time.Second)/2) / int64(time.Second))
}

// ToPlaybackConfig maps the settings onto an engine configuration
func (p *PlaybackSettings) ToPlaybackConfig() (playback.Config, error) {
	policy, err := playback.ParsePolicy(p.Policy)
	if err != nil {
		return playback.Config{}, err
	}
	return playback.Config{
		SampleRate:       p.SampleRate,
		Channels:         p.Channels,
		FramesPerBuffer:  p.FramesPerBuffer(),
		BufferCount:      p.BufferCount,
		Policy:           policy,
		SuggestedLatency: p.Latency,
		HostAPI:          p.HostAPI,
		Device:           p.Device,
		OverrunTimeout:   p.OverrunTimeout,
	}, nil
}

// DumpYAML writes the settings as YAML with secrets masked
func DumpYAML(w io.Writer, settings *Settings) error {
	masked := *settings
	if masked.Telemetry.Sentry.DSN != "" {
		masked.Telemetry.Sentry.DSN = maskedValue
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&masked); err != nil {
		return fmt.Errorf("error encoding settings: %w", err)
	}
	return enc.Close()
}

const maskedValue = "********"
