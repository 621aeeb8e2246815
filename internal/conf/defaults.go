package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/pcmplay/internal/logger"
)

// setDefaultConfig sets default values for every configuration key.
// Keys need a default to be picked up from the environment.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	viper.SetDefault("playback.samplerate", 48000)
	viper.SetDefault("playback.channels", 2)
	viper.SetDefault("playback.buffercount", 4)
	viper.SetDefault("playback.bufferduration", 10*time.Millisecond)
	viper.SetDefault("playback.latency", time.Duration(0))
	viper.SetDefault("playback.policy", "silence")
	viper.SetDefault("playback.overruntimeout", time.Duration(0))
	viper.SetDefault("playback.backend", BackendMalgo)
	viper.SetDefault("playback.hostapi", "")
	viper.SetDefault("playback.device", "default")

	viper.SetDefault("logging.default_level", logger.DefaultLogLevel)
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	viper.SetDefault("logging.console.level", logger.DefaultLogLevel)
	viper.SetDefault("logging.console.stderr", true)
	viper.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	viper.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	viper.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	viper.SetDefault("telemetry.listen", "")
	viper.SetDefault("telemetry.sentry.enabled", false)
	viper.SetDefault("telemetry.sentry.dsn", "")
}
