// env.go: environment variable bindings for pcmplay
package conf

import (
	"fmt"
	"net"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/tphakala/pcmplay/internal/errors"
)

// EnvPrefix prefixes every environment variable read by pcmplay
const EnvPrefix = "PCMPLAY"

// envBinding holds metadata for a short-form environment variable
type envBinding struct {
	ConfigKey string
	EnvVar    string
	Validate  func(string) error
}

// getEnvBindings returns the short aliases on top of the automatic
// PCMPLAY_<SECTION>_<KEY> mapping.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"playback.backend", "PCMPLAY_BACKEND", validateEnvBackend},
		{"playback.device", "PCMPLAY_DEVICE", nil},
		{"playback.hostapi", "PCMPLAY_HOSTAPI", nil},
		{"playback.policy", "PCMPLAY_POLICY", validateEnvPolicy},
		{"logging.default_level", "PCMPLAY_LOG_LEVEL", validateEnvLogLevel},
		{"telemetry.listen", "PCMPLAY_LISTEN", validateEnvListen},
		{"telemetry.sentry.dsn", "PCMPLAY_SENTRY_DSN", nil},
	}
}

// bindEnvVars enables the automatic mapping and binds the aliases,
// validating any alias that is set.
func bindEnvVars() error {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	var warnings []string
	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}
		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value '%s': %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBackend(value string) error {
	return validateBackend(value)
}

func validateEnvPolicy(value string) error {
	return validatePolicy(value)
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "warning", "error":
		return nil
	}
	return fmt.Errorf("must be one of trace, debug, info, warn, error")
}

func validateEnvListen(value string) error {
	if _, _, err := net.SplitHostPort(value); err != nil {
		return fmt.Errorf("must be host:port: %w", err)
	}
	return nil
}

// FlagAnnotation tags a command-line flag with the config key it overrides
const FlagAnnotation = "pcmplay_config_key"

// BindFlags binds every annotated flag in fs to its config keys. Call it for
// the command being executed, before Load.
func BindFlags(fs *pflag.FlagSet) error {
	var errs []error
	fs.VisitAll(func(f *pflag.Flag) {
		for _, key := range f.Annotations[FlagAnnotation] {
			if err := viper.BindPFlag(key, f); err != nil {
				errs = append(errs, fmt.Errorf("binding flag %s: %w", f.Name, err))
			}
		}
	})
	return errors.Join(errs...)
}
