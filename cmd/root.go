package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tphakala/pcmplay/cmd/config"
	"github.com/tphakala/pcmplay/cmd/devices"
	"github.com/tphakala/pcmplay/cmd/play"
	"github.com/tphakala/pcmplay/internal/conf"
	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/logger"
)

// RootCommand creates and returns the root command
func RootCommand(version string) *cobra.Command {
	settings := &conf.Settings{}
	var (
		configFile string
		cleanups   []func()
	)

	rootCmd := &cobra.Command{
		Use:           "pcmplay",
		Short:         "Low-latency PCM playback",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config.yaml (default: search standard locations)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	rootCmd.PersistentFlags().String("log-level", logger.DefaultLogLevel, "Log level (trace, debug, info, warn, error)")
	annotate(rootCmd, "debug", "debug")
	annotate(rootCmd, "log-level", "logging.default_level", "logging.console.level", "logging.file_output.level")

	rootCmd.AddCommand(
		play.Command(settings, version),
		devices.Command(settings),
		config.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := conf.BindFlags(cmd.Flags()); err != nil {
			return err
		}
		loaded, err := conf.Load(configFile)
		if err != nil {
			return err
		}
		*settings = *loaded

		cleanup, err := initialize(cmd, settings, version)
		cleanups = append(cleanups, cleanup...)
		return err
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return rootCmd
}

// initialize sets up logging and error reporting once settings are loaded
func initialize(cmd *cobra.Command, settings *conf.Settings, version string) ([]func(), error) {
	var cleanups []func()

	if settings.Debug {
		settings.Logging.DefaultLevel = "debug"
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = "debug"
		}
	}
	// the terminal monitor owns the screen
	if monitor, err := cmd.Flags().GetBool("monitor"); err == nil && monitor && settings.Logging.Console != nil {
		settings.Logging.Console.Enabled = false
	}

	central, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return cleanups, fmt.Errorf("error initializing logger: %w", err)
	}
	logger.SetGlobal(central)
	cleanups = append(cleanups, func() { _ = central.Close() })

	if settings.Telemetry.Sentry.Enabled {
		flush, err := errors.InitSentry(settings.Telemetry.Sentry.DSN, "pcmplay@"+version)
		if err != nil {
			return cleanups, err
		}
		cleanups = append(cleanups, flush)
	}

	central.Module("cli").Debug("configuration loaded",
		logger.String("command", cmd.Name()),
		logger.String("config_file", viper.ConfigFileUsed()),
		logger.String("backend", settings.Playback.Backend))
	return cleanups, nil
}

// annotate tags a persistent flag with the config keys it overrides
func annotate(cmd *cobra.Command, flag string, keys ...string) {
	if err := cmd.PersistentFlags().SetAnnotation(flag, conf.FlagAnnotation, keys); err != nil {
		panic(fmt.Sprintf("annotating flag %s: %v", flag, err))
	}
}
