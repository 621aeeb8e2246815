package play

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tphakala/pcmplay/internal/conf"
	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/logger"
	"github.com/tphakala/pcmplay/internal/observability"
	"github.com/tphakala/pcmplay/internal/playback"
	"github.com/tphakala/pcmplay/internal/playback/backends"
	"github.com/tphakala/pcmplay/internal/source"
	"github.com/tphakala/pcmplay/internal/ui"
)

// Command creates the play command
func Command(settings *conf.Settings, version string) *cobra.Command {
	var monitor bool

	cmd := &cobra.Command{
		Use:   "play <file>",
		Short: "Play a WAV, MP3 or Ogg Vorbis file",
		Long: "Decode an audio file and stream it through the playback engine. " +
			"The file's sample rate must match the stream's; set --samplerate to match.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), settings, args[0], monitor, version)
		},
	}

	if err := setupFlags(cmd); err != nil {
		panic(err)
	}
	cmd.Flags().BoolVar(&monitor, "monitor", false, "Show the terminal monitor while playing")

	return cmd
}

// setupFlags defines stream flags and tags them with their config keys
func setupFlags(cmd *cobra.Command) error {
	f := cmd.Flags()
	f.String("backend", "", "Playback backend (malgo, oto, null)")
	f.String("device", "", "Output device name or ID")
	f.String("hostapi", "", "Host API for the malgo backend (alsa, pulseaudio, wasapi, coreaudio, ...)")
	f.Int("samplerate", 0, "Stream sample rate in Hz")
	f.Int("channels", 0, "Stream channels (1 or 2)")
	f.Int("buffers", 0, "Number of buffers in the pool")
	f.Duration("buffer-duration", 0, "Length of one buffer, e.g. 10ms")
	f.Duration("latency", 0, "Suggested device latency")
	f.String("policy", "", "Underrun policy (silence, noise, tone)")
	f.Duration("overrun-timeout", 0, "Fail if the producer waits longer than this for a free buffer")
	f.String("listen", "", "Serve status and metrics on host:port")

	bindings := map[string]string{
		"playback.backend":        "backend",
		"playback.device":         "device",
		"playback.hostapi":        "hostapi",
		"playback.samplerate":     "samplerate",
		"playback.channels":       "channels",
		"playback.buffercount":    "buffers",
		"playback.bufferduration": "buffer-duration",
		"playback.latency":        "latency",
		"playback.policy":         "policy",
		"playback.overruntimeout": "overrun-timeout",
		"telemetry.listen":        "listen",
	}
	for key, flag := range bindings {
		if err := f.SetAnnotation(flag, conf.FlagAnnotation, []string{key}); err != nil {
			return fmt.Errorf("error annotating flag %s: %w", flag, err)
		}
	}
	return nil
}

func run(parent context.Context, settings *conf.Settings, path string, monitor bool, version string) error {
	if parent == nil {
		parent = context.Background()
	}
	log := logger.Global().Module("cli").With(logger.String("file", filepath.Base(path)))

	src, err := source.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	cfg, err := settings.Playback.ToPlaybackConfig()
	if err != nil {
		return err
	}
	if err := checkSourceFormat(src, &cfg); err != nil {
		return err
	}

	driver, err := backends.New(settings.Playback.Backend, nil)
	if err != nil {
		return err
	}
	engine, err := playback.New(cfg, driver)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			log.Warn("engine close failed", logger.Error(err))
		}
	}()

	engineCfg := engine.Config()
	log.Info("playback starting",
		logger.String("file", filepath.Base(path)),
		logger.String("engine_id", engine.ID()),
		logger.String("backend", engine.Backend()),
		logger.Int("sample_rate", engineCfg.SampleRate),
		logger.Int("channels", engineCfg.Channels),
		logger.Duration("buffer_duration", engineCfg.BufferDuration()),
		logger.Duration("pool_duration", engineCfg.BufferDuration()*time.Duration(engineCfg.BufferCount)))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	g, gctx := errgroup.WithContext(runCtx)

	if settings.Telemetry.Listen != "" {
		endpoint, err := observability.NewEndpoint(observability.Config{
			Listen:  settings.Telemetry.Listen,
			HostAPI: settings.Playback.HostAPI,
			Version: version,
		}, engine.Snapshot, driver)
		if err != nil {
			return err
		}
		if err := endpoint.Listen(); err != nil {
			return err
		}
		g.Go(func() error { return endpoint.Run(gctx) })
	}

	var mon *ui.Monitor
	if monitor {
		mon = ui.NewMonitor(gctx, filepath.Base(path), engine.Snapshot, ui.Options{AltScreen: true})
		g.Go(mon.Run)
	}

	start := time.Now()
	g.Go(func() error {
		defer cancelRun()
		frames, err := feed(gctx, src, engine)
		if mon != nil {
			mon.Done(err)
		}
		snap := engine.Snapshot()
		log.Info("playback finished",
			logger.Int64("frames", frames),
			logger.Duration("elapsed", time.Since(start)),
			logger.Uint64("underruns", snap.Underruns),
			logger.Uint64("overruns", snap.Overruns),
			logger.Uint64("driver_errors", snap.DriverErrors))
		return err
	})

	err = g.Wait()
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ui.ErrQuit), errors.Is(err, context.Canceled):
		log.Info("playback interrupted")
		return nil
	default:
		return err
	}
}

// feed pushes the whole source through the engine and waits for it to play out
func feed(ctx context.Context, src source.Source, engine *playback.Engine) (int64, error) {
	frames, err := source.Feed(ctx, src, engine)
	if err != nil {
		return frames, err
	}
	if err := engine.Flush(); err != nil {
		return frames, err
	}
	return frames, engine.Drain(ctx)
}

// checkSourceFormat refuses sources the stream cannot play without resampling
func checkSourceFormat(src source.Source, cfg *playback.Config) error {
	if src.SampleRate() == cfg.SampleRate {
		return nil
	}
	return errors.New(fmt.Errorf("%w: file is %d Hz but the stream is %d Hz; rerun with --samplerate %d",
		playback.ErrInvalidConfig, src.SampleRate(), cfg.SampleRate, src.SampleRate())).
		Component("cli").
		Category(errors.CategoryAudioFormat).
		Context("file_rate", src.SampleRate()).
		Context("stream_rate", cfg.SampleRate).
		Build()
}
