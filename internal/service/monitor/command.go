package monitor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/oshokin/attention-monitor/internal/api/grpc/health"
	"github.com/oshokin/attention-monitor/internal/config"
	"github.com/oshokin/attention-monitor/internal/domain/face"
	"github.com/oshokin/attention-monitor/internal/domain/signal"
	"github.com/oshokin/attention-monitor/internal/landmarks"
	"github.com/oshokin/attention-monitor/internal/logger"
	"github.com/oshokin/attention-monitor/internal/repository/episode"
	"github.com/oshokin/attention-monitor/internal/service/alarm"
	"github.com/oshokin/attention-monitor/internal/service/sound"
	"github.com/oshokin/attention-monitor/internal/version"
	"github.com/oshokin/attention-monitor/internal/video"
)

// Options controls the monitor process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// EnvFile is the optional dotenv file loaded before the settings.
	EnvFile string
	// SoundPath overrides the alarm sound from settings.
	SoundPath string
	// Device overrides the video device from settings.
	Device string
	// Headless disables the preview window regardless of settings.
	Headless bool
	// LogLevel overrides the log level from settings.
	LogLevel string
}

// errUnknownLogLevel is returned when the configured level cannot be parsed.
var errUnknownLogLevel = errors.New("unknown log level")

// Run wires the adapters from settings and runs the frame loop until the
// stream ends, the user quits or ctx is canceled.
//
//nolint:cyclop,funlen // Sequential wiring of optional components.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "attention-monitor")

	if err := config.LoadEnv(opts.EnvFile); err != nil {
		return err
	}

	settings, err := config.Load(opts.ConfigPath, overrides(opts)...)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	level, ok := logger.ParseLogLevel(settings.LogLevel)
	if !ok {
		return fmt.Errorf("%w: %q", errUnknownLogLevel, settings.LogLevel)
	}

	logger.SetLevel(level)

	sessionID := uuid.New()
	ctx = logger.WithKV(ctx, "session_id", sessionID.String())

	if settings.Player.KillOrphans {
		killed, killErr := sound.KillOrphans(settings.Player.Command)
		if killErr != nil {
			logger.WarnKV(ctx, "Failed to clean up orphaned players", "error", killErr)
		} else if killed > 0 {
			logger.InfoKV(ctx, "Killed orphaned players", "count", killed)
		}
	}

	player := sound.NewPlayer(settings.Player.Command, settings.Player.Args...)
	controller := alarm.NewController(ctx, player, settings.Alarm.SoundPath,
		alarm.WithRetryInterval(settings.Alarm.RetryInterval))

	defer func() {
		if closeErr := controller.Close(); closeErr != nil {
			logger.WarnKV(ctx, "Failed to stop alarm", "error", closeErr)
		}
	}()

	source, err := video.Open(settings.Video.Device)
	if err != nil {
		return err
	}
	defer source.Close()

	detector := landmarks.NewClient(settings.Landmarks.URL, settings.Landmarks.Timeout)
	defer detector.Close()

	loopOptions := &LoopOptions{
		Source:             source,
		Detector:           detector,
		Alarm:              controller,
		Indices:            indices(settings.Landmarks.Indices),
		WarningThreshold:   settings.WarningThreshold,
		HeadTiltThreshold:  settings.HeadTiltThresholdDegrees,
		EyeClosedThreshold: settings.EyeClosedThreshold,
		SessionID:          sessionID,
	}

	if !settings.Video.Headless {
		window := video.NewWindow(settings.Video.WindowTitle, []rune(settings.Video.QuitKey)[0])
		defer window.Close()

		loopOptions.Renderer = window
	}

	if settings.Journal.Path != "" {
		repo, repoErr := episode.NewSQLiteRepository(ctx, settings.Journal.Path)
		if repoErr != nil {
			return fmt.Errorf("open journal: %w", repoErr)
		}
		defer repo.Close()

		loopOptions.Journal = repo
	}

	if settings.Health.ListenAddress != "" {
		reporter := health.NewReporter(signal.Names()...)
		loopOptions.Reporter = reporter

		stop := serveHealth(ctx, settings.Health.ListenAddress, reporter)
		defer stop()
	}

	logger.InfoKV(ctx, "Attention monitor starting",
		"version", version.Short(),
		"device", settings.Video.Device,
		"landmarks_url", settings.Landmarks.URL,
		"sound_path", settings.Alarm.SoundPath,
		"headless", settings.Video.Headless,
	)

	return NewLoop(loopOptions).Run(ctx)
}

// overrides turns command line options into configuration options.
func overrides(opts *Options) []config.Option {
	return []config.Option{
		func(cfg *config.Config) {
			if opts.SoundPath != "" {
				cfg.Alarm.SoundPath = opts.SoundPath
			}

			if opts.Device != "" {
				cfg.Video.Device = opts.Device
			}

			if opts.Headless {
				cfg.Video.Headless = true
			}

			if opts.LogLevel != "" {
				cfg.LogLevel = opts.LogLevel
			}
		},
	}
}

// indices resolves the configured landmark positions.
func indices(custom *config.LandmarkIndices) face.Indices {
	if custom == nil {
		return face.DefaultIndices()
	}

	return face.Indices{
		NoseBridge:     custom.NoseBridge,
		NoseTip:        custom.NoseTip,
		Chin:           custom.Chin,
		LeftEyeTop:     custom.LeftEyeTop,
		LeftEyeBottom:  custom.LeftEyeBottom,
		RightEyeTop:    custom.RightEyeTop,
		RightEyeBottom: custom.RightEyeBottom,
	}
}

// serveHealth runs the health server in the background. The returned
// function stops it and waits for it to exit.
func serveHealth(ctx context.Context, address string, reporter *health.Reporter) func() {
	serveCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		if err := health.Serve(serveCtx, address, reporter); err != nil {
			logger.ErrorKV(ctx, "Health server failed", "error", err)
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
