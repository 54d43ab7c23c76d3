package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/attention-monitor/internal/config"
	"github.com/oshokin/attention-monitor/internal/service/monitor"
	"github.com/oshokin/attention-monitor/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// envFile is the optional dotenv file loaded before settings.
	envFile string
	// soundPath overrides the alarm sound from settings.
	soundPath string
	// device overrides the video device from settings.
	device string
	// headless disables the preview window.
	headless bool
	// logLevel overrides the log level from settings.
	logLevel string

	// rootCmd represents the base command for running the monitor.
	rootCmd = &cobra.Command{
		Use:   "attention-monitor",
		Short: "Watch a driver through a camera and sound an alarm on inattention.",
		Long: `Reads frames from a camera or stream, asks the face-mesh sidecar for landmarks
and tracks two signals: head tilt away from the first observed posture and both
eyes closed. A signal that holds for the warning threshold (4s by default)
starts a looping alarm sound; it stops as soon as the driver recovers.

Settings are read from attention-monitor.yaml and ATTENTION_* environment
variables (optionally from a .env file). Press the quit key (q) in the preview
window or send SIGINT/SIGTERM to stop.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &monitor.Options{
				ConfigPath: configPath,
				EnvFile:    envFile,
				SoundPath:  soundPath,
				Device:     device,
				Headless:   headless,
				LogLevel:   logLevel,
			}

			return monitor.Run(ctx, options)
		},
	}
)

// Execute runs the attention-monitor CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVar(&envFile, "env-file", config.DefaultEnvFilename, "optional dotenv file with ATTENTION_* variables")

	rootCmd.Flags().StringVarP(&soundPath, "alarm", "a", "", "alarm sound file (overrides alarm.sound_path)")
	rootCmd.Flags().StringVarP(&device, "device", "d", "", "camera index, stream URL or video file (overrides video.device)")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "run without the preview window")
	rootCmd.Flags().StringVarP(&logLevel, "log-level", "l", "", "log level: debug, info, warn, error")

	rootCmd.AddCommand(statusCmd)
}
