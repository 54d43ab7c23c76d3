package cmd

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/oshokin/attention-monitor/internal/service/status"
)

var (
	// statusJSON prints the report as JSON.
	statusJSON bool
	// statusWatch keeps polling until interrupted.
	statusWatch bool
	// statusInterval is the polling interval in watch mode.
	statusInterval = status.DefaultInterval
	// statusTimeout is the per-call timeout; zero uses settings.
	statusTimeout time.Duration

	// statusCmd checks the health endpoint of a running monitor.
	statusCmd = &cobra.Command{
		Use:   "status [address]",
		Short: "Show the health of a running monitor.",
		Long: `Queries the gRPC health endpoint of a running monitor and prints the status of
the process and of each signal. A signal reports NOT_SERVING while it is in
warning. The address defaults to health.listen_address from settings.

Exits with a non-zero status when any service is not SERVING.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling for watch mode.
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			// Use address argument if provided, otherwise rely on config.
			var address string
			if len(args) > 0 {
				address = args[0]
			}

			options := &status.Options{
				ConfigPath: configPath,
				EnvFile:    envFile,
				Address:    address,
				Timeout:    statusTimeout,
				JSON:       statusJSON,
				Watch:      statusWatch,
				Interval:   statusInterval,
				Output:     cmd.OutOrStdout(),
			}

			return status.Run(ctx, options)
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "print the report as JSON")
	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "keep polling until interrupted")
	statusCmd.Flags().DurationVar(&statusInterval, "interval", status.DefaultInterval, "polling interval in watch mode")
	statusCmd.Flags().DurationVarP(&statusTimeout, "timeout", "t", 0, "per-call timeout (defaults to health.timeout)")
}
