package status

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/oshokin/attention-monitor/internal/api/grpc/health"
	"github.com/oshokin/attention-monitor/internal/config"
	"github.com/oshokin/attention-monitor/internal/domain/signal"
	"github.com/oshokin/attention-monitor/internal/logger"
)

// Options controls the status command.
type Options struct {
	// ConfigPath specifies the path to the settings YAML file. It is read only
	// when Address is empty.
	ConfigPath string
	// EnvFile is the optional dotenv file loaded before the settings.
	EnvFile string
	// Address is the monitor health endpoint, overriding settings.
	Address string
	// Timeout is the per-call timeout.
	Timeout time.Duration
	// JSON prints protojson instead of text lines.
	JSON bool
	// Watch repeats the check every Interval until ctx is canceled.
	Watch bool
	// Interval is the delay between checks in watch mode.
	Interval time.Duration
	// Output receives the report. Defaults to stdout.
	Output io.Writer
}

// DefaultInterval is the delay between checks in watch mode.
const DefaultInterval = 2 * time.Second

// processKey labels the overall process status in reports.
const processKey = "process"

var (
	// ErrNoHealthAddress indicates that neither an argument nor settings name an endpoint.
	ErrNoHealthAddress = errors.New("no health address configured")
	// ErrUnhealthy is returned when a service reports anything but SERVING.
	ErrUnhealthy = errors.New("monitor is not healthy")
)

// Report is the status of every service keyed by signal name, with the
// process status under "process".
type Report map[string]healthpb.HealthCheckResponse_ServingStatus

// Run checks the monitor once, or repeatedly in watch mode. A single check
// returns ErrUnhealthy when any service is not SERVING.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "attention-status")

	address, timeout, err := resolve(opts)
	if err != nil {
		return err
	}

	output := opts.Output
	if output == nil {
		output = os.Stdout
	}

	client, err := health.Dial(address, health.WithCallTimeout(timeout))
	if err != nil {
		return err
	}

	// Ensure connection cleanup on function exit.
	defer func() {
		_ = client.Close()
	}()

	if !opts.Watch {
		report, checkErr := Check(ctx, client)
		if checkErr != nil {
			return checkErr
		}

		if err = Print(output, report, opts.JSON); err != nil {
			return err
		}

		if !report.Healthy() {
			return ErrUnhealthy
		}

		return nil
	}

	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	logger.InfoKV(ctx, "Watching monitor health", "address", address, "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, checkErr := Check(ctx, client)
		if checkErr != nil {
			logger.ErrorKV(ctx, "Health check failed", "error", checkErr)
		} else if err = Print(output, report, opts.JSON); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			logger.Info(ctx, "Context canceled, exiting")

			return nil
		case <-ticker.C:
		}
	}
}

// Check queries the process service and every signal service.
func Check(ctx context.Context, client *health.Client) (Report, error) {
	report := make(Report, len(signal.Names())+1)

	process, err := client.Check(ctx, "")
	if err != nil {
		return nil, err
	}

	report[processKey] = process

	for _, name := range signal.Names() {
		status, checkErr := client.Check(ctx, health.ServiceName(name))
		if checkErr != nil {
			return nil, checkErr
		}

		report[name] = status
	}

	return report, nil
}

// Healthy reports whether every service is SERVING.
func (r Report) Healthy() bool {
	for _, status := range r {
		if status != healthpb.HealthCheckResponse_SERVING {
			return false
		}
	}

	return len(r) > 0
}

// Print writes the report as "name: STATUS" lines in reporting order, or as
// a protojson object.
func Print(w io.Writer, report Report, asJSON bool) error {
	if asJSON {
		fields := make(map[string]any, len(report))
		for name, status := range report {
			fields[name] = status.String()
		}

		message, err := structpb.NewStruct(fields)
		if err != nil {
			return fmt.Errorf("build report: %w", err)
		}

		data, err := protojson.Marshal(message)
		if err != nil {
			return fmt.Errorf("encode report: %w", err)
		}

		_, err = fmt.Fprintln(w, string(data))

		return err
	}

	for _, name := range append([]string{processKey}, signal.Names()...) {
		status, ok := report[name]
		if !ok {
			continue
		}

		if _, err := fmt.Fprintf(w, "%s: %s\n", name, status); err != nil {
			return err
		}
	}

	return nil
}

// resolve picks the endpoint and timeout from options, falling back to settings.
func resolve(opts *Options) (string, time.Duration, error) {
	address, timeout := opts.Address, opts.Timeout

	if address == "" {
		if err := config.LoadEnv(opts.EnvFile); err != nil {
			return "", 0, err
		}

		settings, err := config.Load(opts.ConfigPath)
		if err != nil {
			return "", 0, fmt.Errorf("load settings: %w", err)
		}

		address = settings.Health.ListenAddress

		if timeout <= 0 {
			timeout = settings.Health.Timeout
		}
	}

	if address == "" {
		return "", 0, ErrNoHealthAddress
	}

	if timeout <= 0 {
		timeout = config.DefaultTimeout
	}

	return dialAddress(address), timeout, nil
}

// dialAddress turns a listen address such as ":50051" into a dialable one.
func dialAddress(address string) string {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return address
	}

	switch host {
	case "", "0.0.0.0", "::":
		return net.JoinHostPort("localhost", port)
	default:
		return address
	}
}
