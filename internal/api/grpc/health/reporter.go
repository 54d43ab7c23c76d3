package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oshokin/attention-monitor/internal/logger"
)

// ServicePrefix namespaces the per-signal health services.
const ServicePrefix = "attention."

// ServiceName returns the health service name of a signal.
func ServiceName(signal string) string {
	return ServicePrefix + signal
}

// Reporter tracks the health status of the process and its signals.
type Reporter struct {
	// server is the grpc-go health implementation that holds the statuses.
	server *health.Server
	// signals are the known signal names in registration order.
	signals []string

	// mu protects warnings.
	mu sync.Mutex
	// warnings holds the last reported warning flag per signal.
	warnings map[string]bool
}

// NewReporter creates a reporter with the process and every signal SERVING.
func NewReporter(signals ...string) *Reporter {
	r := &Reporter{
		server:   health.NewServer(),
		signals:  slices.Clone(signals),
		warnings: make(map[string]bool, len(signals)),
	}

	for _, signal := range signals {
		r.server.SetServingStatus(ServiceName(signal), healthpb.HealthCheckResponse_SERVING)
		r.warnings[signal] = false
	}

	return r
}

// Services returns every service name the reporter publishes, the process
// service first.
func (r *Reporter) Services() []string {
	return Services(r.signals...)
}

// Services returns the service names published for the given signals.
func Services(signals ...string) []string {
	names := make([]string, 0, len(signals)+1)
	names = append(names, "")

	for _, signal := range signals {
		names = append(names, ServiceName(signal))
	}

	return names
}

// SetWarning publishes the warning flag of a signal. Unchanged flags are not
// re-published.
func (r *Reporter) SetWarning(signal string, warning bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.warnings[signal]; ok && prev == warning {
		return
	}

	r.warnings[signal] = warning

	status := healthpb.HealthCheckResponse_SERVING
	if warning {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}

	r.server.SetServingStatus(ServiceName(signal), status)
}

// Warning returns the last published warning flag of a signal.
func (r *Reporter) Warning(signal string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.warnings[signal]
}

// Register attaches the health service to a gRPC server.
func (r *Reporter) Register(s grpc.ServiceRegistrar) {
	healthpb.RegisterHealthServer(s, r.server)
}

// Shutdown marks every service NOT_SERVING and freezes further updates.
func (r *Reporter) Shutdown() {
	r.server.Shutdown()
}

// Serve listens on address and serves the health API until ctx is canceled.
func Serve(ctx context.Context, address string, reporter *Reporter) error {
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", address, err)
	}

	return ServeListener(ctx, lis, reporter)
}

// ServeListener serves the health API on lis until ctx is canceled. The
// reporter is shut down before the server stops so watchers observe the exit.
func ServeListener(ctx context.Context, lis net.Listener, reporter *Reporter) error {
	grpcServer := grpc.NewServer()
	reporter.Register(grpcServer)

	logger.InfoKV(ctx, "Health server listening", "listen_address", lis.Addr().String())

	// Closed after GracefulStop so the caller blocks until the server is down.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		reporter.Shutdown()
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "Health server stopped")

	return nil
}
