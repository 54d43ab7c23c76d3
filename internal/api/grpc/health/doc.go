// Package health exposes the monitor state through the standard gRPC health
// protocol (grpc.health.v1.Health).
//
// The overall process is reported under the empty service name and every
// debounced signal under "attention.<signal>". A signal service turns
// NOT_SERVING while its monitor is in warning. Client is the matching
// consumer used by the status command.
package health
