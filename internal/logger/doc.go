// Package logger wraps zap with a global console logger on stderr and
// context helpers (ToContext, FromContext, WithName, WithKV).
//
// Services receive a context and log through it, so names and session
// fields attached upstream follow every message.
package logger
