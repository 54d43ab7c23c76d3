package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// TestFromContext_FallsBackToGlobal ensures a bare context yields the global logger.
func TestFromContext_FallsBackToGlobal(t *testing.T) {
	t.Parallel()

	require.Same(t, Logger(), FromContext(context.Background()))
}

// TestWithKV_AttachesFields verifies that key-value pairs travel with the context logger.
func TestWithKV_AttachesFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.DebugLevel)
	ctx := ToContext(context.Background(), zap.New(core).Sugar())

	ctx = WithName(ctx, "monitor")
	ctx = WithKV(ctx, "signal", "head_tilt")

	InfoKV(ctx, "Warning raised", "elapsed", "4s")

	entries := logs.All()
	require.Len(t, entries, 1)
	require.Equal(t, "monitor", entries[0].LoggerName)
	require.Equal(t, "head_tilt", entries[0].ContextMap()["signal"])
	require.Equal(t, "4s", entries[0].ContextMap()["elapsed"])
}
