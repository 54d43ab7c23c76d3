package sound

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// soundFile creates a placeholder sound resource.
func soundFile(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "alarm.wav")
	require.NoError(t, os.WriteFile(path, []byte("RIFF"), 0o600))

	return path
}

// TestPlayer_MissingSound reports a missing resource before spawning anything.
func TestPlayer_MissingSound(t *testing.T) {
	t.Parallel()

	p := NewPlayer("ffplay")

	err := p.Play(context.Background(), filepath.Join(t.TempDir(), "missing.wav"))
	require.ErrorIs(t, err, ErrSoundNotFound)
	require.False(t, p.Playing())
}

// TestPlayer_MissingCommand reports a player that is not installed.
func TestPlayer_MissingCommand(t *testing.T) {
	t.Parallel()

	p := NewPlayer("definitely-not-a-real-player-binary")

	err := p.Play(context.Background(), soundFile(t))
	require.ErrorIs(t, err, ErrPlayerNotFound)
	require.False(t, p.Playing())
}

// TestPlayer_PlayStop runs a long-lived stand-in player and stops it.
func TestPlayer_PlayStop(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("tail is not available on windows")
	}

	p := NewPlayer("tail", "-f")
	path := soundFile(t)

	require.NoError(t, p.Play(context.Background(), path))
	require.True(t, p.Playing())

	// Second Play is a no-op.
	require.NoError(t, p.Play(context.Background(), path))

	require.NoError(t, p.Stop())
	require.False(t, p.Playing())

	// Stopping an idle player is a no-op.
	require.NoError(t, p.Stop())
}

// TestPlayer_ContextCancelEndsLoop verifies the parent context bounds playback.
func TestPlayer_ContextCancelEndsLoop(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("tail is not available on windows")
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPlayer("tail", "-f")

	require.NoError(t, p.Play(ctx, soundFile(t)))
	cancel()

	require.NoError(t, p.Stop())
	require.False(t, p.Playing())
}

// TestExecutable adds the Windows suffix only where needed.
func TestExecutable(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		require.Equal(t, "ffplay.exe", Executable("ffplay"))
		require.Equal(t, "player.cmd", Executable("player.cmd"))

		return
	}

	require.Equal(t, "ffplay", Executable("ffplay"))
}

// TestKillOrphans_NoMatch leaves the process table alone when nothing matches.
func TestKillOrphans_NoMatch(t *testing.T) {
	t.Parallel()

	killed, err := KillOrphans("definitely-not-a-real-player-binary")
	require.NoError(t, err)
	require.Zero(t, killed)
}
