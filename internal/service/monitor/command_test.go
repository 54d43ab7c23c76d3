package monitor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/attention-monitor/internal/config"
	"github.com/oshokin/attention-monitor/internal/domain/face"
)

// TestOverrides verifies command line options win over settings.
func TestOverrides(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Alarm: config.Alarm{SoundPath: "settings.wav"},
		Video: config.Video{Device: "0"},
	}

	for _, opt := range overrides(&Options{SoundPath: "cli.wav", Device: "rtsp://cam", Headless: true, LogLevel: "debug"}) {
		opt(cfg)
	}

	require.Equal(t, "cli.wav", cfg.Alarm.SoundPath)
	require.Equal(t, "rtsp://cam", cfg.Video.Device)
	require.True(t, cfg.Video.Headless)
	require.Equal(t, "debug", cfg.LogLevel)

	kept := &config.Config{Alarm: config.Alarm{SoundPath: "settings.wav"}}
	for _, opt := range overrides(new(Options)) {
		opt(kept)
	}

	require.Equal(t, "settings.wav", kept.Alarm.SoundPath)
	require.False(t, kept.Video.Headless)
}

// TestIndices verifies the default mesh layout and custom overrides.
func TestIndices(t *testing.T) {
	t.Parallel()

	require.Equal(t, face.DefaultIndices(), indices(nil))

	custom := indices(&config.LandmarkIndices{
		NoseBridge: 6, NoseTip: 4, Chin: 199,
		LeftEyeTop: 159, LeftEyeBottom: 145, RightEyeTop: 386, RightEyeBottom: 374,
	})
	require.Equal(t, 6, custom.NoseBridge)
	require.Equal(t, 199, custom.Chin)
}

// TestRun_InvalidSettings fails before touching any device.
func TestRun_InvalidSettings(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "monitor.yaml")
	require.NoError(t, os.WriteFile(path, []byte("alarm:\n  sound_path: alarm.wav\n"), 0o600))

	err := Run(context.Background(), &Options{
		ConfigPath: path,
		EnvFile:    filepath.Join(dir, "missing.env"),
	})
	require.Error(t, err)
}
