package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the attention monitor.
type Config struct {
	// WarningThreshold is how long a condition must hold before the alarm fires.
	WarningThreshold time.Duration `yaml:"warning_threshold"`
	// HeadTiltThresholdDegrees is the allowed deviation from the baseline head angle.
	HeadTiltThresholdDegrees float64 `yaml:"head_tilt_threshold_degrees"`
	// EyeClosedThreshold is the normalized lid distance under which an eye counts as closed.
	EyeClosedThreshold float64 `yaml:"eye_closed_threshold"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Alarm     Alarm     `yaml:"alarm"`
	Player    Player    `yaml:"player"`
	Video     Video     `yaml:"video"`
	Landmarks Landmarks `yaml:"landmarks"`
	Journal   Journal   `yaml:"journal"`
	Health    Health    `yaml:"health"`
}

// Alarm configures the alarm controller.
type Alarm struct {
	// SoundPath is the audio file played in a loop while a warning is active.
	SoundPath string `yaml:"sound_path"`
	// RetryInterval is the pause before retrying after a failed playback start.
	RetryInterval time.Duration `yaml:"retry_interval"`
}

// Player configures the external command used to play the alarm sound.
type Player struct {
	// Command is the player executable looked up in PATH.
	Command string `yaml:"command"`
	// Args are passed before the sound path.
	Args []string `yaml:"args"`
	// KillOrphans terminates leftover player processes from a previous crashed run.
	KillOrphans bool `yaml:"kill_orphans"`
}

// Video configures the frame source and the preview window.
type Video struct {
	// Device is a camera index ("0") or a stream URL / file path.
	Device string `yaml:"device"`
	// Headless disables the preview window.
	Headless bool `yaml:"headless"`
	// WindowTitle is the preview window caption.
	WindowTitle string `yaml:"window_title"`
	// QuitKey closes the monitor when pressed in the preview window.
	QuitKey string `yaml:"quit_key"`
}

// Landmarks configures the face-mesh sidecar connection.
type Landmarks struct {
	// URL is the websocket endpoint of the landmark detector.
	URL string `yaml:"url"`
	// Timeout bounds a single detection round trip.
	Timeout time.Duration `yaml:"timeout"`
	// Indices overrides the semantic landmark positions.
	Indices *LandmarkIndices `yaml:"indices,omitempty"`
}

// LandmarkIndices maps facial features to positions in the detector output.
type LandmarkIndices struct {
	NoseBridge     int `yaml:"nose_bridge"`
	NoseTip        int `yaml:"nose_tip"`
	Chin           int `yaml:"chin"`
	LeftEyeTop     int `yaml:"left_eye_top"`
	LeftEyeBottom  int `yaml:"left_eye_bottom"`
	RightEyeTop    int `yaml:"right_eye_top"`
	RightEyeBottom int `yaml:"right_eye_bottom"`
}

// Journal configures the warning episode journal.
type Journal struct {
	// Path is the SQLite database file. Empty disables the journal.
	Path string `yaml:"path"`
}

// Health configures the gRPC health endpoint.
type Health struct {
	// ListenAddress is where the monitor serves gRPC health. Empty disables it.
	ListenAddress string `yaml:"listen_address"`
	// Timeout is the per-call timeout used by the status command.
	Timeout time.Duration `yaml:"timeout"`
}

// Option mutates a configuration after it is read and before it is validated.
type Option func(*Config)

const (
	// DefaultConfigFilename is the default filename for monitor settings.
	DefaultConfigFilename = "attention-monitor.yaml"

	// DefaultEnvFilename is the optional dotenv file read before settings.
	DefaultEnvFilename = ".env"

	// DefaultWarningThreshold is how long a condition must hold by default.
	DefaultWarningThreshold = 4 * time.Second

	// DefaultHeadTiltThresholdDegrees is the default allowed head deviation.
	DefaultHeadTiltThresholdDegrees = 15.0

	// DefaultEyeClosedThreshold is the default normalized lid distance for a closed eye.
	DefaultEyeClosedThreshold = 0.02

	// DefaultRetryInterval is the default pause after a failed playback start.
	DefaultRetryInterval = 5 * time.Second

	// DefaultPlayerCommand is the default sound player executable.
	DefaultPlayerCommand = "ffplay"

	// DefaultVideoDevice is the first local camera.
	DefaultVideoDevice = "0"

	// DefaultWindowTitle is the default preview window caption.
	DefaultWindowTitle = "Attention Monitor"

	// DefaultQuitKey is the default key closing the preview window.
	DefaultQuitKey = "q"

	// DefaultLandmarksTimeout bounds a detection round trip by default.
	DefaultLandmarksTimeout = 2 * time.Second

	// DefaultTimeout is the default duration for health calls.
	DefaultTimeout = 5 * time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

// Environment variables that override file settings.
const (
	EnvAlarmSound   = "ATTENTION_ALARM_SOUND"
	EnvLandmarksURL = "ATTENTION_LANDMARKS_URL"
	EnvVideoDevice  = "ATTENTION_VIDEO_DEVICE"
	EnvLogLevel     = "ATTENTION_LOG_LEVEL"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errSoundPathRequired is returned when no alarm sound is configured.
	errSoundPathRequired = errors.New("alarm sound path must be provided")
	// errLandmarksURLRequired is returned when the detector endpoint is missing.
	errLandmarksURLRequired = errors.New("landmarks url must be provided")
	// errInvalidQuitKey is returned when the quit key is not a single character.
	errInvalidQuitKey = errors.New("quit key must be a single character")
	// errNegativeIndex is returned when a landmark index override is negative.
	errNegativeIndex = errors.New("landmark index must not be negative")
)

// DefaultPlayerArgs are passed to ffplay so it plays the file once without a window.
func DefaultPlayerArgs() []string {
	return []string{"-nodisp", "-autoexit", "-loglevel", "quiet"}
}

// LoadEnv reads KEY=VALUE pairs from a dotenv file into the process environment.
// A missing file is not an error.
func LoadEnv(path string) error {
	if path == "" {
		path = DefaultEnvFilename
	}

	if err := godotenv.Load(filepath.Clean(path)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}

	return nil
}

// Load reads configuration from the provided path, applies environment
// overrides and options, then validates the result.
// A missing file is tolerated only for the default filename.
func Load(path string, opts ...Option) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	var cfg Config

	contents, err := os.ReadFile(filepath.Clean(path))

	switch {
	case err == nil:
		if err = yaml.Unmarshal(contents, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal settings: %w", err)
		}
	case errors.Is(err, os.ErrNotExist) && path == DefaultConfigFilename:
		// Rely on environment and options.
	default:
		return nil, fmt.Errorf("read settings: %w", err)
	}

	ApplyEnv(&cfg)

	for _, opt := range opts {
		opt(&cfg)
	}

	if err = Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// ApplyEnv overrides settings with non-empty ATTENTION_* environment variables.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv(EnvAlarmSound); v != "" {
		cfg.Alarm.SoundPath = v
	}

	if v := os.Getenv(EnvLandmarksURL); v != "" {
		cfg.Landmarks.URL = v
	}

	if v := os.Getenv(EnvVideoDevice); v != "" {
		cfg.Video.Device = v
	}

	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
	}
}

// Validate checks required fields, fills defaults and verifies formats.
//
//nolint:cyclop // A flat list of checks reads better than helpers here.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.Alarm.SoundPath == "" {
		return errSoundPathRequired
	}

	if cfg.Landmarks.URL == "" {
		return errLandmarksURLRequired
	}

	u, err := url.Parse(cfg.Landmarks.URL)
	if err != nil {
		return fmt.Errorf("invalid landmarks url: %w", err)
	}

	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid landmarks url scheme %q: expected ws or wss", u.Scheme)
	}

	if cfg.Health.ListenAddress != "" {
		if _, err = net.ResolveTCPAddr("tcp", cfg.Health.ListenAddress); err != nil {
			return fmt.Errorf("invalid health listen address: %w", err)
		}
	}

	if err = validateIndices(cfg.Landmarks.Indices); err != nil {
		return err
	}

	applyDefaults(cfg)

	if len([]rune(cfg.Video.QuitKey)) != 1 {
		return errInvalidQuitKey
	}

	return nil
}

// applyDefaults fills zero values with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.WarningThreshold <= 0 {
		cfg.WarningThreshold = DefaultWarningThreshold
	}

	if cfg.HeadTiltThresholdDegrees <= 0 {
		cfg.HeadTiltThresholdDegrees = DefaultHeadTiltThresholdDegrees
	}

	if cfg.EyeClosedThreshold <= 0 {
		cfg.EyeClosedThreshold = DefaultEyeClosedThreshold
	}

	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = DefaultLogLevel
	}

	if cfg.Alarm.RetryInterval <= 0 {
		cfg.Alarm.RetryInterval = DefaultRetryInterval
	}

	if cfg.Player.Command == "" {
		cfg.Player.Command = DefaultPlayerCommand
		cfg.Player.Args = DefaultPlayerArgs()
	}

	if cfg.Video.Device == "" {
		cfg.Video.Device = DefaultVideoDevice
	}

	if cfg.Video.WindowTitle == "" {
		cfg.Video.WindowTitle = DefaultWindowTitle
	}

	if cfg.Video.QuitKey == "" {
		cfg.Video.QuitKey = DefaultQuitKey
	}

	if cfg.Landmarks.Timeout <= 0 {
		cfg.Landmarks.Timeout = DefaultLandmarksTimeout
	}

	if cfg.Health.Timeout <= 0 {
		cfg.Health.Timeout = DefaultTimeout
	}
}

// validateIndices rejects negative landmark positions.
func validateIndices(indices *LandmarkIndices) error {
	if indices == nil {
		return nil
	}

	for _, v := range []int{
		indices.NoseBridge,
		indices.NoseTip,
		indices.Chin,
		indices.LeftEyeTop,
		indices.LeftEyeBottom,
		indices.RightEyeTop,
		indices.RightEyeBottom,
	} {
		if v < 0 {
			return errNegativeIndex
		}
	}

	return nil
}
