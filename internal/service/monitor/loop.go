package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/attention-monitor/internal/domain/alarm"
	"github.com/oshokin/attention-monitor/internal/domain/face"
	"github.com/oshokin/attention-monitor/internal/domain/frame"
	"github.com/oshokin/attention-monitor/internal/domain/signal"
	"github.com/oshokin/attention-monitor/internal/logger"
)

// Signal names, used for logging, journaling and health service names.
const (
	SignalHeadTilt   = signal.HeadTilt
	SignalEyesClosed = signal.EyesClosed
)

// Source delivers frames.
type Source interface {
	Read(ctx context.Context) (frame.Frame, error)
}

// Detector finds face landmarks in a frame.
type Detector interface {
	Detect(ctx context.Context, f frame.Frame) ([]face.Landmarks, error)
}

// Renderer shows a frame with its overlay and reports whether the user asked to quit.
type Renderer interface {
	Render(f frame.Frame, overlay frame.Overlay) (bool, error)
}

// Alarm accepts start and stop requests without blocking.
type Alarm interface {
	RequestStart()
	RequestStop()
	IsPlaying() bool
}

// Journal records finished warning episodes.
type Journal interface {
	Save(ctx context.Context, episode *domain.Episode) error
}

// Reporter publishes per-signal warning flags.
type Reporter interface {
	SetWarning(signal string, warning bool)
}

// LoopOptions wires the frame loop. Renderer, Journal and Reporter are optional.
type LoopOptions struct {
	Source   Source
	Detector Detector
	Renderer Renderer
	Alarm    Alarm
	Journal  Journal
	Reporter Reporter

	// Indices locates the tracked features in detector output.
	Indices face.Indices
	// WarningThreshold is how long a condition must hold before warning.
	WarningThreshold time.Duration
	// HeadTiltThreshold is the allowed deviation from the baseline in degrees.
	HeadTiltThreshold float64
	// EyeClosedThreshold is the aperture under which an eye counts as closed.
	EyeClosedThreshold float64
	// SessionID tags journaled episodes.
	SessionID uuid.UUID
	// Now returns the frame timestamp. Defaults to time.Now.
	Now func() time.Time
}

// tracked is a monitor plus its open episode, if any.
type tracked struct {
	monitor *signal.Monitor
	episode *domain.Episode
}

// Loop processes frames one at a time on the calling goroutine.
type Loop struct {
	opts LoopOptions

	head     tracked
	eyes     tracked
	baseline face.Baseline
}

// NewLoop creates a frame loop with both monitors idle and no baseline.
func NewLoop(opts *LoopOptions) *Loop {
	l := &Loop{
		opts: *opts,
		head: tracked{monitor: signal.New(SignalHeadTilt, opts.WarningThreshold)},
		eyes: tracked{monitor: signal.New(SignalEyesClosed, opts.WarningThreshold)},
	}

	if l.opts.Now == nil {
		l.opts.Now = time.Now
	}

	return l
}

// Run reads and processes frames until the source ends, the user quits or
// ctx is canceled. Those three cases return nil; a read or render failure is
// returned. The alarm is stopped and open episodes are journaled on exit.
func (l *Loop) Run(ctx context.Context) error {
	defer l.shutdown(ctx)

	logger.InfoKV(ctx, "Monitoring started",
		"warning_threshold", l.opts.WarningThreshold,
		"head_tilt_threshold", l.opts.HeadTiltThreshold,
		"eye_closed_threshold", l.opts.EyeClosedThreshold,
	)

	for {
		if ctx.Err() != nil {
			logger.Info(ctx, "Monitoring canceled")

			return nil
		}

		f, err := l.opts.Source.Read(ctx)

		switch {
		case err == nil:
		case errors.Is(err, frame.ErrEndOfStream):
			logger.Info(ctx, "Video stream ended")

			return nil
		case ctx.Err() != nil:
			logger.Info(ctx, "Monitoring canceled")

			return nil
		default:
			return fmt.Errorf("read frame: %w", err)
		}

		quit, err := l.Step(ctx, f)
		_ = f.Close()

		if err != nil {
			return err
		}

		if quit {
			logger.Info(ctx, "Quit requested")

			return nil
		}
	}
}

// Step processes one frame and renders it. It returns true when the renderer
// reports a quit request.
func (l *Loop) Step(ctx context.Context, f frame.Frame) (bool, error) {
	overlay := l.observe(ctx, f, l.opts.Now())
	overlay.AlarmPlaying = l.opts.Alarm.IsPlaying()

	if l.opts.Renderer == nil {
		return false, nil
	}

	quit, err := l.opts.Renderer.Render(f, overlay)
	if err != nil {
		return false, fmt.Errorf("render frame: %w", err)
	}

	return quit, nil
}

// Baseline returns the captured head angle baseline.
func (l *Loop) Baseline() (float64, bool) {
	return l.baseline.Angle()
}

// States returns the debounce stage of the head tilt and eyes closed monitors.
func (l *Loop) States() (head, eyes signal.State) {
	return l.head.monitor.State(), l.eyes.monitor.State()
}

// observe runs detection and the monitors for one frame and builds its overlay.
// Frames without a usable face leave the monitors untouched.
func (l *Loop) observe(ctx context.Context, f frame.Frame, now time.Time) frame.Overlay {
	faces, err := l.opts.Detector.Detect(ctx, f)
	if err != nil {
		if ctx.Err() == nil {
			logger.WarnKV(ctx, "Landmark detection failed, skipping frame", "error", err)
		}

		return l.overlay()
	}

	if len(faces) == 0 {
		return l.overlay()
	}

	width, height := f.Size()

	// The detector may report several faces; the last one is tracked.
	m, err := face.Extract(faces[len(faces)-1], l.opts.Indices, width, height)
	if err != nil {
		logger.WarnKV(ctx, "Malformed landmarks, skipping frame", "error", err)

		return l.overlay()
	}

	var (
		deviation  = l.baseline.Observe(m.HeadAngle)
		eyesClosed = m.EyesClosed(l.opts.EyeClosedThreshold)
		intents    = []signal.Intent{
			l.update(ctx, &l.head, deviation > l.opts.HeadTiltThreshold, now),
			l.update(ctx, &l.eyes, eyesClosed, now),
		}
	)

	logger.DebugKV(ctx, "Frame measured",
		"head_angle", m.HeadAngle,
		"deviation", deviation,
		"left_aperture", m.LeftAperture,
		"right_aperture", m.RightAperture,
		"eyes_closed", eyesClosed,
	)

	l.apply(intents)

	overlay := l.overlay()
	overlay.FaceFound = true
	overlay.HeadAngle = m.HeadAngle
	overlay.Deviation = deviation
	overlay.EyesClosed = eyesClosed
	overlay.NoseBridge = m.NoseBridge
	overlay.NoseTip = m.NoseTip
	overlay.Chin = m.Chin

	return overlay
}

// update feeds one monitor and handles its warning transitions.
func (l *Loop) update(ctx context.Context, t *tracked, condition bool, now time.Time) signal.Intent {
	var (
		wasWarning = t.monitor.Warning()
		intent     = t.monitor.Update(condition, now)
		isWarning  = t.monitor.Warning()
	)

	switch {
	case !wasWarning && isWarning:
		t.episode = domain.NewEpisode(l.opts.SessionID, t.monitor.Name(), t.monitor.Since(), t.monitor.WarnedAt(), time.Time{})

		logger.WarnKV(ctx, "Warning raised",
			"signal", t.monitor.Name(),
			"held_for", now.Sub(t.monitor.Since()),
		)

		l.report(t.monitor.Name(), true)
	case wasWarning && !isWarning:
		logger.InfoKV(ctx, "Warning cleared", "signal", t.monitor.Name())

		l.finish(ctx, t, now)
		l.report(t.monitor.Name(), false)
	}

	return intent
}

// apply forwards intents to the alarm, stops first so that a start requested
// in the same frame wins.
func (l *Loop) apply(intents []signal.Intent) {
	for _, intent := range intents {
		if intent == signal.Stop {
			l.opts.Alarm.RequestStop()
		}
	}

	for _, intent := range intents {
		if intent == signal.Start {
			l.opts.Alarm.RequestStart()
		}
	}
}

// overlay returns the monitor-derived part of the overlay.
func (l *Loop) overlay() frame.Overlay {
	return frame.Overlay{
		HeadWarning: l.head.monitor.Warning(),
		EyesWarning: l.eyes.monitor.Warning(),
	}
}

// finish closes and journals the open episode of t.
func (l *Loop) finish(ctx context.Context, t *tracked, now time.Time) {
	if t.episode == nil {
		return
	}

	episode := t.episode
	episode.EndedAt = now
	t.episode = nil

	logger.InfoKV(ctx, "Episode finished",
		"signal", episode.Signal,
		"episode_id", episode.ID.String(),
		"duration", episode.Duration(),
		"alarm_duration", episode.AlarmDuration(),
	)

	if l.opts.Journal == nil {
		return
	}

	if err := l.opts.Journal.Save(ctx, episode); err != nil {
		logger.ErrorKV(ctx, "Failed to journal episode", "episode_id", episode.ID.String(), "error", err)
	}
}

func (l *Loop) report(name string, warning bool) {
	if l.opts.Reporter != nil {
		l.opts.Reporter.SetWarning(name, warning)
	}
}

// shutdown silences the alarm and journals episodes still open.
func (l *Loop) shutdown(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	now := l.opts.Now()

	l.opts.Alarm.RequestStop()

	for _, t := range []*tracked{&l.head, &l.eyes} {
		l.finish(ctx, t, now)
	}
}
