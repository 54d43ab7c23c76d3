package alarm

import (
	"time"

	"github.com/google/uuid"
)

// Episode is one span during which a monitored condition held long enough to
// raise a warning.
type Episode struct {
	// ID uniquely identifies the episode.
	ID uuid.UUID
	// SessionID groups the episodes of one monitor run.
	SessionID uuid.UUID
	// Signal is the name of the monitor that warned.
	Signal string
	// StartedAt is when the condition started holding.
	StartedAt time.Time
	// WarnedAt is when the debounce threshold was reached.
	WarnedAt time.Time
	// EndedAt is when the condition cleared or the session ended.
	EndedAt time.Time
}

// NewEpisode creates an episode with a fresh identifier.
func NewEpisode(sessionID uuid.UUID, signal string, startedAt, warnedAt, endedAt time.Time) *Episode {
	return &Episode{
		ID:        uuid.New(),
		SessionID: sessionID,
		Signal:    signal,
		StartedAt: startedAt,
		WarnedAt:  warnedAt,
		EndedAt:   endedAt,
	}
}

// Duration returns how long the condition held in total.
func (e *Episode) Duration() time.Duration {
	return e.EndedAt.Sub(e.StartedAt)
}

// AlarmDuration returns how long the episode was in warning.
func (e *Episode) AlarmDuration() time.Duration {
	return e.EndedAt.Sub(e.WarnedAt)
}

// Clone returns a copy of the episode to avoid leaking internal references.
func (e *Episode) Clone() *Episode {
	if e == nil {
		return nil
	}

	cloned := *e

	return &cloned
}
