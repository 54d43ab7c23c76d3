package alarm

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestNewEpisode verifies identifiers and durations.
func TestNewEpisode(t *testing.T) {
	t.Parallel()

	var (
		session = uuid.New()
		start   = time.Date(2026, 3, 1, 22, 15, 0, 0, time.UTC)
		warned  = start.Add(4 * time.Second)
		end     = start.Add(9 * time.Second)
	)

	e := NewEpisode(session, "eyes_closed", start, warned, end)

	require.NotEqual(t, uuid.Nil, e.ID)
	require.Equal(t, session, e.SessionID)
	require.Equal(t, 9*time.Second, e.Duration())
	require.Equal(t, 5*time.Second, e.AlarmDuration())

	other := NewEpisode(session, "eyes_closed", start, warned, end)
	require.NotEqual(t, e.ID, other.ID)
}

// TestEpisodeClone verifies that Clone returns a copy and handles nil safely.
func TestEpisodeClone(t *testing.T) {
	t.Parallel()
	require.Nil(t, (*Episode)(nil).Clone())

	e := NewEpisode(uuid.New(), "head_tilt", time.Unix(100, 0), time.Unix(104, 0), time.Unix(110, 0))
	c := e.Clone()

	require.Equal(t, e, c)
	require.NotSame(t, e, c)
}
