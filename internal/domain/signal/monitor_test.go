package signal

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// at returns a timestamp offset from a fixed origin.
func at(seconds float64) time.Time {
	origin := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	return origin.Add(time.Duration(seconds * float64(time.Second)))
}

// TestMonitor_WarningAtThreshold replays the 0..5s scenario and the recovery at 6s.
func TestMonitor_WarningAtThreshold(t *testing.T) {
	t.Parallel()

	m := New("eyes_closed", 4*time.Second)
	require.Equal(t, Idle, m.State())

	for _, s := range []float64{0, 1, 2, 3} {
		require.Equal(t, None, m.Update(true, at(s)), "t=%v", s)
		require.Equal(t, Pending, m.State(), "t=%v", s)
		require.False(t, m.Warning())
	}

	require.Equal(t, Start, m.Update(true, at(4)))
	require.Equal(t, Warning, m.State())
	require.True(t, m.Warning())
	require.Equal(t, at(0), m.Since())
	require.Equal(t, at(4), m.WarnedAt())

	// Still warning: the start intent is re-asserted.
	require.Equal(t, Start, m.Update(true, at(5)))

	require.Equal(t, Stop, m.Update(false, at(6)))
	require.Equal(t, Idle, m.State())
	require.False(t, m.Warning())
	require.True(t, m.Since().IsZero())
	require.True(t, m.WarnedAt().IsZero())
}

// TestMonitor_PendingRecoveryRequestsNoStop ensures a monitor that never warned never stops the alarm.
func TestMonitor_PendingRecoveryRequestsNoStop(t *testing.T) {
	t.Parallel()

	m := New("head_tilt", 4*time.Second)

	require.Equal(t, None, m.Update(true, at(0)))
	require.Equal(t, None, m.Update(true, at(3.9)))
	require.Equal(t, None, m.Update(false, at(4)))
	require.Equal(t, Idle, m.State())

	// Idle and false stays silent too.
	require.Equal(t, None, m.Update(false, at(5)))
}

// TestMonitor_RestartsTimerAfterRecovery verifies a blink resets the debounce window.
func TestMonitor_RestartsTimerAfterRecovery(t *testing.T) {
	t.Parallel()

	m := New("eyes_closed", 4*time.Second)

	m.Update(true, at(0))
	m.Update(true, at(3))
	m.Update(false, at(3.5))

	require.Equal(t, None, m.Update(true, at(4)))
	require.Equal(t, None, m.Update(true, at(7.9)))
	require.Equal(t, Start, m.Update(true, at(8)))
}

// TestMonitor_ZeroThreshold warns on the first true sample.
func TestMonitor_ZeroThreshold(t *testing.T) {
	t.Parallel()

	m := New("instant", 0)
	require.Equal(t, Start, m.Update(true, at(0)))
	require.Equal(t, "instant", m.Name())
	require.Equal(t, time.Duration(0), m.Threshold())
}

// TestMonitor_MatchesReference drives random sequences and compares the monitor
// with a direct computation of "continuously true for at least the threshold".
func TestMonitor_MatchesReference(t *testing.T) {
	t.Parallel()

	const threshold = 4 * time.Second

	rng := rand.New(rand.NewPCG(7, 11))

	for run := range 200 {
		var (
			m       = New("reference", threshold)
			now     = at(0)
			runFrom time.Time
			inRun   bool
			warned  bool
		)

		for step := range 120 {
			now = now.Add(time.Duration(rng.IntN(900)+50) * time.Millisecond)
			condition := rng.Float64() < 0.85

			if condition && !inRun {
				runFrom, inRun = now, true
			}

			if !condition {
				inRun = false
			}

			wantWarning := inRun && now.Sub(runFrom) >= threshold

			var wantIntent Intent

			switch {
			case wantWarning:
				wantIntent = Start
			case !condition && warned:
				wantIntent = Stop
			default:
				wantIntent = None
			}

			got := m.Update(condition, now)

			require.Equal(t, wantIntent, got, "run %d step %d", run, step)
			require.Equal(t, wantWarning, m.Warning(), "run %d step %d", run, step)

			warned = wantWarning
		}
	}
}

// TestStateAndIntentStrings keeps log names stable.
func TestStateAndIntentStrings(t *testing.T) {
	t.Parallel()

	require.Equal(t, "idle", Idle.String())
	require.Equal(t, "pending", Pending.String())
	require.Equal(t, "warning", Warning.String())
	require.Equal(t, "unknown", State(42).String())

	require.Equal(t, "none", None.String())
	require.Equal(t, "start", Start.String())
	require.Equal(t, "stop", Stop.String())
	require.Equal(t, "unknown", Intent(42).String())
}

// TestNames lists the monitored signals in reporting order.
func TestNames(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{HeadTilt, EyesClosed}, Names())
}
