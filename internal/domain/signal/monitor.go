package signal

import "time"

// State is the debounce stage of a monitored condition.
type State int

const (
	// Idle means the raw condition is false.
	Idle State = iota
	// Pending means the condition holds but not for long enough yet.
	Pending
	// Warning means the condition has held for at least the threshold.
	Warning
)

// String returns a lowercase state name for logs.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Intent is the alarm side effect requested by an update.
type Intent int

const (
	// None requests nothing.
	None Intent = iota
	// Start asks for the alarm to play. Emitted on every update in Warning.
	Start
	// Stop asks for the alarm to stop. Emitted only when leaving Warning.
	Stop
)

// String returns a lowercase intent name for logs.
func (i Intent) String() string {
	switch i {
	case None:
		return "none"
	case Start:
		return "start"
	case Stop:
		return "stop"
	default:
		return "unknown"
	}
}

// Monitor debounces one boolean condition. The zero value is not usable; use New.
// A Monitor is owned by a single goroutine.
type Monitor struct {
	// name identifies the signal in logs and journals.
	name string
	// threshold is how long the condition must hold before Warning.
	threshold time.Duration

	// startedAt is when the condition last became true; zero while Idle.
	startedAt time.Time
	// warnedAt is when the monitor entered Warning; zero otherwise.
	warnedAt time.Time
	// warning is true iff the monitor is in Warning.
	warning bool
}

// New creates an idle monitor for the named signal.
func New(name string, threshold time.Duration) *Monitor {
	return &Monitor{
		name:      name,
		threshold: threshold,
	}
}

// Update advances the state machine with the condition sampled at now.
//
// Recovery is not debounced: the first false sample returns the monitor to Idle.
// A Stop intent is only emitted when the monitor was in Warning, so a monitor
// that never requested a start never requests a stop.
func (m *Monitor) Update(condition bool, now time.Time) Intent {
	if !condition {
		wasWarning := m.warning

		m.startedAt = time.Time{}
		m.warnedAt = time.Time{}
		m.warning = false

		if wasWarning {
			return Stop
		}

		return None
	}

	if m.startedAt.IsZero() {
		m.startedAt = now
	}

	if !m.warning && now.Sub(m.startedAt) >= m.threshold {
		m.warning = true
		m.warnedAt = now
	}

	if m.warning {
		return Start
	}

	return None
}

// State returns the current debounce stage.
func (m *Monitor) State() State {
	switch {
	case m.warning:
		return Warning
	case !m.startedAt.IsZero():
		return Pending
	default:
		return Idle
	}
}

// Warning reports whether the monitor is in Warning.
func (m *Monitor) Warning() bool {
	return m.warning
}

// Since returns when the condition started holding; zero while Idle.
func (m *Monitor) Since() time.Time {
	return m.startedAt
}

// WarnedAt returns when the monitor entered Warning; zero otherwise.
func (m *Monitor) WarnedAt() time.Time {
	return m.warnedAt
}

// Name returns the signal name.
func (m *Monitor) Name() string {
	return m.name
}

// Threshold returns the debounce duration.
func (m *Monitor) Threshold() time.Duration {
	return m.threshold
}
