package signal

// Names of the monitored signals.
const (
	HeadTilt   = "head_tilt"
	EyesClosed = "eyes_closed"
)

// Names returns every monitored signal in reporting order.
func Names() []string {
	return []string{HeadTilt, EyesClosed}
}
