package face

import "math"

// Baseline is the head angle captured on the first successful detection.
// Once set it never changes for the lifetime of the value.
type Baseline struct {
	angle float64
	set   bool
}

// Observe records angle as the baseline if none is set yet and returns the
// absolute deviation of angle from the baseline.
func (b *Baseline) Observe(angle float64) float64 {
	if !b.set {
		b.angle = angle
		b.set = true
	}

	return math.Abs(angle - b.angle)
}

// Angle returns the baseline and whether it has been captured.
func (b *Baseline) Angle() (float64, bool) {
	return b.angle, b.set
}
