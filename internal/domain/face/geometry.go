package face

import (
	"image"
	"math"
)

// Measurement is what one face contributes to a frame.
type Measurement struct {
	// HeadAngle is the nose bridge to chin angle in degrees, in [0, 180].
	HeadAngle float64
	// LeftAperture and RightAperture are normalized lid distances.
	LeftAperture  float64
	RightAperture float64

	// NoseBridge, NoseTip and Chin are pixel positions for rendering.
	NoseBridge image.Point
	NoseTip    image.Point
	Chin       image.Point
}

// HeadAngle returns abs(atan2(dy, dx)) between p1 and p2 in degrees.
//
// The sign of atan2 depends on point order, and taking the absolute value only
// folds the lower half-plane onto the upper one: swapping two points that are
// not vertically aligned gives 180 minus the original angle. The formula is
// kept as is so thresholds tuned against it keep working.
func HeadAngle(p1, p2 Point) float64 {
	return math.Abs(math.Atan2(p2.Y-p1.Y, p2.X-p1.X) * 180 / math.Pi)
}

// EyeAperture returns bottom.Y - top.Y. Inverted lids give a negative value,
// which any positive threshold classifies as closed.
func EyeAperture(top, bottom Point) float64 {
	return bottom.Y - top.Y
}

// EyesClosed reports whether both eyes are strictly below the threshold.
// A single closed eye is treated as open to ignore occlusion and landmark noise.
func EyesClosed(left, right, threshold float64) bool {
	return left < threshold && right < threshold
}

// Extract computes the measurement of a face in a width x height frame.
// The head angle is computed in pixel space so non-square frames do not skew it;
// apertures stay normalized because they are compared against a normalized threshold.
func Extract(l Landmarks, idx Indices, width, height int) (Measurement, error) {
	if width <= 0 || height <= 0 {
		return Measurement{}, ErrInvalidFrameSize
	}

	points, err := l.pick(
		idx.NoseBridge,
		idx.NoseTip,
		idx.Chin,
		idx.LeftEyeTop,
		idx.LeftEyeBottom,
		idx.RightEyeTop,
		idx.RightEyeBottom,
	)
	if err != nil {
		return Measurement{}, err
	}

	var (
		bridge = scale(points[0], width, height)
		tip    = scale(points[1], width, height)
		chin   = scale(points[2], width, height)
	)

	return Measurement{
		HeadAngle:     HeadAngle(bridge, chin),
		LeftAperture:  EyeAperture(points[3], points[4]),
		RightAperture: EyeAperture(points[5], points[6]),
		NoseBridge:    toPixel(bridge),
		NoseTip:       toPixel(tip),
		Chin:          toPixel(chin),
	}, nil
}

// EyesClosed applies the classifier to the measured apertures.
func (m Measurement) EyesClosed(threshold float64) bool {
	return EyesClosed(m.LeftAperture, m.RightAperture, threshold)
}

// scale converts a normalized point to pixel space.
func scale(p Point, width, height int) Point {
	return Point{
		X: p.X * float64(width),
		Y: p.Y * float64(height),
		Z: p.Z,
	}
}

// toPixel truncates a pixel-space point for drawing.
func toPixel(p Point) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}
