package face

import (
	"image"
	"testing"

	"github.com/stretchr/testify/require"
)

// meshWith builds a 468-point landmark set with the given points placed at their indices.
func meshWith(points map[int]Point) Landmarks {
	l := make(Landmarks, 468)
	for i, p := range points {
		l[i] = p
	}

	return l
}

// TestHeadAngle covers the quadrants and the order asymmetry of abs(atan2).
func TestHeadAngle(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		p1, p2 Point
		want   float64
	}{
		{"vertical down", Point{X: 0, Y: 0}, Point{X: 0, Y: 1}, 90},
		{"vertical up", Point{X: 0, Y: 1}, Point{X: 0, Y: 0}, 90},
		{"diagonal", Point{X: 0, Y: 0}, Point{X: 1, Y: 1}, 45},
		{"diagonal swapped", Point{X: 1, Y: 1}, Point{X: 0, Y: 0}, 135},
		{"horizontal", Point{X: 0, Y: 0}, Point{X: 1, Y: 0}, 0},
		{"horizontal reversed", Point{X: 1, Y: 0}, Point{X: 0, Y: 0}, 180},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.InDelta(t, tc.want, HeadAngle(tc.p1, tc.p2), 1e-9)
		})
	}
}

// TestEyesClosed_RequiresBothEyes checks AND semantics of the classifier.
func TestEyesClosed_RequiresBothEyes(t *testing.T) {
	t.Parallel()

	require.False(t, EyesClosed(0.01, 0.05, 0.02))
	require.False(t, EyesClosed(0.05, 0.01, 0.02))
	require.True(t, EyesClosed(0.01, 0.015, 0.02))
	require.False(t, EyesClosed(0.02, 0.02, 0.02))
	require.False(t, EyesClosed(0.05, 0.05, 0.02))
}

// TestEyeAperture_InvertedLidsCountAsClosed verifies the negative aperture policy.
func TestEyeAperture_InvertedLidsCountAsClosed(t *testing.T) {
	t.Parallel()

	aperture := EyeAperture(Point{Y: 0.40}, Point{Y: 0.38})
	require.Less(t, aperture, 0.0)
	require.True(t, EyesClosed(aperture, aperture, 0.02))
}

// TestExtract computes a full measurement from a synthetic mesh.
func TestExtract(t *testing.T) {
	t.Parallel()

	idx := DefaultIndices()
	l := meshWith(map[int]Point{
		idx.NoseBridge:     {X: 0.5, Y: 0.4},
		idx.NoseTip:        {X: 0.5, Y: 0.55},
		idx.Chin:           {X: 0.5, Y: 0.8},
		idx.LeftEyeTop:     {X: 0.4, Y: 0.30},
		idx.LeftEyeBottom:  {X: 0.4, Y: 0.31},
		idx.RightEyeTop:    {X: 0.6, Y: 0.30},
		idx.RightEyeBottom: {X: 0.6, Y: 0.35},
	})

	m, err := Extract(l, idx, 640, 480)
	require.NoError(t, err)

	require.InDelta(t, 90, m.HeadAngle, 1e-9)
	require.InDelta(t, 0.01, m.LeftAperture, 1e-9)
	require.InDelta(t, 0.05, m.RightAperture, 1e-9)
	require.False(t, m.EyesClosed(0.02))

	require.Equal(t, image.Pt(320, 192), m.NoseBridge)
	require.Equal(t, image.Pt(320, 264), m.NoseTip)
	require.Equal(t, image.Pt(320, 384), m.Chin)
}

// TestExtract_UsesPixelSpace ensures the aspect ratio is applied before the angle.
func TestExtract_UsesPixelSpace(t *testing.T) {
	t.Parallel()

	idx := DefaultIndices()
	l := meshWith(map[int]Point{
		idx.NoseBridge: {X: 0.4, Y: 0.4},
		idx.Chin:       {X: 0.5, Y: 0.5},
	})

	// Normalized delta is (0.1, 0.1) -> 45 deg, but a 2:1 frame makes dx twice dy.
	m, err := Extract(l, idx, 200, 100)
	require.NoError(t, err)
	require.InDelta(t, 26.565051177, m.HeadAngle, 1e-6)
}

// TestExtract_Malformed verifies contract violations from the detector are reported.
func TestExtract_Malformed(t *testing.T) {
	t.Parallel()

	_, err := Extract(make(Landmarks, 10), DefaultIndices(), 640, 480)
	require.ErrorIs(t, err, ErrLandmarkOutOfRange)

	_, err = Extract(make(Landmarks, 468), DefaultIndices(), 0, 480)
	require.ErrorIs(t, err, ErrInvalidFrameSize)

	_, err = Landmarks{}.At(-1)
	require.ErrorIs(t, err, ErrLandmarkOutOfRange)
}

// TestBaseline_SetOnce verifies the first observation becomes the immutable baseline.
func TestBaseline_SetOnce(t *testing.T) {
	t.Parallel()

	var b Baseline

	_, ok := b.Angle()
	require.False(t, ok)

	require.InDelta(t, 0, b.Observe(10), 1e-9)
	require.InDelta(t, 20, b.Observe(30), 1e-9)
	require.InDelta(t, 5, b.Observe(5), 1e-9)

	angle, ok := b.Angle()
	require.True(t, ok)
	require.InDelta(t, 10, angle, 1e-9)
}
