package face

import (
	"errors"
	"fmt"
)

// Point is a normalized landmark position. X and Y lie in [0, 1] with Y growing
// downwards; Z is carried through from the detector but never used.
type Point struct {
	X float64
	Y float64
	Z float64
}

// Landmarks is the ordered point set of one detected face.
type Landmarks []Point

// Indices maps the facial features this package needs to positions in a
// landmark set.
type Indices struct {
	NoseBridge     int
	NoseTip        int
	Chin           int
	LeftEyeTop     int
	LeftEyeBottom  int
	RightEyeTop    int
	RightEyeBottom int
}

// DefaultIndices returns the positions used by the 468-point face mesh.
func DefaultIndices() Indices {
	return Indices{
		NoseBridge:     168,
		NoseTip:        1,
		Chin:           152,
		LeftEyeTop:     159,
		LeftEyeBottom:  145,
		RightEyeTop:    386,
		RightEyeBottom: 374,
	}
}

var (
	// ErrLandmarkOutOfRange is returned when the detector output is shorter than an index requires.
	ErrLandmarkOutOfRange = errors.New("landmark index out of range")
	// ErrInvalidFrameSize is returned when frame dimensions are not positive.
	ErrInvalidFrameSize = errors.New("frame size must be positive")
)

// At returns the point at index i or ErrLandmarkOutOfRange.
func (l Landmarks) At(i int) (Point, error) {
	if i < 0 || i >= len(l) {
		return Point{}, fmt.Errorf("%w: %d of %d", ErrLandmarkOutOfRange, i, len(l))
	}

	return l[i], nil
}

// pick resolves several indices at once, failing on the first bad one.
func (l Landmarks) pick(indices ...int) ([]Point, error) {
	points := make([]Point, len(indices))

	for n, i := range indices {
		p, err := l.At(i)
		if err != nil {
			return nil, err
		}

		points[n] = p
	}

	return points, nil
}
