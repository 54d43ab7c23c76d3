package frame

import (
	"errors"
	"image"
)

// ErrEndOfStream is returned by frame sources that have no more frames.
var ErrEndOfStream = errors.New("end of video stream")

// Frame is one captured image. The consumer must Close it when done.
type Frame interface {
	// Size returns the pixel dimensions.
	Size() (width, height int)
	// JPEG returns the image encoded as JPEG.
	JPEG() ([]byte, error)
	// Close releases the image memory.
	Close() error
}

// Overlay is what the preview draws on top of a frame.
type Overlay struct {
	// FaceFound is false when the detector returned no usable face.
	FaceFound bool
	// HeadAngle is the measured head angle in degrees.
	HeadAngle float64
	// Deviation is the absolute difference from the baseline head angle.
	Deviation float64
	// EyesClosed is the raw per-frame classification.
	EyesClosed bool
	// HeadWarning and EyesWarning mirror the debounced monitors.
	HeadWarning bool
	EyesWarning bool
	// AlarmPlaying mirrors the alarm controller.
	AlarmPlaying bool
	// NoseBridge, NoseTip and Chin are pixel positions of the tracked points.
	NoseBridge image.Point
	NoseTip    image.Point
	Chin       image.Point
}
