package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"github.com/oshokin/attention-monitor/internal/domain/frame"
)

// errNotOpened is returned when the capture device could not be opened.
var errNotOpened = errors.New("video capture is not opened")

// Source reads frames from a camera, stream URL or video file.
type Source struct {
	// device is the camera index or URL the capture was opened from.
	device string
	// capture is the underlying OpenCV capture.
	capture *gocv.VideoCapture
	// img is the reusable read buffer.
	img gocv.Mat

	// mu serializes Read and Close.
	mu sync.Mutex
}

// Open opens a capture device. A purely numeric device is treated as a camera
// index, anything else as a URL or file path.
func Open(device string) (*Source, error) {
	var target any = device
	if id, err := strconv.Atoi(device); err == nil {
		target = id
	}

	capture, err := gocv.OpenVideoCapture(target)
	if err != nil {
		return nil, fmt.Errorf("open video capture %q: %w", device, err)
	}

	if !capture.IsOpened() {
		_ = capture.Close()

		return nil, fmt.Errorf("%w: %s", errNotOpened, device)
	}

	return &Source{
		device:  device,
		capture: capture,
		img:     gocv.NewMat(),
	}, nil
}

// Read blocks for the next frame. It returns frame.ErrEndOfStream when the
// device stops delivering frames (file end or camera disconnect).
//
//nolint:ireturn // Callers consume the frame through the frame.Frame contract.
func (s *Source) Read(ctx context.Context) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil, errNotOpened
	}

	if !s.capture.Read(&s.img) || s.img.Empty() {
		return nil, frame.ErrEndOfStream
	}

	return &MatFrame{mat: s.img.Clone()}, nil
}

// Device returns the device the source was opened from.
func (s *Source) Device() string {
	return s.device
}

// Close releases the capture device.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil
	}

	err := s.capture.Close()
	_ = s.img.Close()
	s.capture = nil

	return err
}

// MatFrame is a frame backed by an OpenCV matrix.
type MatFrame struct {
	mat gocv.Mat
}

// NewMatFrame wraps a matrix; the frame takes ownership of it.
func NewMatFrame(mat gocv.Mat) *MatFrame {
	return &MatFrame{mat: mat}
}

// Size returns the pixel dimensions.
func (f *MatFrame) Size() (width, height int) {
	return f.mat.Cols(), f.mat.Rows()
}

// JPEG encodes the frame.
func (f *MatFrame) JPEG() ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, f.mat)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()

	return bytes.Clone(buf.GetBytes()), nil
}

// Mat exposes the matrix for drawing.
func (f *MatFrame) Mat() *gocv.Mat {
	return &f.mat
}

// Close releases the matrix.
func (f *MatFrame) Close() error {
	return f.mat.Close()
}
