package video

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"github.com/oshokin/attention-monitor/internal/domain/frame"
)

// errUnsupportedFrame is returned when a frame does not come from this package.
var errUnsupportedFrame = errors.New("frame is not backed by an OpenCV matrix")

// Overlay colors.
var (
	colorInfo    = color.RGBA{R: 0, G: 255, B: 255, A: 0}
	colorAlert   = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	colorBridge  = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	colorTip     = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	colorChin    = color.RGBA{R: 0, G: 0, B: 255, A: 0}
	colorNeutral = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

const (
	fontScale     = 0.8
	fontThickness = 2
	pointRadius   = 5
	lineHeight    = 35
	marginX       = 10
	firstLineY    = 30
	// waitKeyDelay is the highgui event pump delay in milliseconds.
	waitKeyDelay = 1
)

// Window shows annotated frames and reports the quit key.
type Window struct {
	window  *gocv.Window
	quitKey int
}

// NewWindow opens a preview window. quitKey closes the monitor when pressed.
func NewWindow(title string, quitKey rune) *Window {
	return &Window{
		window:  gocv.NewWindow(title),
		quitKey: int(quitKey),
	}
}

// Render draws the overlay, shows the frame and returns true once the quit
// key has been pressed.
func (w *Window) Render(f frame.Frame, overlay frame.Overlay) (bool, error) {
	mf, ok := f.(*MatFrame)
	if !ok {
		return false, fmt.Errorf("%w: %T", errUnsupportedFrame, f)
	}

	Annotate(mf.Mat(), overlay)

	w.window.IMShow(*mf.Mat())

	key := w.window.WaitKey(waitKeyDelay)

	return key&0xFF == w.quitKey, nil
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// Annotate draws the overlay onto img.
func Annotate(img *gocv.Mat, overlay frame.Overlay) {
	line := 0
	text := func(s string, c color.RGBA) {
		org := image.Pt(marginX, firstLineY+line*lineHeight)
		gocv.PutText(img, s, org, gocv.FontHersheySimplex, fontScale, c, fontThickness)
		line++
	}

	if !overlay.FaceFound {
		text("No face detected", colorNeutral)
	} else {
		eyeStatus := "Open"
		if overlay.EyesClosed {
			eyeStatus = "Closed"
		}

		text("Eye Status: "+eyeStatus, colorAlert)
		text(fmt.Sprintf("Head Angle: %d deg (dev %.0f)", int(overlay.HeadAngle), overlay.Deviation), colorInfo)

		gocv.Circle(img, overlay.NoseBridge, pointRadius, colorBridge, -1)
		gocv.Circle(img, overlay.NoseTip, pointRadius, colorTip, -1)
		gocv.Circle(img, overlay.Chin, pointRadius, colorChin, -1)
	}

	if overlay.HeadWarning {
		text("WARNING: Head Tilted!", colorAlert)
	}

	if overlay.EyesWarning {
		text("WARNING: Eyes Closed!", colorAlert)
	}

	if overlay.AlarmPlaying {
		text("ALARM", colorAlert)
	}
}
