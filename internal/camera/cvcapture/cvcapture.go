// Package cvcapture reads frames from a local capture device through OpenCV
package cvcapture

import (
	"fmt"
	"image"

	"github.com/rs/zerolog"
	"gocv.io/x/gocv"
)

// DefaultDrain is the number of buffered frames skipped before each read.
// V4L2 drivers typically queue four buffers while the gate sits idle.
const DefaultDrain = 4

type device interface {
	Grab(skip int)
	Read(m *gocv.Mat) bool
	Close() error
}

// Capture wraps an OpenCV VideoCapture device
type Capture struct {
	// Drain frames are grabbed and discarded first so a press sees the current scene
	Drain int

	cap device
	mat gocv.Mat
	log zerolog.Logger
}

// Open opens a device by index ("0") or path/URL. Zero width or height keeps the driver default.
func Open(device string, width, height int, log zerolog.Logger) (*Capture, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("error opening capture device %s: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("capture device %s did not open", device)
	}
	if width > 0 && height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(height))
	}
	return &Capture{Drain: DefaultDrain, cap: vc, mat: gocv.NewMat(), log: log}, nil
}

// ReadFrame drops stale buffered frames, then reads one and converts it to a Go image
func (c *Capture) ReadFrame() (image.Image, bool) {
	if c.Drain > 0 {
		c.cap.Grab(c.Drain)
	}
	if ok := c.cap.Read(&c.mat); !ok || c.mat.Empty() {
		return nil, false
	}
	img, err := c.mat.ToImage()
	if err != nil {
		c.log.Warn().Err(err).Msg("frame conversion failed")
		return nil, false
	}
	return img, true
}

func (c *Capture) Close() error {
	c.mat.Close()
	return c.cap.Close()
}
