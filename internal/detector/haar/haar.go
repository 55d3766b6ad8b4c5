// Package haar is the OpenCV Haar cascade detector backend
package haar

import (
	"fmt"
	"image"

	"github.com/andresmejia3/faceguard/internal/detector"
	"github.com/andresmejia3/faceguard/internal/types"
	"gocv.io/x/gocv"
)

// cascadeScaleImage is OpenCV's CASCADE_SCALE_IMAGE: scale the image rather than the classifier
const cascadeScaleImage = 2

// Detector runs an OpenCV cascade. It is not safe for concurrent use.
type Detector struct {
	cascade gocv.CascadeClassifier
	cfg     detector.Config
}

// Load reads a cascade XML file such as haarcascade_frontalface_default.xml
func Load(path string, cfg detector.Config) (*Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cascade := gocv.NewCascadeClassifier()
	if !cascade.Load(path) {
		cascade.Close()
		return nil, fmt.Errorf("failed to load cascade classifier from %s", path)
	}
	return &Detector{cascade: cascade, cfg: cfg}, nil
}

// Detect converts frame to grayscale and runs the multi-scale search
func (d *Detector) Detect(frame image.Image) ([]types.BoundingBox, error) {
	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()
	if mat.Empty() {
		return []types.BoundingBox{}, nil
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(mat, &gray, gocv.ColorBGRToGray)

	rects := d.cascade.DetectMultiScaleWithParams(
		gray,
		d.cfg.ScaleFactor,
		d.cfg.MinNeighbors,
		cascadeScaleImage,
		image.Pt(d.cfg.MinWidth, d.cfg.MinHeight),
		image.Point{}, // no upper bound
	)

	origin := frame.Bounds().Min
	for i := range rects {
		rects[i] = rects[i].Add(origin)
	}
	return detector.FromRects(rects, d.cfg), nil
}

// Close frees the native classifier
func (d *Detector) Close() error {
	return d.cascade.Close()
}
