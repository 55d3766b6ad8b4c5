package detector

import (
	"fmt"
	"image"
	"os"

	"github.com/andresmejia3/faceguard/internal/types"
	pigo "github.com/esimov/pigo/core"
)

// Pigo is a pure Go cascade backend. It needs no native libraries, which makes it the choice for
// hosts without OpenCV.
type Pigo struct {
	classifier  *pigo.Pigo
	cfg         Config
	shiftFactor float64
	minQuality  float32
}

// LoadPigo reads a pigo binary cascade (e.g. facefinder) from path
func LoadPigo(path string, cfg Config) (*Pigo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cascade file: %w", err)
	}
	return NewPigo(data, cfg)
}

// NewPigo unpacks a cascade held in memory
func NewPigo(cascade []byte, cfg Config) (*Pigo, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	classifier, err := pigo.NewPigo().Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade: %w", err)
	}
	return &Pigo{classifier: classifier, cfg: cfg, shiftFactor: 0.1}, nil
}

// Detect scans frame at every scale and groups the raw hits by vote
func (d *Pigo) Detect(frame image.Image) ([]types.BoundingBox, error) {
	b := frame.Bounds()
	cols, rows := b.Dx(), b.Dy()
	if cols == 0 || rows == 0 {
		return []types.BoundingBox{}, nil
	}

	params := pigo.CascadeParams{
		MinSize:     max(d.cfg.MinWidth, d.cfg.MinHeight, 20),
		MaxSize:     max(cols, rows),
		ShiftFactor: d.shiftFactor,
		ScaleFactor: d.cfg.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pigo.RgbToGrayscale(frame),
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)

	hits := make([]image.Rectangle, 0, len(dets))
	for _, det := range dets {
		if det.Q <= d.minQuality {
			continue
		}
		hits = append(hits, detectionRect(det).Add(b.Min))
	}

	return FromRects(GroupRectangles(hits, d.cfg.MinNeighbors, DefaultGroupEps), d.cfg), nil
}

// detectionRect turns a pigo hit (centre row/col plus side) into a square rectangle
func detectionRect(det pigo.Detection) image.Rectangle {
	half := det.Scale / 2
	x0, y0 := det.Col-half, det.Row-half
	return image.Rect(x0, y0, x0+det.Scale, y0+det.Scale)
}
