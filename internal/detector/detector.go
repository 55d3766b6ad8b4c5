// Package detector locates candidate face regions in a frame.
//
// Every backend runs a multi-scale window search, keeps only regions that collected enough
// overlapping window votes, and drops regions smaller than the configured minimum. Boxes are
// returned in the order the scan emits them; callers must not treat the first one as the best.
package detector

import (
	"fmt"
	"image"

	"github.com/andresmejia3/faceguard/internal/types"
)

// Detector finds face bounding boxes in a frame
type Detector interface {
	Detect(frame image.Image) ([]types.BoundingBox, error)
}

// Config holds the scan constants shared by every backend
type Config struct {
	ScaleFactor  float64 // window growth per pyramid step, > 1
	MinNeighbors int     // a region needs more than this many overlapping hits
	MinWidth     int
	MinHeight    int
}

// DefaultConfig matches the cascade settings the gate was tuned with
func DefaultConfig() Config {
	return Config{
		ScaleFactor:  1.05,
		MinNeighbors: 10,
		MinWidth:     32,
		MinHeight:    96,
	}
}

// Validate rejects settings that would make the scan loop forever or accept nothing
func (c Config) Validate() error {
	if c.ScaleFactor <= 1 {
		return fmt.Errorf("scale factor must be > 1, got %v", c.ScaleFactor)
	}
	if c.MinNeighbors < 0 {
		return fmt.Errorf("min neighbors must be >= 0, got %d", c.MinNeighbors)
	}
	if c.MinWidth < 0 || c.MinHeight < 0 {
		return fmt.Errorf("min size must be >= 0, got %dx%d", c.MinWidth, c.MinHeight)
	}
	return nil
}

// FilterMinSize drops boxes narrower than minWidth or shorter than minHeight, keeping order
func FilterMinSize(boxes []types.BoundingBox, minWidth, minHeight int) []types.BoundingBox {
	out := make([]types.BoundingBox, 0, len(boxes))
	for _, b := range boxes {
		if b.Width < minWidth || b.Height < minHeight {
			continue
		}
		out = append(out, b)
	}
	return out
}

// FromRects converts rectangles to boxes and applies the size filter
func FromRects(rects []image.Rectangle, cfg Config) []types.BoundingBox {
	boxes := make([]types.BoundingBox, 0, len(rects))
	for _, r := range rects {
		boxes = append(boxes, types.FromRect(r))
	}
	return FilterMinSize(boxes, cfg.MinWidth, cfg.MinHeight)
}
