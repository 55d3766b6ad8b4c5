package types

import (
	"image"
	"time"
)

// BoundingBox is a detected face region in frame pixel coordinates
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FromRect converts an image.Rectangle into a BoundingBox
func FromRect(r image.Rectangle) BoundingBox {
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the box as an image.Rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Area is width * height
func (b BoundingBox) Area() int {
	return b.Width * b.Height
}

// Prediction is one classifier output: a label index and its softmax confidence
type Prediction struct {
	Label      int     `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Match pairs a detected region with the top prediction for it
type Match struct {
	Box        BoundingBox `json:"box"`
	Prediction Prediction  `json:"prediction"`
}

// Decision is the outcome of a single trigger press
type Decision string

const (
	DecisionGranted  Decision = "granted"
	DecisionDenied   Decision = "denied"
	DecisionNoFace   Decision = "no_face"
	DecisionRelocked Decision = "relocked"
	DecisionSkipped  Decision = "skipped" // frame could not be read
)

// AccessEvent is a journal row describing one trigger press
type AccessEvent struct {
	ID         string
	At         time.Time
	Decision   Decision
	Label      int // -1 when no face was evaluated
	Confidence float64
	Faces      int
	ModelID    string
}

// LabelName maps a classifier label index to a human readable name
type LabelName struct {
	Label     int
	Name      string
	CreatedAt time.Time
}
