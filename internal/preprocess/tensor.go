package preprocess

import "fmt"

// Shape is the spatial and channel geometry of a classifier input, laid out height x width x channels
type Shape struct {
	Height   int `json:"height"`
	Width    int `json:"width"`
	Channels int `json:"channels"`
}

// Size is the number of scalar elements in a tensor of this shape
func (s Shape) Size() int {
	return s.Height * s.Width * s.Channels
}

func (s Shape) String() string {
	return fmt.Sprintf("%dx%dx%d", s.Height, s.Width, s.Channels)
}

// Tensor is an immutable HWC block of float32 intensities in [0,1]
type Tensor struct {
	shape Shape
	data  []float32
}

// NewTensor copies data into a tensor of the given shape
func NewTensor(shape Shape, data []float32) (Tensor, error) {
	if shape.Height <= 0 || shape.Width <= 0 || shape.Channels <= 0 {
		return Tensor{}, fmt.Errorf("invalid tensor shape %s", shape)
	}
	if len(data) != shape.Size() {
		return Tensor{}, fmt.Errorf("tensor data has %d values, shape %s needs %d", len(data), shape, shape.Size())
	}
	buf := make([]float32, len(data))
	copy(buf, data)
	return Tensor{shape: shape, data: buf}, nil
}

// Shape returns the tensor geometry
func (t Tensor) Shape() Shape { return t.shape }

// Len is the number of values held
func (t Tensor) Len() int { return len(t.data) }

// At returns the value at row y, column x, channel c
func (t Tensor) At(y, x, c int) float32 {
	return t.data[(y*t.shape.Width+x)*t.shape.Channels+c]
}

// CopyTo copies the values into dst and returns how many were copied
func (t Tensor) CopyTo(dst []float32) int {
	return copy(dst, t.data)
}

// Values returns a copy of the values in HWC order
func (t Tensor) Values() []float32 {
	out := make([]float32, len(t.data))
	copy(out, t.data)
	return out
}
