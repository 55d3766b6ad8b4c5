package pipeline

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/andresmejia3/faceguard/internal/classifier"
	"github.com/andresmejia3/faceguard/internal/preprocess"
	"github.com/andresmejia3/faceguard/internal/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubDetector struct {
	boxes  []types.BoundingBox
	err    error
	closed bool
}

func (d *stubDetector) Detect(image.Image) ([]types.BoundingBox, error) { return d.boxes, d.err }

func (d *stubDetector) Close() error {
	d.closed = true
	return nil
}

// brightnessModel scores label 0 for dark crops and label 1 for bright ones
type brightnessModel struct {
	shape  preprocess.Shape
	calls  int
	closed bool
}

func (m *brightnessModel) InputShape() preprocess.Shape { return m.shape }

func (m *brightnessModel) Forward(t preprocess.Tensor) ([]float32, error) {
	m.calls++
	v := t.At(0, 0, 0)
	return []float32{(1 - v) * 10, v * 10}, nil
}

func (m *brightnessModel) Close() error {
	m.closed = true
	return nil
}

func newPipeline(t *testing.T, d *stubDetector, policy preprocess.CropPolicy) (*Pipeline, *brightnessModel) {
	t.Helper()
	pre, err := preprocess.New(preprocess.Config{Width: 8, Height: 8, Channels: 1, Policy: policy})
	require.NoError(t, err)
	m := &brightnessModel{shape: pre.Shape()}
	p, err := New(d, pre, classifier.New(m), zerolog.Nop())
	require.NoError(t, err)
	return p, m
}

// halfFrame is black on the left half and white on the right half
func halfFrame() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 200, 100))
	for y := 0; y < 100; y++ {
		for x := 100; x < 200; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	return img
}

func TestRecognizeEmptyDetection(t *testing.T) {
	p, m := newPipeline(t, &stubDetector{}, preprocess.PolicyClamp)

	got, err := p.Recognize(halfFrame())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, m.calls)
}

func TestRecognizeKeepsDetectorOrder(t *testing.T) {
	boxes := []types.BoundingBox{
		{X: 130, Y: 30, Width: 40, Height: 40}, // bright
		{X: 30, Y: 30, Width: 40, Height: 40},  // dark
	}
	p, m := newPipeline(t, &stubDetector{boxes: boxes}, preprocess.PolicyClamp)

	got, err := p.Recognize(halfFrame())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, boxes[0], got[0].Box)
	assert.Equal(t, 1, got[0].Prediction.Label)
	assert.Equal(t, 0, got[1].Prediction.Label)
	assert.Greater(t, got[0].Prediction.Confidence, 0.99)
	assert.Equal(t, 2, m.calls)
}

func TestRecognizeRejectPolicySkipsEdgeFaces(t *testing.T) {
	boxes := []types.BoundingBox{
		{X: 180, Y: 10, Width: 20, Height: 80}, // square crop spills past the right edge
		{X: 30, Y: 30, Width: 40, Height: 40},
	}
	p, _ := newPipeline(t, &stubDetector{boxes: boxes}, preprocess.PolicyReject)

	got, err := p.Recognize(halfFrame())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, boxes[1], got[0].Box)
}

func TestRecognizeDetectorError(t *testing.T) {
	boom := errors.New("boom")
	p, _ := newPipeline(t, &stubDetector{err: boom}, preprocess.PolicyClamp)

	_, err := p.Recognize(halfFrame())
	assert.ErrorIs(t, err, boom)
}

func TestNewRejectsShapeMismatch(t *testing.T) {
	pre, err := preprocess.New(preprocess.Config{Width: 8, Height: 8})
	require.NoError(t, err)
	m := &brightnessModel{shape: preprocess.Shape{Height: 16, Width: 16, Channels: 3}}

	_, err = New(&stubDetector{}, pre, classifier.New(m), zerolog.Nop())
	assert.ErrorIs(t, err, classifier.ErrShapeMismatch)
}

func TestCloseReleasesEverything(t *testing.T) {
	d := &stubDetector{}
	p, m := newPipeline(t, d, preprocess.PolicyClamp)
	require.NoError(t, p.Close())
	assert.True(t, m.closed)
	assert.True(t, d.closed)
}
