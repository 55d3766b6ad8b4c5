// Package dnn runs ONNX and TensorFlow frozen-graph classifiers through the OpenCV DNN module.
package dnn

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"
	"os"

	"github.com/andresmejia3/faceguard/internal/preprocess"
	"gocv.io/x/gocv"
)

// Layout is the tensor layout the network was exported with
type Layout string

const (
	LayoutNHWC Layout = "nhwc" // Keras / TensorFlow
	LayoutNCHW Layout = "nchw" // PyTorch style exports
)

// Model is a loaded OpenCV network with a fixed input shape
type Model struct {
	net    gocv.Net
	shape  preprocess.Shape
	layout Layout
}

// Open loads the network at path. OpenCV cannot report an ONNX input shape, so the caller supplies it.
func Open(path string, shape preprocess.Shape, layout Layout) (*Model, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file not found: %w", err)
	}
	switch layout {
	case "":
		layout = LayoutNHWC
	case LayoutNHWC, LayoutNCHW:
	default:
		return nil, fmt.Errorf("unknown tensor layout %q", layout)
	}

	net := gocv.ReadNet(path, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", path)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Model{net: net, shape: shape, layout: layout}, nil
}

func (m *Model) InputShape() preprocess.Shape { return m.shape }

// Forward runs one tensor through the network and returns the flattened output
func (m *Model) Forward(input preprocess.Tensor) ([]float32, error) {
	blob, err := m.blob(input)
	if err != nil {
		return nil, err
	}
	defer blob.Close()

	m.net.SetInput(blob, "")
	out := m.net.Forward("")
	defer out.Close()

	if out.Empty() {
		return nil, fmt.Errorf("network produced no output")
	}
	scores, err := out.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("reading network output: %w", err)
	}
	return append([]float32(nil), scores...), nil
}

func (m *Model) blob(input preprocess.Tensor) (gocv.Mat, error) {
	s := input.Shape()
	data := float32Bytes(input.Values())

	if m.layout == LayoutNHWC {
		return gocv.NewMatWithSizesFromBytes([]int{1, s.Height, s.Width, s.Channels}, gocv.MatTypeCV32F, data)
	}

	mt := gocv.MatTypeCV32FC3
	if s.Channels == 1 {
		mt = gocv.MatTypeCV32FC1
	}
	// HWC image Mat, then BlobFromImage reorders to NCHW
	img, err := gocv.NewMatFromBytes(s.Height, s.Width, mt, data)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer img.Close()
	return gocv.BlobFromImage(img, 1.0, image.Pt(s.Width, s.Height), gocv.NewScalar(0, 0, 0, 0), false, false), nil
}

// float32Bytes lays values out in host (little-endian) order, as OpenCV expects
func float32Bytes(values []float32) []byte {
	buf := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func (m *Model) Close() error {
	return m.net.Close()
}
