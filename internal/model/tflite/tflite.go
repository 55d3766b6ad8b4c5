// Package tflite runs TensorFlow Lite classifiers with the C interpreter.
package tflite

import (
	"fmt"
	"runtime"

	"github.com/andresmejia3/faceguard/internal/preprocess"
	"github.com/mattn/go-tflite"
)

// Model owns a TFLite model and its interpreter
type Model struct {
	model       *tflite.Model
	interpreter *tflite.Interpreter
	shape       preprocess.Shape
}

// Open loads path and allocates tensors. The input must be a float32 [1, H, W, C] tensor.
func Open(path string, threads int) (*Model, error) {
	model := tflite.NewModelFromFile(path)
	if model == nil {
		return nil, fmt.Errorf("cannot load model %s", path)
	}

	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	defer options.Delete()

	interpreter := tflite.NewInterpreter(model, options)
	if interpreter == nil {
		model.Delete()
		return nil, fmt.Errorf("cannot create interpreter for %s", path)
	}

	m := &Model{model: model, interpreter: interpreter}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		m.Close()
		return nil, fmt.Errorf("allocate tensors failed: status %d", status)
	}

	shape, err := inputShape(interpreter.GetInputTensor(0))
	if err != nil {
		m.Close()
		return nil, err
	}
	m.shape = shape
	return m, nil
}

func inputShape(input *tflite.Tensor) (preprocess.Shape, error) {
	if input.Type() != tflite.Float32 {
		return preprocess.Shape{}, fmt.Errorf("model input is %v, need float32", input.Type())
	}
	if input.NumDims() != 4 || input.Dim(0) != 1 {
		return preprocess.Shape{}, fmt.Errorf("model input must be [1,H,W,C], has %d dims", input.NumDims())
	}
	return preprocess.Shape{Height: input.Dim(1), Width: input.Dim(2), Channels: input.Dim(3)}, nil
}

func (m *Model) InputShape() preprocess.Shape { return m.shape }

func (m *Model) Forward(input preprocess.Tensor) ([]float32, error) {
	in := m.interpreter.GetInputTensor(0)
	input.CopyTo(in.Float32s())

	if status := m.interpreter.Invoke(); status != tflite.OK {
		return nil, fmt.Errorf("invoke failed: status %d", status)
	}

	out := m.interpreter.GetOutputTensor(0)
	if out.Type() != tflite.Float32 {
		return nil, fmt.Errorf("model output is %v, need float32", out.Type())
	}
	return append([]float32(nil), out.Float32s()...), nil
}

func (m *Model) Close() error {
	if m.interpreter != nil {
		m.interpreter.Delete()
		m.interpreter = nil
	}
	if m.model != nil {
		m.model.Delete()
		m.model = nil
	}
	return nil
}
