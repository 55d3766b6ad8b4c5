// Package model opens a classifier artifact with the backend its file extension calls for.
package model

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/andresmejia3/faceguard/internal/classifier"
	"github.com/andresmejia3/faceguard/internal/model/dnn"
	"github.com/andresmejia3/faceguard/internal/model/tflite"
	"github.com/andresmejia3/faceguard/internal/preprocess"
	"github.com/andresmejia3/faceguard/internal/worker"
)

// Backend names a model runtime
type Backend string

const (
	BackendDNN    Backend = "dnn"
	BackendTFLite Backend = "tflite"
	BackendPython Backend = "python"
)

// Options configures Open
type Options struct {
	Path    string
	Shape   preprocess.Shape // required by dnn, checked against the others
	Layout  dnn.Layout
	Threads int
	Script  string // python worker entry point
}

// BackendFor maps an artifact file extension to its runtime
func BackendFor(path string) (Backend, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".onnx", ".pb":
		return BackendDNN, nil
	case ".tflite":
		return BackendTFLite, nil
	case ".h5", ".keras":
		return BackendPython, nil
	default:
		return "", fmt.Errorf("no model backend for %q (want .onnx, .pb, .tflite, .h5 or .keras)", filepath.Ext(path))
	}
}

// Open loads the model once for the life of the process
func Open(opts Options) (classifier.Model, error) {
	backend, err := BackendFor(opts.Path)
	if err != nil {
		return nil, err
	}

	var m classifier.Model
	switch backend {
	case BackendDNN:
		m, err = dnn.Open(opts.Path, opts.Shape, opts.Layout)
	case BackendTFLite:
		m, err = tflite.Open(opts.Path, opts.Threads)
	default:
		script := opts.Script
		if script == "" {
			script = worker.DefaultScript
		}
		m, err = worker.NewPythonWorker(script, opts.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("%s backend: %w", backend, err)
	}
	return m, nil
}
