package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackendFor(t *testing.T) {
	tests := []struct {
		path string
		want Backend
	}{
		{"model.onnx", BackendDNN},
		{"frozen/graph.PB", BackendDNN},
		{"/opt/faces.tflite", BackendTFLite},
		{"model.h5", BackendPython},
		{"model.keras", BackendPython},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := BackendFor(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBackendForUnknown(t *testing.T) {
	_, err := BackendFor("weights.bin")
	assert.Error(t, err)
}
