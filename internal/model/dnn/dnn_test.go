package dnn

import (
	"encoding/binary"
	"math"
	"path/filepath"
	"testing"

	"github.com/andresmejia3/faceguard/internal/preprocess"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat32Bytes(t *testing.T) {
	buf := float32Bytes([]float32{1, -0.5})
	require.Len(t, buf, 8)
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[0:4])))
	assert.Equal(t, float32(-0.5), math.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])))
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "model.onnx"), preprocess.Shape{Height: 8, Width: 8, Channels: 3}, LayoutNHWC)
	assert.Error(t, err)
}
