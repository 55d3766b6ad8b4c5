// Package camera provides frame sources for the gate.
//
// A Source hands out the most recent frame it has; it never queues. ReadFrame reports false when no
// frame could be produced, and the caller decides what that means.
package camera

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
)

// Source is anything the gate can pull a single frame from
type Source interface {
	ReadFrame() (image.Image, bool)
	Close() error
}

// LoadImage decodes a still image from disk (jpeg, png or bmp)
func LoadImage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}
