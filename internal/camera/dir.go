package camera

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rs/zerolog"
)

var imageExts = []string{".jpg", ".jpeg", ".png", ".bmp"}

// Dir replays the images of a directory in name order, one per ReadFrame.
// With Loop set it starts over after the last image instead of reporting false.
type Dir struct {
	paths []string
	next  int
	Loop  bool
	log   zerolog.Logger
}

// OpenDir lists the images in path. An empty directory is an error.
func OpenDir(path string, log zerolog.Logger) (*Dir, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if slices.Contains(imageExts, strings.ToLower(filepath.Ext(e.Name()))) {
			paths = append(paths, filepath.Join(path, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images in %s", path)
	}
	// ReadDir already sorts by filename
	return &Dir{paths: paths, log: log}, nil
}

// Len is the number of images in the replay
func (d *Dir) Len() int { return len(d.paths) }

func (d *Dir) ReadFrame() (image.Image, bool) {
	if d.next >= len(d.paths) {
		if !d.Loop {
			return nil, false
		}
		d.next = 0
	}
	path := d.paths[d.next]
	d.next++

	img, err := LoadImage(path)
	if err != nil {
		d.log.Warn().Err(err).Str("path", path).Msg("unreadable frame")
		return nil, false
	}
	return img, true
}

func (d *Dir) Close() error {
	d.next = len(d.paths)
	d.Loop = false
	return nil
}
