package detector

import (
	"image"
	"testing"

	pigo "github.com/esimov/pigo/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// jitter returns n hits scattered a pixel or two around r
func jitter(r image.Rectangle, n int) []image.Rectangle {
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		d := image.Pt(i%3-1, (i/3)%3-1)
		out = append(out, r.Add(d))
	}
	return out
}

func TestGroupRectanglesVoteThreshold(t *testing.T) {
	face := image.Rect(100, 100, 200, 200)

	tests := []struct {
		name         string
		hits         int
		minNeighbors int
		wantGroups   int
	}{
		{"enough votes", 11, 10, 1},
		{"exactly threshold is rejected", 10, 10, 0},
		{"single spurious hit", 1, 3, 0},
		{"threshold zero passes raw hits through", 4, 0, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GroupRectangles(jitter(face, tt.hits), tt.minNeighbors, DefaultGroupEps)
			assert.Len(t, got, tt.wantGroups)
		})
	}
}

func TestGroupRectanglesAveragesCluster(t *testing.T) {
	hits := []image.Rectangle{
		image.Rect(10, 10, 50, 50),
		image.Rect(12, 10, 52, 50),
		image.Rect(10, 12, 50, 52),
		image.Rect(12, 12, 52, 52),
	}
	got := GroupRectangles(hits, 3, DefaultGroupEps)
	require.Len(t, got, 1)
	assert.Equal(t, image.Rect(11, 11, 51, 51), got[0])
}

func TestGroupRectanglesKeepsSeparateFacesInScanOrder(t *testing.T) {
	right := image.Rect(300, 50, 380, 130)
	left := image.Rect(20, 40, 100, 120)
	hits := append(jitter(right, 6), jitter(left, 6)...)

	got := GroupRectangles(hits, 4, DefaultGroupEps)
	require.Len(t, got, 2)
	assert.True(t, got[0].Overlaps(right), "first group should be the first face scanned")
	assert.True(t, got[1].Overlaps(left))
}

func TestGroupRectanglesDropsNestedWeakCluster(t *testing.T) {
	outer := image.Rect(0, 0, 200, 200)
	inner := image.Rect(60, 60, 110, 110)
	hits := append(jitter(outer, 9), jitter(inner, 3)...)

	got := GroupRectangles(hits, 2, DefaultGroupEps)
	require.Len(t, got, 1)
	assert.True(t, got[0].Dx() > 150)
}

func TestFromRectsFiltersSmallBoxes(t *testing.T) {
	cfg := DefaultConfig()
	rects := []image.Rectangle{
		image.Rect(0, 0, 40, 100),  // passes
		image.Rect(0, 0, 31, 100),  // too narrow
		image.Rect(0, 0, 100, 95),  // too short
		image.Rect(5, 5, 105, 105), // passes
	}
	got := FromRects(rects, cfg)
	require.Len(t, got, 2)
	assert.Equal(t, 40, got[0].Width)
	assert.Equal(t, 5, got[1].X)
}

func TestFilterMinSizeEmpty(t *testing.T) {
	got := FilterMinSize(nil, 10, 10)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{ScaleFactor: 1.0}.Validate())
	assert.Error(t, Config{ScaleFactor: 1.1, MinNeighbors: -1}.Validate())
	assert.Error(t, Config{ScaleFactor: 1.1, MinWidth: -5}.Validate())
}

func TestDetectionRect(t *testing.T) {
	r := detectionRect(pigo.Detection{Row: 100, Col: 50, Scale: 40, Q: 5})
	assert.Equal(t, image.Rect(30, 80, 70, 120), r)
}
