package detector

import (
	"image"
	"math"
)

// DefaultGroupEps is the relative edge tolerance used when merging window hits
const DefaultGroupEps = 0.2

// GroupRectangles clusters raw window hits and returns one averaged rectangle per cluster that
// holds more than minNeighbors hits. Clusters sitting inside a stronger cluster are dropped.
// With minNeighbors <= 0 the input is returned unchanged.
func GroupRectangles(rects []image.Rectangle, minNeighbors int, eps float64) []image.Rectangle {
	if minNeighbors <= 0 || len(rects) == 0 {
		return rects
	}

	labels, nclasses := partition(rects, eps)

	type sum struct{ x, y, w, h float64 }
	sums := make([]sum, nclasses)
	counts := make([]int, nclasses)
	for i, r := range rects {
		c := labels[i]
		sums[c].x += float64(r.Min.X)
		sums[c].y += float64(r.Min.Y)
		sums[c].w += float64(r.Dx())
		sums[c].h += float64(r.Dy())
		counts[c]++
	}

	avg := make([]image.Rectangle, nclasses)
	for c := range avg {
		s := 1 / float64(counts[c])
		x := int(math.Round(sums[c].x * s))
		y := int(math.Round(sums[c].y * s))
		w := int(math.Round(sums[c].w * s))
		h := int(math.Round(sums[c].h * s))
		avg[c] = image.Rect(x, y, x+w, y+h)
	}

	out := make([]image.Rectangle, 0, nclasses)
	for i, r1 := range avg {
		n1 := counts[i]
		if n1 <= minNeighbors {
			continue
		}
		nested := false
		for j, r2 := range avg {
			n2 := counts[j]
			if j == i || n2 <= minNeighbors {
				continue
			}
			dx := int(math.Round(float64(r2.Dx()) * eps))
			dy := int(math.Round(float64(r2.Dy()) * eps))
			if r1.Min.X >= r2.Min.X-dx && r1.Min.Y >= r2.Min.Y-dy &&
				r1.Max.X <= r2.Max.X+dx && r1.Max.Y <= r2.Max.Y+dy &&
				(n2 > max(3, n1) || n1 < 3) {
				nested = true
				break
			}
		}
		if !nested {
			out = append(out, r1)
		}
	}
	return out
}

// similar reports whether two hits describe the same object: every edge within eps of the
// smaller box's mean side
func similar(a, b image.Rectangle, eps float64) bool {
	delta := eps * float64(min(a.Dx(), b.Dx())+min(a.Dy(), b.Dy())) * 0.5
	return math.Abs(float64(a.Min.X-b.Min.X)) <= delta &&
		math.Abs(float64(a.Min.Y-b.Min.Y)) <= delta &&
		math.Abs(float64(a.Max.X-b.Max.X)) <= delta &&
		math.Abs(float64(a.Max.Y-b.Max.Y)) <= delta
}

// partition labels rects by connected component of the similarity relation. Class numbers
// follow the order in which each component is first seen.
func partition(rects []image.Rectangle, eps float64) ([]int, int) {
	parent := make([]int, len(rects))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	for i := range rects {
		for j := i + 1; j < len(rects); j++ {
			if !similar(rects[i], rects[j], eps) {
				continue
			}
			ri, rj := find(i), find(j)
			if ri != rj {
				if ri < rj {
					parent[rj] = ri
				} else {
					parent[ri] = rj
				}
			}
		}
	}

	labels := make([]int, len(rects))
	classOf := make(map[int]int)
	for i := range rects {
		root := find(i)
		c, ok := classOf[root]
		if !ok {
			c = len(classOf)
			classOf[root] = c
		}
		labels[i] = c
	}
	return labels, len(classOf)
}
