// Package voxel - scatter-reduce of pixel-aligned features into dense 3D
// grids.
//
// The grid is anchored at an origin with cubic cells of size pitch: a point p
// lands in cell floor((p - origin) / pitch). Points whose cell falls outside
// [0, dim) on any axis are dropped, as are points with a NaN coordinate.
// Cells that receive no points stay zero.
package voxel

import (
	"fmt"

	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// Policy selects how features sharing a cell are reduced.
type Policy string

const (
	// Average mean-pools the features of all points in a cell.
	Average Policy = "average"
	// Max keeps the element-wise maximum across points in a cell.
	Max Policy = "max"
)

// Valid reports whether p names a known aggregation policy.
func (p Policy) Valid() bool {
	return p == Average || p == Max
}

// Scatter bins M feature vectors into a dim^3 grid.
//
// Arguments:
// - values: Flattened (M, channels) feature rows.
// - points: Flattened (M, 3) world coordinates, one per feature row.
// - channels: Feature width C.
// - origin: World position of the grid corner.
// - pitch: Cell edge length, must be positive.
// - dim: Cells per axis.
// - policy: Average or Max.
//
// Returns:
// - *tensor.Dense: The (C, dim, dim, dim) feature grid.
// - error: If the arguments are inconsistent.
func Scatter(
	values, points []float32,
	channels int,
	origin [3]float32,
	pitch float32,
	dim int,
	policy Policy,
) (*tensor.Dense, error) {
	if !policy.Valid() {
		return nil, fmt.Errorf("unknown voxelization policy %q", policy)
	}
	if pitch <= 0 || math32.IsNaN(pitch) {
		return nil, fmt.Errorf("voxel pitch must be positive, got %v", pitch)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("channels must be positive, got %d", channels)
	}
	if dim <= 0 {
		return nil, fmt.Errorf("grid dimension must be positive, got %d", dim)
	}
	if len(values)%channels != 0 {
		return nil, fmt.Errorf("values length %d is not a multiple of %d channels", len(values), channels)
	}
	m := len(values) / channels
	if len(points) != m*3 {
		return nil, fmt.Errorf("points length %d does not match %d feature rows", len(points), m)
	}

	cells := dim * dim * dim
	out := make([]float32, channels*cells)

	var counts []int32
	var filled []bool
	switch policy {
	case Average:
		counts = make([]int32, cells)
	case Max:
		filled = make([]bool, cells)
	}

	for i := 0; i < m; i++ {
		px, py, pz := points[i*3], points[i*3+1], points[i*3+2]
		if math32.IsNaN(px) || math32.IsNaN(py) || math32.IsNaN(pz) {
			continue
		}
		ix := int(math32.Floor((px - origin[0]) / pitch))
		iy := int(math32.Floor((py - origin[1]) / pitch))
		iz := int(math32.Floor((pz - origin[2]) / pitch))
		if ix < 0 || ix >= dim || iy < 0 || iy >= dim || iz < 0 || iz >= dim {
			continue
		}
		cell := (ix*dim+iy)*dim + iz

		switch policy {
		case Average:
			for c := 0; c < channels; c++ {
				out[c*cells+cell] += values[i*channels+c]
			}
			counts[cell]++
		case Max:
			if !filled[cell] {
				for c := 0; c < channels; c++ {
					out[c*cells+cell] = values[i*channels+c]
				}
				filled[cell] = true
				continue
			}
			for c := 0; c < channels; c++ {
				if v := values[i*channels+c]; v > out[c*cells+cell] {
					out[c*cells+cell] = v
				}
			}
		}
	}

	if policy == Average {
		for cell, n := range counts {
			if n < 2 {
				continue
			}
			inv := 1 / float32(n)
			for c := 0; c < channels; c++ {
				out[c*cells+cell] *= inv
			}
		}
	}

	return tensor.New(
		tensor.WithShape(channels, dim, dim, dim),
		tensor.WithBacking(out),
	), nil
}

// MaskedPixels gathers the (feature, point) pairs of all pixels whose 3D
// point is finite. features is one CHW feature plane and cloud the matching
// HW3 point image; the returned slices are flattened (M, channels) and
// (M, 3) rows ready for Scatter.
func MaskedPixels(features []float32, channels, height, width int, cloud []float32) (values, points []float32) {
	plane := height * width
	values = make([]float32, 0, plane*channels)
	points = make([]float32, 0, plane*3)

	for p := 0; p < plane; p++ {
		px, py, pz := cloud[p*3], cloud[p*3+1], cloud[p*3+2]
		if math32.IsNaN(px) || math32.IsNaN(py) || math32.IsNaN(pz) {
			continue
		}
		for c := 0; c < channels; c++ {
			values = append(values, features[c*plane+p])
		}
		points = append(points, px, py, pz)
	}
	return values, points
}
