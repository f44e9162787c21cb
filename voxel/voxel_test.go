package voxel

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

const dim = 8

var origin = [3]float32{0, 0, 0}

func cellValue(t *testing.T, grid *tensor.Dense, c, x, y, z int) float32 {
	t.Helper()
	v, err := grid.At(c, x, y, z)
	require.NoError(t, err)
	return v.(float32)
}

// A single point under the max policy must come out unchanged at its cell.
func TestScatterMaxSinglePointIdentity(t *testing.T) {
	values := []float32{1.5, -2.0}
	points := []float32{0.35, 0.15, 0.75} // cell (3, 1, 7) at pitch 0.1

	grid, err := Scatter(values, points, 2, origin, 0.1, dim, Max)
	require.NoError(t, err)
	assert.Equal(t, []int{2, dim, dim, dim}, []int(grid.Shape()))
	assert.Equal(t, float32(1.5), cellValue(t, grid, 0, 3, 1, 7))
	assert.Equal(t, float32(-2.0), cellValue(t, grid, 1, 3, 1, 7))
}

// Two points in the same cell under the average policy yield their mean.
func TestScatterAverageSameCellMean(t *testing.T) {
	values := []float32{
		1.0, 4.0,
		3.0, 8.0,
	}
	points := []float32{
		0.31, 0.11, 0.71,
		0.39, 0.19, 0.79,
	}

	grid, err := Scatter(values, points, 2, origin, 0.1, dim, Average)
	require.NoError(t, err)
	assert.Equal(t, float32(2.0), cellValue(t, grid, 0, 3, 1, 7))
	assert.Equal(t, float32(6.0), cellValue(t, grid, 1, 3, 1, 7))
}

// Max over two points in the same cell is element-wise, not row-wise.
func TestScatterMaxSameCellElementwise(t *testing.T) {
	values := []float32{
		1.0, 8.0,
		3.0, 4.0,
	}
	points := []float32{
		0.05, 0.05, 0.05,
		0.05, 0.05, 0.05,
	}

	grid, err := Scatter(values, points, 2, origin, 0.1, dim, Max)
	require.NoError(t, err)
	assert.Equal(t, float32(3.0), cellValue(t, grid, 0, 0, 0, 0))
	assert.Equal(t, float32(8.0), cellValue(t, grid, 1, 0, 0, 0))
}

// Points with a NaN coordinate must never influence the grid.
func TestScatterDropsNaNPoints(t *testing.T) {
	nan := math32.NaN()
	values := []float32{9.0}
	points := []float32{0.05, nan, 0.05}

	for _, policy := range []Policy{Average, Max} {
		grid, err := Scatter(values, points, 1, origin, 0.1, dim, policy)
		require.NoError(t, err)
		data := grid.Data().([]float32)
		for i, v := range data {
			require.Zerof(t, v, "cell %d must stay zero under %s", i, policy)
		}
	}
}

// Points mapping outside the grid are dropped, not clipped to the border.
func TestScatterDropsOutOfBounds(t *testing.T) {
	values := []float32{
		1.0,
		2.0,
		3.0,
	}
	points := []float32{
		-0.01, 0.05, 0.05, // below on x
		0.05, 0.81, 0.05, // above on y (dim*pitch = 0.8)
		0.05, 0.05, 0.05, // inside
	}

	grid, err := Scatter(values, points, 1, origin, 0.1, dim, Average)
	require.NoError(t, err)

	var sum float32
	for _, v := range grid.Data().([]float32) {
		sum += v
	}
	assert.Equal(t, float32(3.0), sum, "only the in-bounds point may contribute")
	assert.Equal(t, float32(3.0), cellValue(t, grid, 0, 0, 0, 0))
}

func TestScatterEmptyInput(t *testing.T) {
	grid, err := Scatter(nil, nil, 16, origin, 0.1, dim, Max)
	require.NoError(t, err)
	for _, v := range grid.Data().([]float32) {
		require.Zero(t, v)
	}
}

func TestScatterArgumentValidation(t *testing.T) {
	tests := []struct {
		name string
		fn   func() error
	}{
		{"bad_policy", func() error {
			_, err := Scatter(nil, nil, 1, origin, 0.1, dim, Policy("median"))
			return err
		}},
		{"zero_pitch", func() error {
			_, err := Scatter(nil, nil, 1, origin, 0, dim, Max)
			return err
		}},
		{"negative_pitch", func() error {
			_, err := Scatter(nil, nil, 1, origin, -0.1, dim, Max)
			return err
		}},
		{"mismatched_points", func() error {
			_, err := Scatter([]float32{1}, []float32{1, 2}, 1, origin, 0.1, dim, Max)
			return err
		}},
		{"ragged_values", func() error {
			_, err := Scatter([]float32{1, 2, 3}, []float32{1, 2, 3}, 2, origin, 0.1, dim, Max)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.fn())
		})
	}
}

func TestMaskedPixels(t *testing.T) {
	nan := math32.NaN()
	// 1x2 image, 2 channels, CHW layout.
	features := []float32{
		10, 20, // channel 0
		30, 40, // channel 1
	}
	cloud := []float32{
		0.1, 0.2, 0.3, // valid pixel
		nan, 0.5, 0.6, // invalid pixel
	}

	values, points := MaskedPixels(features, 2, 1, 2, cloud)
	require.Equal(t, []float32{10, 30}, values)
	require.Equal(t, []float32{0.1, 0.2, 0.3}, points)
}

func TestConcatOccupancy(t *testing.T) {
	grid, err := Scatter([]float32{1}, []float32{0.05, 0.05, 0.05}, 1, origin, 0.1, dim, Max)
	require.NoError(t, err)

	cells := dim * dim * dim
	nt := make([]float32, cells)
	em := make([]float32, cells)
	nt[0] = 1
	em[cells-1] = 1
	nontarget := tensor.New(tensor.WithShape(dim, dim, dim), tensor.WithBacking(nt))
	empty := tensor.New(tensor.WithShape(dim, dim, dim), tensor.WithBacking(em))

	fused, err := ConcatOccupancy(grid, nontarget, empty)
	require.NoError(t, err)
	assert.Equal(t, []int{3, dim, dim, dim}, []int(fused.Shape()))
	assert.Equal(t, float32(1), cellValue(t, fused, 0, 0, 0, 0))
	assert.Equal(t, float32(1), cellValue(t, fused, 1, 0, 0, 0))
	assert.Equal(t, float32(1), cellValue(t, fused, 2, dim-1, dim-1, dim-1))
}

func TestConcatOccupancyShapeMismatch(t *testing.T) {
	grid, err := Scatter(nil, nil, 1, origin, 0.1, dim, Max)
	require.NoError(t, err)

	bad := tensor.New(tensor.WithShape(dim, dim, dim-1), tensor.Of(tensor.Float32))
	ok := tensor.New(tensor.WithShape(dim, dim, dim), tensor.Of(tensor.Float32))

	_, err = ConcatOccupancy(grid, bad, ok)
	assert.Error(t, err)
	_, err = ConcatOccupancy(grid, ok, nil)
	assert.Error(t, err)
}
