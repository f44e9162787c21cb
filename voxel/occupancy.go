package voxel

import (
	"fmt"

	"gorgonia.org/tensor"
)

// ConcatOccupancy appends two single-channel occupancy grids (non-target
// occupied space and observed-empty space) to a (C, dim, dim, dim) feature
// grid, yielding a (C+2, dim, dim, dim) grid. Both occupancy grids must be
// (dim, dim, dim).
func ConcatOccupancy(grid, nontarget, empty *tensor.Dense) (*tensor.Dense, error) {
	gs := grid.Shape()
	if len(gs) != 4 {
		return nil, fmt.Errorf("feature grid must be 4D (C,X,Y,Z), got shape %v", gs)
	}
	channels, dim := gs[0], gs[1]
	if gs[2] != dim || gs[3] != dim {
		return nil, fmt.Errorf("feature grid must be cubic, got shape %v", gs)
	}
	for name, g := range map[string]*tensor.Dense{"nontarget": nontarget, "empty": empty} {
		if g == nil {
			return nil, fmt.Errorf("%s occupancy grid is nil", name)
		}
		s := g.Shape()
		if len(s) != 3 || s[0] != dim || s[1] != dim || s[2] != dim {
			return nil, fmt.Errorf("%s occupancy grid must be (%d,%d,%d), got shape %v", name, dim, dim, dim, s)
		}
	}

	cells := dim * dim * dim
	out := make([]float32, (channels+2)*cells)
	copy(out, grid.Data().([]float32))
	copy(out[channels*cells:], nontarget.Data().([]float32))
	copy(out[(channels+1)*cells:], empty.Data().([]float32))

	return tensor.New(
		tensor.WithShape(channels+2, dim, dim, dim),
		tensor.WithBacking(out),
	), nil
}
