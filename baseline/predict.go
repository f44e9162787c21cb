package baseline

import (
	"fmt"

	"github.com/chewxy/math32"
	"gorgonia.org/tensor"

	"github.com/nvr-ai/go-pose/nn"
	"github.com/nvr-ai/go-pose/voxel"
)

// Predict regresses a pose for every sample in the batch. All class ids must
// be foreground (padding is the caller's concern; see Forward). Quaternions
// are returned unit-norm and scalar-first, translations in world coordinates.
func (m *Model) Predict(b *Batch) (quaternions [][4]float32, translations [][3]float32, err error) {
	if err := m.checkBatch(b); err != nil {
		return nil, nil, err
	}
	batch := b.Len()

	feats, err := m.extractor.Extract(toCHW(b.RGB))
	if err != nil {
		return nil, nil, fmt.Errorf("feature extraction failed: %w", err)
	}
	proj, err := m.project(feats)
	if err != nil {
		return nil, nil, err
	}

	projData := proj.Data().([]float32)
	cloudData := b.Cloud.Data().([]float32)
	plane := InputSize * InputSize
	featRow := FeatureChannels * plane
	cloudRow := plane * 3

	grids := make([]*tensor.Dense, batch)
	for i := 0; i < batch; i++ {
		values, points := voxel.MaskedPixels(
			projData[i*featRow:(i+1)*featRow],
			FeatureChannels, InputSize, InputSize,
			cloudData[i*cloudRow:(i+1)*cloudRow],
		)
		grid, err := voxel.Scatter(values, points, FeatureChannels, b.Origin[i], b.Pitch[i], VoxelDim, m.cfg.Voxelization)
		if err != nil {
			return nil, nil, fmt.Errorf("voxelization of sample %d failed: %w", i, err)
		}
		if m.cfg.UseOccupancy {
			grid, err = voxel.ConcatOccupancy(grid, gridSample(b.GridNonTarget, i), gridSample(b.GridEmpty, i))
			if err != nil {
				return nil, nil, fmt.Errorf("occupancy fusion of sample %d failed: %w", i, err)
			}
		}
		grids[i] = grid
	}

	h, err := m.conv6.Forward(stackGrids(grids))
	if err != nil {
		return nil, nil, err
	}
	nn.ReLU(h)
	if h, err = m.conv7.Forward(h); err != nil {
		return nil, nil, err
	}
	nn.ReLU(h)

	flat := FeatureChannels * headDim * headDim * headDim
	if err := h.Reshape(batch, flat); err != nil {
		return nil, nil, fmt.Errorf("failed to flatten head volume: %w", err)
	}
	if h, err = m.fc8.Forward(h); err != nil {
		return nil, nil, err
	}
	nn.ReLU(h)

	rot, err := m.fcRot.Forward(h)
	if err != nil {
		return nil, nil, err
	}
	trans, err := m.fcTrans.Forward(h)
	if err != nil {
		return nil, nil, err
	}

	rotData := rot.Data().([]float32)
	transData := trans.Data().([]float32)
	n := m.cfg.NumClasses

	quaternions = make([][4]float32, batch)
	translations = make([][3]float32, batch)
	for i := 0; i < batch; i++ {
		fg := b.ClassIDs[i] - 1

		q := rotData[i*4*n+fg*4 : i*4*n+fg*4+4]
		norm := math32.Sqrt(q[0]*q[0] + q[1]*q[1] + q[2]*q[2] + q[3]*q[3] + 1e-12)
		for k := 0; k < 4; k++ {
			quaternions[i][k] = q[k] / norm
		}

		// The raw output is in grid units; scale by the grid extent and
		// shift by its origin to land in world coordinates.
		t := transData[i*3*n+fg*3 : i*3*n+fg*3+3]
		for k := 0; k < 3; k++ {
			translations[i][k] = b.Origin[i][k] + t[k]*b.Pitch[i]*VoxelDim
		}
	}
	return quaternions, translations, nil
}

func (m *Model) checkBatch(b *Batch) error {
	if b == nil || b.Len() == 0 {
		return fmt.Errorf("batch is empty")
	}
	batch := b.Len()

	for _, t := range []struct {
		name string
		d    *tensor.Dense
	}{{"rgb", b.RGB}, {"cloud", b.Cloud}} {
		if t.d == nil {
			return fmt.Errorf("batch %s tensor is nil", t.name)
		}
		s := t.d.Shape()
		if len(s) != 4 || s[0] != batch || s[1] != InputSize || s[2] != InputSize || s[3] != 3 {
			return fmt.Errorf("batch %s must be (%d,%d,%d,3), got shape %v", t.name, batch, InputSize, InputSize, s)
		}
	}

	if len(b.Pitch) != batch || len(b.Origin) != batch {
		return fmt.Errorf("batch has %d samples but %d pitches and %d origins", batch, len(b.Pitch), len(b.Origin))
	}
	for i, p := range b.Pitch {
		if p <= 0 || math32.IsNaN(p) {
			return fmt.Errorf("sample %d has invalid pitch %v", i, p)
		}
	}
	for i, id := range b.ClassIDs {
		if id < 1 || id > m.cfg.NumClasses {
			return fmt.Errorf("sample %d has class id %d outside [1,%d]", i, id, m.cfg.NumClasses)
		}
	}

	if m.cfg.UseOccupancy {
		for name, g := range map[string]*tensor.Dense{"non-target": b.GridNonTarget, "empty": b.GridEmpty} {
			if g == nil {
				return fmt.Errorf("occupancy fusion enabled but %s grid is nil", name)
			}
			s := g.Shape()
			if len(s) != 4 || s[0] != batch || s[1] != VoxelDim || s[2] != VoxelDim || s[3] != VoxelDim {
				return fmt.Errorf("%s grid must be (%d,%d,%d,%d), got shape %v", name, batch, VoxelDim, VoxelDim, VoxelDim, s)
			}
		}
	}
	return nil
}

// toCHW converts a (B, H, W, 3) image batch to the (B, 3, H, W) layout the
// backbone takes.
func toCHW(x *tensor.Dense) *tensor.Dense {
	s := x.Shape()
	batch, h, w, ch := s[0], s[1], s[2], s[3]
	src := x.Data().([]float32)
	dst := make([]float32, len(src))

	plane := h * w
	for b := 0; b < batch; b++ {
		for p := 0; p < plane; p++ {
			for c := 0; c < ch; c++ {
				dst[(b*ch+c)*plane+p] = src[(b*plane+p)*ch+c]
			}
		}
	}
	return tensor.New(tensor.WithShape(batch, ch, h, w), tensor.WithBacking(dst))
}

// gridSample views row i of a (B, dim, dim, dim) grid batch as (dim, dim, dim).
func gridSample(t *tensor.Dense, i int) *tensor.Dense {
	s := t.Shape()
	cells := s[1] * s[2] * s[3]
	data := t.Data().([]float32)
	return tensor.New(
		tensor.WithShape(s[1], s[2], s[3]),
		tensor.WithBacking(data[i*cells:(i+1)*cells]),
	)
}

// stackGrids concatenates per-sample (C, dim, dim, dim) grids into one
// (B, C, dim, dim, dim) volume.
func stackGrids(grids []*tensor.Dense) *tensor.Dense {
	s := grids[0].Shape()
	row := s[0] * s[1] * s[2] * s[3]
	out := make([]float32, len(grids)*row)
	for i, g := range grids {
		copy(out[i*row:], g.Data().([]float32))
	}
	return tensor.New(
		tensor.WithShape(len(grids), s[0], s[1], s[2], s[3]),
		tensor.WithBacking(out),
	)
}
