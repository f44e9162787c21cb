package baseline

import (
	"fmt"

	"gorgonia.org/tensor"
)

// Batch is one minibatch of RGB-D crops, each centered on a single object
// candidate. A ClassID of -1 marks a padding slot; padded samples are
// filtered out before prediction, loss, and metrics.
type Batch struct {
	// ClassIDs holds the 1-based foreground class per sample, or -1.
	ClassIDs []int
	// Pitch is the voxel edge length per sample, in meters.
	Pitch []float32
	// Origin is the world position of the voxel grid corner per sample.
	Origin [][3]float32
	// RGB is the (B, 256, 256, 3) color image batch, values in [0, 255].
	RGB *tensor.Dense
	// Cloud is the (B, 256, 256, 3) organized point image aligned with RGB;
	// pixels without depth carry NaN coordinates.
	Cloud *tensor.Dense

	// GridNonTarget and GridEmpty are optional (B, 32, 32, 32) occupancy
	// grids, required when the model fuses occupancy.
	GridNonTarget *tensor.Dense
	GridEmpty     *tensor.Dense

	// Rotations and Translations are the ground-truth poses, scalar-first
	// quaternions and world translations. Only Forward and Evaluate need
	// them.
	Rotations    [][4]float32
	Translations [][3]float32
}

// Len returns the number of samples, including padding slots.
func (b *Batch) Len() int {
	return len(b.ClassIDs)
}

// filter returns a batch holding only the samples where keep is true.
func (b *Batch) filter(keep []bool, kept int) (*Batch, error) {
	out := &Batch{
		ClassIDs: make([]int, 0, kept),
		Pitch:    make([]float32, 0, kept),
		Origin:   make([][3]float32, 0, kept),
	}
	for i, k := range keep {
		if !k {
			continue
		}
		out.ClassIDs = append(out.ClassIDs, b.ClassIDs[i])
		out.Pitch = append(out.Pitch, b.Pitch[i])
		out.Origin = append(out.Origin, b.Origin[i])
		if len(b.Rotations) == b.Len() {
			out.Rotations = append(out.Rotations, b.Rotations[i])
		}
		if len(b.Translations) == b.Len() {
			out.Translations = append(out.Translations, b.Translations[i])
		}
	}

	var err error
	if out.RGB, err = selectRows(b.RGB, keep, kept); err != nil {
		return nil, err
	}
	if out.Cloud, err = selectRows(b.Cloud, keep, kept); err != nil {
		return nil, err
	}
	if b.GridNonTarget != nil {
		if out.GridNonTarget, err = selectRows(b.GridNonTarget, keep, kept); err != nil {
			return nil, err
		}
	}
	if b.GridEmpty != nil {
		if out.GridEmpty, err = selectRows(b.GridEmpty, keep, kept); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// selectRows copies the rows of a batched tensor (leading axis B) where keep
// is true.
func selectRows(t *tensor.Dense, keep []bool, kept int) (*tensor.Dense, error) {
	if t == nil {
		return nil, fmt.Errorf("batch tensor is nil")
	}
	s := t.Shape()
	if len(s) < 2 || s[0] != len(keep) {
		return nil, fmt.Errorf("cannot select %d rows from tensor with shape %v", len(keep), s)
	}

	row := 1
	for _, d := range s[1:] {
		row *= d
	}
	src := t.Data().([]float32)
	dst := make([]float32, 0, kept*row)
	for i, k := range keep {
		if k {
			dst = append(dst, src[i*row:(i+1)*row]...)
		}
	}

	shape := append([]int{kept}, s[1:]...)
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(dst)), nil
}
