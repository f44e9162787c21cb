package nn

import (
	"encoding/gob"
	"fmt"
	"os"

	"gorgonia.org/tensor"
)

// SaveCheckpoint writes named parameter tensors to path with gob encoding.
func SaveCheckpoint(path string, params map[string]*tensor.Dense) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create checkpoint: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(params); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string) (map[string]*tensor.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint: %w", err)
	}
	defer f.Close()

	var params map[string]*tensor.Dense
	if err := gob.NewDecoder(f).Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	return params, nil
}

// RestoreInto copies checkpoint values into live parameter tensors, matching
// by name and requiring identical shapes.
func RestoreInto(params map[string]*tensor.Dense, saved map[string]*tensor.Dense) error {
	for name, dst := range params {
		src, ok := saved[name]
		if !ok {
			return fmt.Errorf("checkpoint is missing parameter %q", name)
		}
		if !dst.Shape().Eq(src.Shape()) {
			return fmt.Errorf("parameter %q shape mismatch: have %v, checkpoint %v", name, dst.Shape(), src.Shape())
		}
		copy(dst.Data().([]float32), src.Data().([]float32))
	}
	return nil
}
