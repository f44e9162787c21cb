package nn

import (
	"fmt"
	"math/rand"

	"gorgonia.org/tensor"
)

// Linear is a fully connected layer y = xW + b with W stored (In, Out).
type Linear struct {
	W *tensor.Dense
	B *tensor.Dense
}

// NewLinear builds a layer with Gaussian(std=0.01) weights and zero bias.
func NewLinear(rng *rand.Rand, in, out int) *Linear {
	return &Linear{
		W: Gaussian(rng, 0.01, in, out),
		B: Zeros(out),
	}
}

// Forward applies the layer to a (B, In) batch, returning (B, Out).
func (l *Linear) Forward(x *tensor.Dense) (*tensor.Dense, error) {
	xs, ws := x.Shape(), l.W.Shape()
	if len(xs) != 2 || len(ws) != 2 || xs[1] != ws[0] {
		return nil, fmt.Errorf("linear shape mismatch: input %v, weight %v", xs, ws)
	}

	prod, err := tensor.MatMul(x, l.W)
	if err != nil {
		return nil, fmt.Errorf("linear matmul failed: %w", err)
	}
	out := prod.(*tensor.Dense)

	data := out.Data().([]float32)
	bias := l.B.Data().([]float32)
	cols := ws[1]
	for i := range data {
		data[i] += bias[i%cols]
	}
	return out, nil
}
