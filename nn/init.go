// Package nn - float32 neural network layers over dense tensors, covering
// the operations the pose head needs: linear maps, strided 3D convolution,
// and rectification.
package nn

import (
	"math/rand"

	"gorgonia.org/tensor"
)

// Gaussian returns a tensor of the given shape filled with zero-mean normal
// samples scaled by std.
func Gaussian(rng *rand.Rand, std float64, shape ...int) *tensor.Dense {
	n := 1
	for _, d := range shape {
		n *= d
	}
	data := make([]float32, n)
	for i := range data {
		data[i] = float32(rng.NormFloat64() * std)
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(data))
}

// Zeros returns a zero tensor of the given shape.
func Zeros(shape ...int) *tensor.Dense {
	return tensor.New(tensor.WithShape(shape...), tensor.Of(tensor.Float32))
}
