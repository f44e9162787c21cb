package nn

import "gorgonia.org/tensor"

// ReLU rectifies the tensor in place and returns it.
func ReLU(x *tensor.Dense) *tensor.Dense {
	data := x.Data().([]float32)
	for i, v := range data {
		if v < 0 {
			data[i] = 0
		}
	}
	return x
}
