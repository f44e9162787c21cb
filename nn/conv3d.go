package nn

import (
	"fmt"
	"math/rand"

	"gorgonia.org/tensor"
)

// Conv3D is a strided, zero-padded 3D convolution with a cubic kernel.
// Weights are stored (Out, In, K, K, K).
type Conv3D struct {
	W      *tensor.Dense
	B      *tensor.Dense
	Stride int
	Pad    int
}

// NewConv3D builds a convolution with Gaussian(std=0.01) weights and zero
// bias.
func NewConv3D(rng *rand.Rand, in, out, kernel, stride, pad int) *Conv3D {
	return &Conv3D{
		W:      Gaussian(rng, 0.01, out, in, kernel, kernel, kernel),
		B:      Zeros(out),
		Stride: stride,
		Pad:    pad,
	}
}

// OutputDim returns the spatial extent produced from an input extent.
func (c *Conv3D) OutputDim(in int) int {
	k := c.W.Shape()[2]
	return (in+2*c.Pad-k)/c.Stride + 1
}

// Forward convolves a (B, In, D, H, W) volume into (B, Out, D', H', W').
func (c *Conv3D) Forward(x *tensor.Dense) (*tensor.Dense, error) {
	xs, ws := x.Shape(), c.W.Shape()
	if len(xs) != 5 {
		return nil, fmt.Errorf("conv3d input must be 5D (B,C,D,H,W), got %v", xs)
	}
	if xs[1] != ws[1] {
		return nil, fmt.Errorf("conv3d channel mismatch: input has %d, weight wants %d", xs[1], ws[1])
	}

	batch, inCh := xs[0], xs[1]
	d, h, w := xs[2], xs[3], xs[4]
	outCh, k := ws[0], ws[2]
	od, oh, ow := c.OutputDim(d), c.OutputDim(h), c.OutputDim(w)
	if od <= 0 || oh <= 0 || ow <= 0 {
		return nil, fmt.Errorf("conv3d output would be empty for input %v kernel %d stride %d pad %d", xs, k, c.Stride, c.Pad)
	}

	in := x.Data().([]float32)
	weight := c.W.Data().([]float32)
	bias := c.B.Data().([]float32)
	out := make([]float32, batch*outCh*od*oh*ow)

	inPlane := d * h * w
	outPlane := od * oh * ow
	kCube := k * k * k

	for b := 0; b < batch; b++ {
		inBase := b * inCh * inPlane
		outBase := b * outCh * outPlane
		for oc := 0; oc < outCh; oc++ {
			wBase := oc * inCh * kCube
			for zo := 0; zo < od; zo++ {
				z0 := zo*c.Stride - c.Pad
				for yo := 0; yo < oh; yo++ {
					y0 := yo*c.Stride - c.Pad
					for xo := 0; xo < ow; xo++ {
						x0 := xo*c.Stride - c.Pad

						acc := bias[oc]
						for ic := 0; ic < inCh; ic++ {
							inCh0 := inBase + ic*inPlane
							wCh0 := wBase + ic*kCube
							for kz := 0; kz < k; kz++ {
								z := z0 + kz
								if z < 0 || z >= d {
									continue
								}
								for ky := 0; ky < k; ky++ {
									y := y0 + ky
									if y < 0 || y >= h {
										continue
									}
									for kx := 0; kx < k; kx++ {
										xc := x0 + kx
										if xc < 0 || xc >= w {
											continue
										}
										acc += in[inCh0+(z*h+y)*w+xc] * weight[wCh0+(kz*k+ky)*k+kx]
									}
								}
							}
						}
						out[outBase+oc*outPlane+(zo*oh+yo)*ow+xo] = acc
					}
				}
			}
		}
	}

	return tensor.New(
		tensor.WithShape(batch, outCh, od, oh, ow),
		tensor.WithBacking(out),
	), nil
}
