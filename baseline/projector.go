package baseline

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// project maps a (B, 512, H/8, W/8) backbone activation to a
// (B, FeatureChannels, H, W) plane: a 1x1 convolution, bias, ReLU, and
// nearest-neighbor upsampling back to input resolution. The stage is built
// as a gorgonia graph and run once per call.
func (m *Model) project(feats *tensor.Dense) (*tensor.Dense, error) {
	s := feats.Shape()
	if len(s) != 4 || s[1] != backboneChannels {
		return nil, fmt.Errorf("projector expects (B,%d,h,w) features, got shape %v", backboneChannels, s)
	}
	if s[2] == 0 || InputSize%s[2] != 0 || s[2] != s[3] {
		return nil, fmt.Errorf("feature plane %dx%d does not divide the %d input", s[2], s[3], InputSize)
	}
	scale := InputSize / s[2]

	g := gorgonia.NewGraph()
	in := gorgonia.NewTensor(g, tensor.Float32, 4, gorgonia.WithShape(s...), gorgonia.WithName("feats"))
	w := gorgonia.NodeFromAny(g, m.conv5W, gorgonia.WithName("conv5.w"))
	b := gorgonia.NodeFromAny(g, m.conv5B, gorgonia.WithName("conv5.b"))

	conv, err := gorgonia.Conv2d(in, w, tensor.Shape{1, 1}, []int{0, 0}, []int{1, 1}, []int{1, 1})
	if err != nil {
		return nil, fmt.Errorf("projection conv failed: %w", err)
	}
	sum, err := gorgonia.BroadcastAdd(conv, b, nil, []byte{0, 2, 3})
	if err != nil {
		return nil, fmt.Errorf("projection bias failed: %w", err)
	}
	act, err := gorgonia.Rectify(sum)
	if err != nil {
		return nil, fmt.Errorf("projection activation failed: %w", err)
	}
	out := act
	if scale > 1 {
		if out, err = gorgonia.Upsample2D(act, scale); err != nil {
			return nil, fmt.Errorf("projection upsample failed: %w", err)
		}
	}

	vm := gorgonia.NewTapeMachine(g)
	defer vm.Close()
	if err := gorgonia.Let(in, feats); err != nil {
		return nil, fmt.Errorf("failed to bind projector input: %w", err)
	}
	if err := vm.RunAll(); err != nil {
		return nil, fmt.Errorf("projector execution failed: %w", err)
	}

	val, ok := out.Value().(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("projector produced unexpected value type %T", out.Value())
	}
	// Detach from the machine's buffers before it is closed.
	return val.Clone().(*tensor.Dense), nil
}
