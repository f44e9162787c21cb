package nn

import (
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestLinearForward(t *testing.T) {
	l := &Linear{
		W: tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]float32{
			1, 2, 3,
			4, 5, 6,
		})),
		B: tensor.New(tensor.WithShape(3), tensor.WithBacking([]float32{10, 20, 30})),
	}
	x := tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]float32{1, 1}))

	y, err := l.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3}, []int(y.Shape()))
	assert.Equal(t, []float32{15, 27, 39}, y.Data().([]float32))
}

func TestLinearShapeMismatch(t *testing.T) {
	l := NewLinear(rand.New(rand.NewSource(1)), 4, 2)
	x := tensor.New(tensor.WithShape(1, 3), tensor.Of(tensor.Float32))
	_, err := l.Forward(x)
	assert.Error(t, err)
}

// A 1x1x1 kernel with weight 1 passes the volume through unchanged.
func TestConv3DIdentityKernel(t *testing.T) {
	c := &Conv3D{
		W:      tensor.New(tensor.WithShape(1, 1, 1, 1, 1), tensor.WithBacking([]float32{1})),
		B:      Zeros(1),
		Stride: 1,
		Pad:    0,
	}

	backing := []float32{1, 2, 3, 4, 5, 6, 7, 8}
	x := tensor.New(tensor.WithShape(1, 1, 2, 2, 2), tensor.WithBacking(backing))

	y, err := c.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2, 2, 2}, []int(y.Shape()))
	assert.Equal(t, backing, y.Data().([]float32))
}

// Kernel 4, stride 2, pad 1 halves each spatial extent: 8 -> 4.
func TestConv3DDownsampleShape(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	c := NewConv3D(rng, 3, 5, 4, 2, 1)
	assert.Equal(t, 4, c.OutputDim(8))

	x := tensor.New(tensor.WithShape(2, 3, 8, 8, 8), tensor.Of(tensor.Float32))
	y, err := c.Forward(x)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 4, 4, 4}, []int(y.Shape()))
}

// Summing kernel over a constant volume counts the in-bounds taps, so the
// padded corner sees fewer contributions than the interior.
func TestConv3DPaddingIsZero(t *testing.T) {
	k := 2
	weights := make([]float32, k*k*k)
	for i := range weights {
		weights[i] = 1
	}
	c := &Conv3D{
		W:      tensor.New(tensor.WithShape(1, 1, k, k, k), tensor.WithBacking(weights)),
		B:      Zeros(1),
		Stride: 1,
		Pad:    1,
	}

	ones := make([]float32, 27)
	for i := range ones {
		ones[i] = 1
	}
	x := tensor.New(tensor.WithShape(1, 1, 3, 3, 3), tensor.WithBacking(ones))

	y, err := c.Forward(x)
	require.NoError(t, err)
	out := y.Data().([]float32)
	assert.Equal(t, float32(1), out[0], "corner overlaps a single input cell")
	// Center of the 4^3 output overlaps a full 2^3 block.
	oh := 4
	assert.Equal(t, float32(8), out[(1*oh+1)*oh+1])
}

func TestConv3DChannelMismatch(t *testing.T) {
	c := NewConv3D(rand.New(rand.NewSource(3)), 4, 2, 3, 1, 1)
	x := tensor.New(tensor.WithShape(1, 3, 5, 5, 5), tensor.Of(tensor.Float32))
	_, err := c.Forward(x)
	assert.Error(t, err)
}

func TestReLU(t *testing.T) {
	x := tensor.New(tensor.WithShape(4), tensor.WithBacking([]float32{-1, 0, 2, -0.5}))
	y := ReLU(x)
	assert.Equal(t, []float32{0, 0, 2, 0}, y.Data().([]float32))
}

func TestGaussianAndZeros(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	g := Gaussian(rng, 0.01, 3, 4)
	assert.Equal(t, []int{3, 4}, []int(g.Shape()))

	var nonzero bool
	for _, v := range g.Data().([]float32) {
		if v != 0 {
			nonzero = true
		}
		assert.Less(t, float64(v), 0.1, "std 0.01 samples should be small")
	}
	assert.True(t, nonzero)

	z := Zeros(2, 2)
	assert.Equal(t, []float32{0, 0, 0, 0}, z.Data().([]float32))
}

func TestCheckpointRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	params := map[string]*tensor.Dense{
		"fc.w": Gaussian(rng, 0.01, 4, 2),
		"fc.b": Zeros(2),
	}
	path := filepath.Join(t.TempDir(), "head.ckpt")

	require.NoError(t, SaveCheckpoint(path, params))
	saved, err := LoadCheckpoint(path)
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, params["fc.w"].Data(), saved["fc.w"].Data())

	// Restore into freshly initialized tensors.
	live := map[string]*tensor.Dense{
		"fc.w": Zeros(4, 2),
		"fc.b": Zeros(2),
	}
	require.NoError(t, RestoreInto(live, saved))
	assert.Equal(t, params["fc.w"].Data(), live["fc.w"].Data())

	// Shape mismatches and missing names are rejected.
	assert.Error(t, RestoreInto(map[string]*tensor.Dense{"fc.w": Zeros(2, 2)}, saved))
	assert.Error(t, RestoreInto(map[string]*tensor.Dense{"other": Zeros(1)}, saved))
}
