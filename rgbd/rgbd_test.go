package rgbd

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestPointCloud(t *testing.T) {
	k := Intrinsics{Fx: 100, Fy: 100, Cx: 1, Cy: 1}
	depth := tensor.New(
		tensor.WithShape(2, 2),
		tensor.WithBacking([]float32{
			2.0, 0.0,
			math32.NaN(), 1.0,
		}),
	)

	cloud, err := PointCloud(depth, k)
	require.NoError(t, err)
	require.Equal(t, []int{2, 2, 3}, []int(cloud.Shape()))
	data := cloud.Data().([]float32)

	// Pixel (u=0, v=0), z=2: x = (0-1)*2/100, y = (0-1)*2/100.
	assert.InDelta(t, -0.02, data[0], 1e-6)
	assert.InDelta(t, -0.02, data[1], 1e-6)
	assert.InDelta(t, 2.0, data[2], 1e-6)

	// Zero depth and NaN depth both yield NaN points.
	for _, i := range []int{1, 2} {
		assert.True(t, math32.IsNaN(data[i*3]))
		assert.True(t, math32.IsNaN(data[i*3+1]))
		assert.True(t, math32.IsNaN(data[i*3+2]))
	}

	// Pixel (u=1, v=1), z=1: principal point, so x = y = 0.
	assert.Equal(t, float32(0), data[3*3])
	assert.Equal(t, float32(0), data[3*3+1])
	assert.Equal(t, float32(1), data[3*3+2])
}

func TestPointCloudValidation(t *testing.T) {
	depth := tensor.New(tensor.WithShape(2, 2), tensor.Of(tensor.Float32))

	_, err := PointCloud(depth, Intrinsics{Fx: 0, Fy: 1})
	assert.Error(t, err)

	bad := tensor.New(tensor.WithShape(2, 2, 1), tensor.Of(tensor.Float32))
	_, err = PointCloud(bad, Intrinsics{Fx: 1, Fy: 1})
	assert.Error(t, err)
}
