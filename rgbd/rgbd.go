// Package rgbd - depth-image geometry under a pinhole camera model.
package rgbd

import (
	"fmt"

	"github.com/chewxy/math32"
	"gorgonia.org/tensor"
)

// Intrinsics holds the pinhole camera parameters in pixels.
type Intrinsics struct {
	Fx float32
	Fy float32
	Cx float32
	Cy float32
}

// Validate checks that the focal lengths are usable.
func (k Intrinsics) Validate() error {
	if k.Fx <= 0 || k.Fy <= 0 {
		return fmt.Errorf("focal lengths must be positive, got fx=%v fy=%v", k.Fx, k.Fy)
	}
	return nil
}

// PointCloud back-projects a metric depth image into an organized (H, W, 3)
// point image in the camera frame. Pixels with non-positive or NaN depth
// produce NaN coordinates, which downstream voxelization drops.
//
// Arguments:
// - depth: (H, W) float32 depth in meters.
// - k: Camera intrinsics.
//
// Returns:
// - *tensor.Dense: The (H, W, 3) organized point cloud.
// - error: If depth is not a 2D float32 tensor or k is invalid.
func PointCloud(depth *tensor.Dense, k Intrinsics) (*tensor.Dense, error) {
	if err := k.Validate(); err != nil {
		return nil, err
	}
	s := depth.Shape()
	if len(s) != 2 {
		return nil, fmt.Errorf("depth image must be 2D (H,W), got shape %v", s)
	}
	d, ok := depth.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("depth image must be float32, got %v", depth.Dtype())
	}

	h, w := s[0], s[1]
	nan := math32.NaN()
	out := make([]float32, h*w*3)

	for v := 0; v < h; v++ {
		for u := 0; u < w; u++ {
			i := v*w + u
			z := d[i]
			if z <= 0 || math32.IsNaN(z) {
				out[i*3] = nan
				out[i*3+1] = nan
				out[i*3+2] = nan
				continue
			}
			out[i*3] = (float32(u) - k.Cx) * z / k.Fx
			out[i*3+1] = (float32(v) - k.Cy) * z / k.Fy
			out[i*3+2] = z
		}
	}

	return tensor.New(tensor.WithShape(h, w, 3), tensor.WithBacking(out)), nil
}
