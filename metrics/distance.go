// Package metrics - pose error metrics for model evaluation.
package metrics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nvr-ai/go-pose/transform"
)

// AverageDistance computes the two standard pose errors between a true and a
// predicted transform over a reference CAD point cloud.
//
// ADD is the mean distance under ground-truth point correspondence:
// mean_i ||T_true p_i - T_pred p_i||. ADD-S relaxes the correspondence to the
// nearest point in the predicted cloud, which makes it invariant to
// symmetries of the object: mean_i min_j ||T_true p_i - T_pred p_j||.
//
// Arguments:
// - points: The reference CAD point cloud in the object frame.
// - tTrue: The ground-truth object-to-camera transform.
// - tPred: The predicted object-to-camera transform.
//
// Returns:
// - add: Mean corresponding-point distance.
// - addS: Mean nearest-point distance.
func AverageDistance(points []r3.Vec, tTrue, tPred transform.Rigid) (add, addS float64) {
	if len(points) == 0 {
		return 0, 0
	}

	a := tTrue.ApplyAll(points)
	b := tPred.ApplyAll(points)

	var sumADD, sumADDS float64
	for i := range a {
		sumADD += dist(a[i], b[i])

		nearest := math.Inf(1)
		for j := range b {
			if d := dist(a[i], b[j]); d < nearest {
				nearest = d
			}
		}
		sumADDS += nearest
	}

	n := float64(len(points))
	return sumADD / n, sumADDS / n
}

// AverageDistanceL1 is the training-loss kernel: the mean over points of the
// L1 norm of the residual between the two transformed clouds.
func AverageDistanceL1(points []r3.Vec, tTrue, tPred transform.Rigid) float64 {
	if len(points) == 0 {
		return 0
	}

	var sum float64
	for _, p := range points {
		u := tTrue.Apply(p)
		v := tPred.Apply(p)
		sum += math.Abs(u.X-v.X) + math.Abs(u.Y-v.Y) + math.Abs(u.Z-v.Z)
	}
	return sum / float64(len(points))
}

func dist(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}
