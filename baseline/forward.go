package baseline

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/nvr-ai/go-pose/metrics"
	"github.com/nvr-ai/go-pose/transform"
)

// Result holds the pose errors of a single evaluated sample.
type Result struct {
	ClassID int
	ADD     float64
	ADDS    float64
}

// Forward runs prediction over the batch and scores it against the ground
// truth poses. Padding samples (class id -1) are skipped; a batch of only
// padding yields a zero loss and an empty summary.
//
// The loss is the batch mean of the L1 average-distance between the true and
// predicted clouds. With train set, ADD and ADD-S pool under "add" and
// "add_s"; otherwise they pool per class under "add/%04d" and "add_s/%04d".
func (m *Model) Forward(b *Batch, train bool) (float64, *metrics.Summary, error) {
	fb, err := dropPadding(b)
	if err != nil {
		return 0, nil, err
	}
	summary := metrics.NewSummary()
	if fb.Len() == 0 {
		return 0, summary, nil
	}

	results, loss, err := m.score(fb)
	if err != nil {
		return 0, nil, err
	}

	for _, r := range results {
		if train {
			summary.Add("add", r.ADD)
			summary.Add("add_s", r.ADDS)
			continue
		}
		summary.Add(fmt.Sprintf("add/%04d", r.ClassID), r.ADD)
		summary.Add(fmt.Sprintf("add_s/%04d", r.ClassID), r.ADDS)
	}
	summary.Add("loss", loss)
	return loss, summary, nil
}

// Evaluate predicts and scores each non-padding sample, returning per-sample
// errors in batch order.
func (m *Model) Evaluate(b *Batch) ([]Result, error) {
	fb, err := dropPadding(b)
	if err != nil {
		return nil, err
	}
	if fb.Len() == 0 {
		return nil, nil
	}
	results, _, err := m.score(fb)
	return results, err
}

// score predicts poses for an already-filtered batch and measures them
// against the ground truth. Returns per-sample errors and the mean L1
// average-distance loss.
func (m *Model) score(fb *Batch) ([]Result, float64, error) {
	if len(fb.Rotations) != fb.Len() || len(fb.Translations) != fb.Len() {
		return nil, 0, fmt.Errorf("batch has %d samples but %d rotations and %d translations",
			fb.Len(), len(fb.Rotations), len(fb.Translations))
	}

	quats, trans, err := m.Predict(fb)
	if err != nil {
		return nil, 0, err
	}

	results := make([]Result, fb.Len())
	var loss float64
	for i := 0; i < fb.Len(); i++ {
		cloud, err := m.store.PointCloud(fb.ClassIDs[i])
		if err != nil {
			return nil, 0, fmt.Errorf("no reference cloud for class %d: %w", fb.ClassIDs[i], err)
		}

		tTrue := composePose(fb.Rotations[i], fb.Translations[i])
		tPred := composePose(quats[i], trans[i])

		add, addS := metrics.AverageDistance(cloud, tTrue, tPred)
		results[i] = Result{ClassID: fb.ClassIDs[i], ADD: add, ADDS: addS}
		loss += metrics.AverageDistanceL1(cloud, tTrue, tPred)
	}
	return results, loss / float64(fb.Len()), nil
}

// dropPadding removes samples marked with class id -1.
func dropPadding(b *Batch) (*Batch, error) {
	if b == nil {
		return nil, fmt.Errorf("batch is nil")
	}
	keep := make([]bool, b.Len())
	kept := 0
	for i, id := range b.ClassIDs {
		if id != -1 {
			keep[i] = true
			kept++
		}
	}
	if kept == b.Len() {
		return b, nil
	}
	if kept == 0 {
		return &Batch{}, nil
	}
	return b.filter(keep, kept)
}

func composePose(q [4]float32, t [3]float32) transform.Rigid {
	return transform.Compose(
		transform.Quaternion{float64(q[0]), float64(q[1]), float64(q[2]), float64(q[3])},
		r3.Vec{X: float64(t[0]), Y: float64(t[1]), Z: float64(t[2])},
	)
}
