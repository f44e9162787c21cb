package metrics

import "sort"

// Summary accumulates running means of named scalar observations, in the
// manner of a training-report dictionary. Keys are free-form; the pose model
// uses "add" and "add_s" pooled during training and "add/%04d" style
// per-class keys during evaluation.
type Summary struct {
	sums   map[string]float64
	counts map[string]int
}

// NewSummary returns an empty summary.
func NewSummary() *Summary {
	return &Summary{
		sums:   make(map[string]float64),
		counts: make(map[string]int),
	}
}

// Add records one observation of key.
func (s *Summary) Add(key string, value float64) {
	s.sums[key] += value
	s.counts[key]++
}

// Mean returns the running mean of key and whether any observation exists.
func (s *Summary) Mean(key string) (float64, bool) {
	n := s.counts[key]
	if n == 0 {
		return 0, false
	}
	return s.sums[key] / float64(n), true
}

// Count returns the number of observations recorded for key.
func (s *Summary) Count(key string) int {
	return s.counts[key]
}

// Keys returns the recorded keys in sorted order.
func (s *Summary) Keys() []string {
	keys := make([]string, 0, len(s.counts))
	for k := range s.counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Means returns all running means keyed by name.
func (s *Summary) Means() map[string]float64 {
	out := make(map[string]float64, len(s.counts))
	for k, n := range s.counts {
		out[k] = s.sums[k] / float64(n)
	}
	return out
}

// Merge folds the observations of other into s.
func (s *Summary) Merge(other *Summary) {
	for k, v := range other.sums {
		s.sums[k] += v
		s.counts[k] += other.counts[k]
	}
}
