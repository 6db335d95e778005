package clustering

import (
	"fmt"
	"math"
	"sort"

	"github.com/thebtf/notionflow-ai/pkg/similarity"
)

// Model is a fitted clustering that can place new embeddings without
// refitting. It is immutable once built and safe for concurrent use.
type Model struct {
	points     [][]float32
	core       []float64
	labels     []int
	thresholds []float64
	minSamples int
	dim        int
}

// NumClusters returns the number of clusters the model was fitted with.
func (m *Model) NumClusters() int {
	if m == nil {
		return 0
	}
	return len(m.thresholds)
}

// Dimension returns the embedding dimension the model expects.
func (m *Model) Dimension() int {
	if m == nil {
		return 0
	}
	return m.dim
}

// Size returns the number of training points.
func (m *Model) Size() int {
	if m == nil {
		return 0
	}
	return len(m.points)
}

type neighbour struct {
	idx  int
	dist float64
}

// Predict returns the cluster the vector falls into, or Noise.
//
// The vector is linked to the training point with the smallest mutual
// reachability distance among its nearest neighbours. It inherits that
// point's cluster when its density there reaches the cluster's threshold.
func (m *Model) Predict(vector []float32) (int, error) {
	if m == nil || len(m.points) == 0 {
		return Noise, ErrNotFitted
	}
	if len(vector) != m.dim {
		return Noise, fmt.Errorf("got %d dimensions, want %d: %w", len(vector), m.dim, ErrDimensionMismatch)
	}
	if !similarity.IsFinite(vector) {
		return Noise, ErrNonFinite
	}
	if len(m.thresholds) == 0 {
		return Noise, nil
	}

	nearest := m.nearest(vector, 2*m.minSamples)

	coreIdx := m.minSamples - 2
	if coreIdx < 0 {
		coreIdx = 0
	}
	if coreIdx >= len(nearest) {
		coreIdx = len(nearest) - 1
	}
	pointCore := nearest[coreIdx].dist

	best, bestDist := -1, math.Inf(1)
	for _, nb := range nearest {
		mr := math.Max(nb.dist, math.Max(pointCore, m.core[nb.idx]))
		if mr < bestDist {
			best, bestDist = nb.idx, mr
		}
	}

	label := m.labels[best]
	if label == Noise {
		return Noise, nil
	}
	if lambdaOf(bestDist) < m.thresholds[label] {
		return Noise, nil
	}
	return label, nil
}

// nearest returns the k training points closest to v, closest first.
// Equal distances keep training order.
func (m *Model) nearest(v []float32, k int) []neighbour {
	if k > len(m.points) {
		k = len(m.points)
	}
	out := make([]neighbour, 0, k)
	for i, p := range m.points {
		d := similarity.EuclideanDistance(v, p)
		if len(out) == k && d >= out[k-1].dist {
			continue
		}
		idx := sort.Search(len(out), func(j int) bool { return out[j].dist > d })
		if len(out) < k {
			out = append(out, neighbour{})
		}
		copy(out[idx+1:], out[idx:len(out)-1])
		out[idx] = neighbour{idx: i, dist: d}
	}
	return out
}
