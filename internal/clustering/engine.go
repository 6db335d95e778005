// Package clustering provides density-based clustering of note embeddings
// and incremental assignment of new embeddings to a previously fitted model.
package clustering

import (
	"errors"
	"fmt"

	"github.com/thebtf/notionflow-ai/pkg/similarity"
)

// Noise is the cluster id reported for items that belong to no cluster.
const Noise = -1

const (
	// DefaultMinItems is the smallest batch that is fitted at all.
	DefaultMinItems = 10
	// DefaultMinClusterSize is the smallest group reported as a cluster.
	DefaultMinClusterSize = 3
	// DefaultMinSamples is the neighbourhood size used for core distances.
	DefaultMinSamples = 2
	// DefaultSingleClusterGap is the density ratio a lone dense group needs over
	// the rest of the batch before it is reported as the only cluster.
	DefaultSingleClusterGap = 2.0
)

var (
	// ErrDimensionMismatch is returned when vectors do not share one dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNonFinite is returned when a vector holds NaN or Inf components.
	ErrNonFinite = errors.New("vector contains non-finite values")
	// ErrNotFitted is returned when assignment is attempted without a model.
	ErrNotFitted = errors.New("clustering model not fitted")
)

// Item is an identified embedding taking part in a clustering batch.
type Item struct {
	ID     string
	Vector []float32
}

// Cluster is one discovered group of item identifiers.
type Cluster struct {
	ID      int
	Members []string
}

// Result partitions a batch into clusters and noise.
// Every input identifier appears exactly once across Clusters and Noise.
type Result struct {
	Clusters []Cluster
	Noise    []string
}

// Params tunes the density clustering.
type Params struct {
	MinItems         int
	MinClusterSize   int
	MinSamples       int
	SingleClusterGap float64
}

// DefaultParams returns the parameters the service runs with.
func DefaultParams() Params {
	return Params{
		MinItems:         DefaultMinItems,
		MinClusterSize:   DefaultMinClusterSize,
		MinSamples:       DefaultMinSamples,
		SingleClusterGap: DefaultSingleClusterGap,
	}
}

func (p Params) withDefaults() Params {
	d := DefaultParams()
	if p.MinItems <= 0 {
		p.MinItems = d.MinItems
	}
	if p.MinItems < 2 {
		p.MinItems = 2
	}
	if p.MinClusterSize < 2 {
		p.MinClusterSize = d.MinClusterSize
	}
	if p.MinSamples <= 0 {
		p.MinSamples = d.MinSamples
	}
	if p.SingleClusterGap <= 1 {
		p.SingleClusterGap = d.SingleClusterGap
	}
	return p
}

// Engine fits density clusterings. It holds no state between calls.
type Engine struct {
	params Params
}

// NewEngine creates an Engine. Zero-valued params fall back to defaults.
func NewEngine(params Params) *Engine {
	return &Engine{params: params.withDefaults()}
}

// Params returns the effective parameters.
func (e *Engine) Params() Params {
	return e.params
}

// Fit clusters items. Batches smaller than MinItems are not fitted: every
// identifier is returned as noise and the returned model is nil.
// Malformed vectors abort the fit with an error wrapping ErrDimensionMismatch
// or ErrNonFinite.
func (e *Engine) Fit(items []Item) (*Result, *Model, error) {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}

	if len(items) < e.params.MinItems {
		return &Result{Clusters: []Cluster{}, Noise: ids}, nil, nil
	}

	points, err := validate(items)
	if err != nil {
		return nil, nil, err
	}

	core := coreDistances(points, e.params.MinSamples)
	edges := mutualReachabilityMST(points, core)
	hierarchy := singleLinkage(edges, len(points))
	tree := condense(hierarchy, len(points), e.params.MinClusterSize)
	sel := tree.selectClusters(e.params.MinClusterSize, e.params.SingleClusterGap)

	model := &Model{
		points:     points,
		core:       core,
		labels:     sel.labels,
		thresholds: sel.thresholds,
		minSamples: e.params.MinSamples,
		dim:        len(points[0]),
	}

	return buildResult(ids, sel.labels, len(sel.thresholds)), model, nil
}

func validate(items []Item) ([][]float32, error) {
	dim := len(items[0].Vector)
	if dim == 0 {
		return nil, fmt.Errorf("item %q: empty vector: %w", items[0].ID, ErrDimensionMismatch)
	}

	points := make([][]float32, len(items))
	for i, it := range items {
		if len(it.Vector) != dim {
			return nil, fmt.Errorf("item %q: got %d dimensions, want %d: %w", it.ID, len(it.Vector), dim, ErrDimensionMismatch)
		}
		if !similarity.IsFinite(it.Vector) {
			return nil, fmt.Errorf("item %q: %w", it.ID, ErrNonFinite)
		}
		v := make([]float32, dim)
		copy(v, it.Vector)
		points[i] = v
	}
	return points, nil
}

func buildResult(ids []string, labels []int, numClusters int) *Result {
	members := make([][]string, numClusters)
	noise := make([]string, 0)
	for i, id := range ids {
		if labels[i] == Noise {
			noise = append(noise, id)
			continue
		}
		members[labels[i]] = append(members[labels[i]], id)
	}

	clusters := make([]Cluster, 0, numClusters)
	for label, m := range members {
		clusters = append(clusters, Cluster{ID: label, Members: m})
	}
	return &Result{Clusters: clusters, Noise: noise}
}
