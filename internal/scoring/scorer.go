// Package scoring combines independently computed similarity signals into one
// ranked decision using fixed convex weights and a confidence floor.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Signal identifies one kind of partial score.
type Signal uint8

const (
	// SignalKeyword is rule-based keyword or name matching.
	SignalKeyword Signal = iota
	// SignalEmbedding is embedding similarity rescaled to [0,1].
	SignalEmbedding
	// SignalRecency is membership in a recently used set.
	SignalRecency

	signalCount
)

// Signals lists every signal in declaration order.
func Signals() []Signal {
	return []Signal{SignalKeyword, SignalEmbedding, SignalRecency}
}

// String returns the signal name.
func (s Signal) String() string {
	switch s {
	case SignalKeyword:
		return "keyword"
	case SignalEmbedding:
		return "embedding"
	case SignalRecency:
		return "recency"
	default:
		return fmt.Sprintf("signal(%d)", uint8(s))
	}
}

// Valid reports whether s is a known signal.
func (s Signal) Valid() bool {
	return s < signalCount
}

// Policy decides what happens to a best candidate below the floor.
type Policy uint8

const (
	// PolicyFallback keeps candidates at or above the floor; a decision below
	// the floor is replaced by a fallback key carrying the computed score.
	PolicyFallback Policy = iota
	// PolicyExclude keeps only candidates strictly above the floor.
	PolicyExclude
)

// Weights assigns one weight per signal. Weights must be non-negative and sum to 1.
type Weights [signalCount]float64

// Sum returns the total weight.
func (w Weights) Sum() float64 {
	var sum float64
	for _, v := range w {
		sum += v
	}
	return sum
}

// Scores holds the partial scores of one candidate. A signal that was never
// set contributes zero.
type Scores [signalCount]float64

// Set records a signal score, clamped to [0,1]. NaN counts as zero.
func (s *Scores) Set(sig Signal, v float64) {
	if !sig.Valid() {
		return
	}
	s[sig] = clamp01(v)
}

// Get returns the score recorded for sig.
func (s Scores) Get(sig Signal) float64 {
	if !sig.Valid() {
		return 0
	}
	return s[sig]
}

// Candidate is a key with its partial scores.
type Candidate[K comparable] struct {
	Key    K
	Scores Scores
}

// Ranked is a key with its combined score.
type Ranked[K comparable] struct {
	Key   K
	Score float64
}

// ErrInvalidWeights is returned by New for weights that are not convex.
var ErrInvalidWeights = errors.New("weights must be non-negative and sum to 1")

const weightTolerance = 1e-9

// Scorer combines partial scores with fixed weights.
type Scorer struct {
	weights Weights
	floor   float64
	policy  Policy
}

// New creates a scorer. It fails when the weights are negative or do not sum to 1.
func New(weights Weights, floor float64, policy Policy) (*Scorer, error) {
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("%s weight %v: %w", Signal(i), w, ErrInvalidWeights)
		}
	}
	if sum := weights.Sum(); math.Abs(sum-1) > weightTolerance {
		return nil, fmt.Errorf("weights sum to %v: %w", sum, ErrInvalidWeights)
	}
	return &Scorer{weights: weights, floor: floor, policy: policy}, nil
}

// MustNew is New for package-level scorers with constant weights.
func MustNew(weights Weights, floor float64, policy Policy) *Scorer {
	s, err := New(weights, floor, policy)
	if err != nil {
		panic(err)
	}
	return s
}

// Weights returns the scorer's weights.
func (s *Scorer) Weights() Weights { return s.weights }

// Combine returns the weighted sum of the partial scores.
func (s *Scorer) Combine(scores Scores) float64 {
	var final float64
	for _, sig := range Signals() {
		final += s.weights[sig] * scores[sig]
	}
	return final
}

// Passes reports whether score clears the floor under the scorer's policy.
func (s *Scorer) Passes(score float64) bool {
	if s.policy == PolicyExclude {
		return score > s.floor
	}
	return score >= s.floor
}

// Rank combines every candidate and sorts them by descending score.
// Equal scores keep input order.
func Rank[K comparable](s *Scorer, candidates []Candidate[K]) []Ranked[K] {
	ranked := make([]Ranked[K], len(candidates))
	for i, c := range candidates {
		ranked[i] = Ranked[K]{Key: c.Key, Score: s.Combine(c.Scores)}
	}
	sortRanked(ranked)
	return ranked
}

// Accept ranks candidates and keeps at most topK of those passing the floor.
// A non-positive topK keeps all of them.
func Accept[K comparable](s *Scorer, candidates []Candidate[K], topK int) []Ranked[K] {
	ranked := Rank(s, candidates)
	kept := ranked[:0]
	for _, r := range ranked {
		if s.Passes(r.Score) {
			kept = append(kept, r)
		}
	}
	if topK > 0 && len(kept) > topK {
		kept = kept[:topK]
	}
	return kept
}

// Decide returns the best candidate, or fallback with the best score when
// that score does not clear the floor. With no candidates the result is
// fallback with score 0.
func Decide[K comparable](s *Scorer, candidates []Candidate[K], fallback K) Ranked[K] {
	ranked := Rank(s, candidates)
	if len(ranked) == 0 {
		return Ranked[K]{Key: fallback}
	}
	best := ranked[0]
	if !s.Passes(best.Score) {
		return Ranked[K]{Key: fallback, Score: best.Score}
	}
	return best
}

// Round rounds v to four decimal places.
func Round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

func sortRanked[K comparable](ranked []Ranked[K]) {
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
