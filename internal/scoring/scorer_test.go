package scoring

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	twoSignal   = Weights{SignalKeyword: 0.4, SignalEmbedding: 0.6}
	threeSignal = Weights{SignalKeyword: 0.3, SignalEmbedding: 0.5, SignalRecency: 0.2}
)

func scores(pairs ...float64) Scores {
	var s Scores
	for i, v := range pairs {
		s.Set(Signal(i), v)
	}
	return s
}

func TestNew_RejectsNonConvexWeights(t *testing.T) {
	tests := []struct {
		name    string
		weights Weights
		wantErr bool
	}{
		{name: "two signals", weights: twoSignal},
		{name: "three signals", weights: threeSignal},
		{name: "single signal", weights: Weights{SignalRecency: 1}},
		{name: "sum below one", weights: Weights{SignalKeyword: 0.4, SignalEmbedding: 0.4}, wantErr: true},
		{name: "sum above one", weights: Weights{SignalKeyword: 0.8, SignalEmbedding: 0.6}, wantErr: true},
		{name: "negative weight", weights: Weights{SignalKeyword: -0.2, SignalEmbedding: 1.2}, wantErr: true},
		{name: "nan weight", weights: Weights{SignalKeyword: math.NaN(), SignalEmbedding: 1}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.weights, 0.1, PolicyExclude)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidWeights)
				assert.Nil(t, s)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.weights, s.Weights())
		})
	}
}

func TestMustNew_Panics(t *testing.T) {
	assert.Panics(t, func() { MustNew(Weights{}, 0, PolicyFallback) })
}

func TestCombine_Extremes(t *testing.T) {
	for _, w := range []Weights{twoSignal, threeSignal} {
		s := MustNew(w, 0.1, PolicyExclude)
		assert.InDelta(t, 1.0, s.Combine(scores(1, 1, 1)), 1e-12)
		assert.Equal(t, 0.0, s.Combine(Scores{}))
	}
}

func TestCombine_MissingSignalIsZero(t *testing.T) {
	s := MustNew(threeSignal, 0.1, PolicyExclude)
	var sc Scores
	sc.Set(SignalKeyword, 1)
	sc.Set(SignalRecency, 1)
	assert.InDelta(t, 0.5, s.Combine(sc), 1e-12)
}

func TestScores_SetClamps(t *testing.T) {
	var sc Scores
	sc.Set(SignalKeyword, 1.7)
	sc.Set(SignalEmbedding, -0.3)
	sc.Set(SignalRecency, math.NaN())
	sc.Set(Signal(42), 1)

	assert.Equal(t, 1.0, sc.Get(SignalKeyword))
	assert.Equal(t, 0.0, sc.Get(SignalEmbedding))
	assert.Equal(t, 0.0, sc.Get(SignalRecency))
	assert.Equal(t, 0.0, sc.Get(Signal(42)))
}

func TestRank_StableDescending(t *testing.T) {
	s := MustNew(twoSignal, 0.15, PolicyFallback)
	ranked := Rank(s, []Candidate[string]{
		{Key: "a", Scores: scores(0.5, 0.5)},
		{Key: "b", Scores: scores(1, 1)},
		{Key: "c", Scores: scores(0.5, 0.5)},
		{Key: "d", Scores: scores(0, 0)},
	})

	keys := make([]string, len(ranked))
	for i, r := range ranked {
		keys[i] = r.Key
	}
	assert.Equal(t, []string{"b", "a", "c", "d"}, keys)
}

func TestAccept_FloorAndTopK(t *testing.T) {
	s := MustNew(threeSignal, 0.1, PolicyExclude)
	candidates := []Candidate[int]{
		{Key: 1, Scores: scores(0, 0.2, 0)},     // exactly 0.1, excluded
		{Key: 2, Scores: scores(1, 0, 1)},       // 0.5
		{Key: 3, Scores: scores(0, 0.9, 0)},     // 0.45
		{Key: 4, Scores: scores(0.6, 0.6, 0)},   // 0.48
		{Key: 5, Scores: scores(0, 0.22, 0)},    // 0.11
		{Key: 6, Scores: scores(0.01, 0.01, 0)}, // below floor
	}

	all := Accept(s, candidates, 0)
	require.Len(t, all, 4)
	assert.Equal(t, []int{2, 4, 3, 5}, []int{all[0].Key, all[1].Key, all[2].Key, all[3].Key})

	top := Accept(s, candidates, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 2, top[0].Key)
	assert.Equal(t, 4, top[1].Key)
	for _, r := range top {
		assert.Greater(t, r.Score, 0.1)
	}
}

func TestDecide_Fallback(t *testing.T) {
	s := MustNew(twoSignal, 0.15, PolicyFallback)

	got := Decide(s, []Candidate[string]{
		{Key: "a", Scores: scores(0.1, 0.1)},
		{Key: "b", Scores: scores(0.2, 0.1)},
	}, "fallback")
	assert.Equal(t, "fallback", got.Key)
	assert.InDelta(t, 0.14, got.Score, 1e-12)

	got = Decide(s, []Candidate[string]{
		{Key: "a", Scores: scores(0.1, 0.1)},
		{Key: "b", Scores: scores(0.75, 0)},
	}, "fallback")
	assert.Equal(t, "b", got.Key)
	assert.InDelta(t, 0.3, got.Score, 1e-12)

	got = Decide(s, nil, "fallback")
	assert.Equal(t, Ranked[string]{Key: "fallback"}, got)
}

func TestPasses_Policies(t *testing.T) {
	assert.True(t, MustNew(twoSignal, 0.15, PolicyFallback).Passes(0.15))
	assert.False(t, MustNew(twoSignal, 0.1, PolicyExclude).Passes(0.1))
	assert.True(t, MustNew(twoSignal, 0.1, PolicyExclude).Passes(0.1001))
}

func TestRound(t *testing.T) {
	assert.Equal(t, 0.1235, Round(0.123456))
	assert.Equal(t, 0.0, Round(0))
	assert.Equal(t, 1.0, Round(0.99999))
}

func TestSignal_String(t *testing.T) {
	assert.Equal(t, "keyword", SignalKeyword.String())
	assert.Equal(t, "embedding", SignalEmbedding.String())
	assert.Equal(t, "recency", SignalRecency.String())
	assert.Equal(t, "signal(9)", Signal(9).String())
	assert.Len(t, Signals(), int(signalCount))
}
