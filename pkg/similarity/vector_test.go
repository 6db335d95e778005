package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type VectorSuite struct {
	suite.Suite
}

func TestVectorSuite(t *testing.T) {
	suite.Run(t, new(VectorSuite))
}

func (s *VectorSuite) TestCosineSimilarity_TableDrivenCases() {
	tests := []struct {
		name      string
		a         []float32
		b         []float32
		expected  float64
		tolerance float64
	}{
		{
			name:      "identical vectors",
			a:         []float32{1, 2, 3},
			b:         []float32{1, 2, 3},
			expected:  1.0,
			tolerance: 1e-9,
		},
		{
			name:      "opposite vectors",
			a:         []float32{1, 2, 3},
			b:         []float32{-1, -2, -3},
			expected:  -1.0,
			tolerance: 1e-9,
		},
		{
			name:      "orthogonal vectors",
			a:         []float32{1, 0},
			b:         []float32{0, 1},
			expected:  0.0,
			tolerance: 1e-9,
		},
		{
			name:      "different lengths",
			a:         []float32{1, 2, 3},
			b:         []float32{1, 2},
			expected:  0.0,
			tolerance: 1e-9,
		},
		{
			name:      "empty slices",
			a:         []float32{},
			b:         []float32{},
			expected:  0.0,
			tolerance: 1e-9,
		},
		{
			name:      "zero vector",
			a:         []float32{0, 0, 0},
			b:         []float32{1, 2, 3},
			expected:  0.0,
			tolerance: 1e-9,
		},
		{
			name:      "known numeric",
			a:         []float32{1, 2, 3},
			b:         []float32{4, 5, 6},
			expected:  32.0 / math.Sqrt(float64(1078)),
			tolerance: 1e-9,
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			assert.InDelta(s.T(), tt.expected, CosineSimilarity(tt.a, tt.b), tt.tolerance)
		})
	}
}

func (s *VectorSuite) TestNormalize() {
	v := []float32{3, 4}
	n := Normalize(v)

	s.InDelta(0.6, float64(n[0]), 1e-6)
	s.InDelta(0.8, float64(n[1]), 1e-6)
	s.InDelta(1.0, Norm(n), 1e-6)
	// input untouched
	s.Equal([]float32{3, 4}, v)
}

func (s *VectorSuite) TestNormalize_ZeroVector() {
	n := Normalize([]float32{0, 0, 0})
	s.Equal([]float32{0, 0, 0}, n)
}

func (s *VectorSuite) TestDotEqualsCosineForUnitVectors() {
	a := Normalize([]float32{1, 2, 3})
	b := Normalize([]float32{-2, 0.5, 4})
	s.InDelta(CosineSimilarity(a, b), Dot(a, b), 1e-6)
}

func (s *VectorSuite) TestEuclideanDistance() {
	s.InDelta(5.0, EuclideanDistance([]float32{0, 0}, []float32{3, 4}), 1e-9)
	s.InDelta(0.0, EuclideanDistance([]float32{1, 1}, []float32{1, 1}), 1e-9)
}

func (s *VectorSuite) TestUnitInterval() {
	s.InDelta(0.0, UnitInterval(-1), 1e-9)
	s.InDelta(0.5, UnitInterval(0), 1e-9)
	s.InDelta(1.0, UnitInterval(1), 1e-9)
	s.InDelta(1.0, UnitInterval(1.0000001), 1e-9)
}

func (s *VectorSuite) TestIsFinite() {
	s.True(IsFinite([]float32{1, -2, 0}))
	s.False(IsFinite([]float32{1, float32(math.NaN())}))
	s.False(IsFinite([]float32{float32(math.Inf(1))}))
}
