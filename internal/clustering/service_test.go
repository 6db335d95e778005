package clustering

import (
	"context"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/thebtf/notionflow-ai/internal/metrics"
	"github.com/thebtf/notionflow-ai/pkg/models"
)

type ServiceSuite struct {
	suite.Suite
	svc *Service
	ctx context.Context
}

func (s *ServiceSuite) SetupTest() {
	s.svc = NewService(DefaultParams(), metrics.Noop())
	s.ctx = context.Background()
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) fitted() *Model {
	_, err := s.svc.Fit(s.ctx, append(tightGroup("t", 0), scattered()...))
	s.Require().NoError(err)
	m, ok := s.svc.Model()
	s.Require().True(ok)
	return m
}

func (s *ServiceSuite) TestNoModelBeforeFirstFit() {
	s.False(s.svc.HasModel())
	m, ok := s.svc.Model()
	s.False(ok)
	s.Nil(m)
}

func (s *ServiceSuite) TestFit_PublishesModel() {
	m := s.fitted()
	s.True(s.svc.HasModel())
	s.Equal(1, m.NumClusters())
}

func (s *ServiceSuite) TestFit_SkippedKeepsPreviousModel() {
	before := s.fitted()

	result, err := s.svc.Fit(s.ctx, tightGroup("t", 0))
	s.Require().NoError(err)
	s.Empty(result.Clusters)

	after, ok := s.svc.Model()
	s.True(ok)
	s.Same(before, after)
}

func (s *ServiceSuite) TestFit_FailureKeepsPreviousModel() {
	before := s.fitted()

	items := append(tightGroup("t", 0), scattered()...)
	items[3].Vector[0] = float32(math.Inf(-1))
	result, err := s.svc.Fit(s.ctx, items)
	s.ErrorIs(err, ErrNonFinite)
	s.Nil(result)

	after, _ := s.svc.Model()
	s.Same(before, after)
}

func (s *ServiceSuite) TestAssign_WithoutModelIsNoise() {
	id, err := s.svc.Assign(s.ctx, []float32{1, 0, 0})
	s.NoError(err)
	s.Equal(Noise, id)
}

func (s *ServiceSuite) TestAssign_NearDenseGroup() {
	s.fitted()
	id, err := s.svc.Assign(s.ctx, []float32{1, 0.007, 0, 0, 0, 0, 0, 0})
	s.NoError(err)
	s.Equal(0, id)
}

func (s *ServiceSuite) TestAssign_FarPointIsNoise() {
	s.fitted()
	id, err := s.svc.Assign(s.ctx, []float32{0, 0, 0, 0, 0, 0, 0, 10})
	s.NoError(err)
	s.Equal(Noise, id)
}

func (s *ServiceSuite) TestAssign_InvalidVectorsDegradeToNoise() {
	s.fitted()
	tests := []struct {
		name   string
		vector []float32
	}{
		{name: "short", vector: []float32{1, 0}},
		{name: "long", vector: make([]float32, testDim+1)},
		{name: "empty", vector: nil},
		{name: "nan", vector: []float32{1, float32(math.NaN()), 0, 0, 0, 0, 0, 0}},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			id, err := s.svc.Assign(s.ctx, tt.vector)
			s.NoError(err)
			s.Equal(Noise, id)
		})
	}
}

func TestModelPredict_ReportsSentinels(t *testing.T) {
	var nilModel *Model
	_, err := nilModel.Predict([]float32{1})
	assert.ErrorIs(t, err, ErrNotFitted)

	_, model, err := NewEngine(DefaultParams()).Fit(append(tightGroup("t", 0), scattered()...))
	require.NoError(t, err)

	_, err = model.Predict([]float32{1, 2})
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = model.Predict([]float32{float32(math.Inf(1)), 0, 0, 0, 0, 0, 0, 0})
	assert.ErrorIs(t, err, ErrNonFinite)
}

func TestAssignPoint_NilModel(t *testing.T) {
	id, err := AssignPoint(context.Background(), nil, []float32{1, 2, 3})
	assert.NoError(t, err)
	assert.Equal(t, Noise, id)
}

func TestAssignPoint_TrainingPointsKeepTheirLabels(t *testing.T) {
	a := tightGroup("a", 0)
	b := tightGroup("b", 2)
	_, model, err := NewEngine(DefaultParams()).Fit(append(append([]Item{}, a...), b...))
	require.NoError(t, err)

	for _, it := range a {
		id, err := AssignPoint(context.Background(), model, it.Vector)
		require.NoError(t, err)
		assert.Equal(t, 0, id, it.ID)
	}
	for _, it := range b {
		id, err := AssignPoint(context.Background(), model, it.Vector)
		require.NoError(t, err)
		assert.Equal(t, 1, id, it.ID)
	}
}

func TestHolder_PublishIgnoresNil(t *testing.T) {
	var h Holder
	h.Publish(nil)
	_, ok := h.Current()
	assert.False(t, ok)

	m := &Model{dim: 3}
	h.Publish(m)
	h.Publish(nil)
	got, ok := h.Current()
	assert.True(t, ok)
	assert.Same(t, m, got)
}

func TestHolder_ConcurrentPublishAndRead(t *testing.T) {
	var h Holder
	models := []*Model{{dim: 1}, {dim: 2}, {dim: 3}}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.Publish(models[(i+j)%len(models)])
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if m, ok := h.Current(); ok {
					assert.Contains(t, []int{1, 2, 3}, m.Dimension())
				}
			}
		}()
	}
	wg.Wait()
}

func TestClusterResult_FromPages(t *testing.T) {
	items := append(tightGroup("t", 0), scattered()...)
	pages := make([]models.PageEmbedding, len(items))
	for i, it := range items {
		pages[i] = models.PageEmbedding{PageID: it.ID, Vector: it.Vector}
	}

	result, _, err := NewEngine(DefaultParams()).Fit(ItemsFromPages(pages))
	require.NoError(t, err)

	wire := result.ClusterResult()
	require.Len(t, wire.Clusters, 1)
	assert.Equal(t, 0, wire.Clusters[0].ClusterID)
	assert.Equal(t, ids(tightGroup("t", 0)), wire.Clusters[0].PageIDs)
	assert.Equal(t, ids(scattered()), wire.Noise)

	empty := (&Result{}).ClusterResult()
	assert.NotNil(t, empty.Noise)
	assert.NotNil(t, empty.Clusters)
}
