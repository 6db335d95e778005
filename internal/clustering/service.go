package clustering

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/thebtf/notionflow-ai/internal/metrics"
)

// Service owns the latest fitted model and exposes fitting and incremental
// assignment to the rest of the worker.
type Service struct {
	engine  *Engine
	holder  Holder
	metrics *metrics.Recorder
}

// NewService creates a clustering service. A nil recorder disables metrics.
func NewService(params Params, rec *metrics.Recorder) *Service {
	if rec == nil {
		rec = metrics.Noop()
	}
	return &Service{engine: NewEngine(params), metrics: rec}
}

// Fit clusters items and publishes the resulting model. A skipped fit (too
// few items) or a failed fit leaves the previously published model in place.
func (s *Service) Fit(ctx context.Context, items []Item) (*Result, error) {
	start := time.Now()
	result, model, err := s.engine.Fit(items)
	took := time.Since(start)

	if err != nil {
		s.metrics.Fit(ctx, metrics.OutcomeFailed, took)
		log.Error().Err(err).Int("items", len(items)).Msg("Clustering fit failed")
		return nil, err
	}
	if model == nil {
		s.metrics.Fit(ctx, metrics.OutcomeSkipped, took)
		log.Debug().
			Int("items", len(items)).
			Int("min_items", s.engine.Params().MinItems).
			Msg("Clustering skipped, batch too small")
		return result, nil
	}

	s.holder.Publish(model)
	s.metrics.Fit(ctx, metrics.OutcomeFitted, took)
	log.Info().
		Int("items", len(items)).
		Int("clusters", len(result.Clusters)).
		Int("noise", len(result.Noise)).
		Dur("took", took).
		Msg("Clustering model fitted")
	return result, nil
}

// Model returns the latest published model, if any.
func (s *Service) Model() (*Model, bool) {
	return s.holder.Current()
}

// HasModel reports whether a model has been published.
func (s *Service) HasModel() bool {
	_, ok := s.holder.Current()
	return ok
}

// Assign places vector into the latest published model. Callers should check
// HasModel first; without a model the result is Noise.
func (s *Service) Assign(ctx context.Context, vector []float32) (int, error) {
	model, _ := s.holder.Current()
	return assign(ctx, s.metrics, model, vector)
}

// AssignPoint predicts the cluster of vector under model. Assignment is
// advisory: invalid vectors and a missing model degrade to Noise and are
// logged. Any other error is returned.
func AssignPoint(ctx context.Context, model *Model, vector []float32) (int, error) {
	return assign(ctx, metrics.Global(), model, vector)
}

func assign(ctx context.Context, rec *metrics.Recorder, model *Model, vector []float32) (int, error) {
	id, err := model.Predict(vector)
	switch {
	case err == nil && id == Noise:
		rec.Assignment(ctx, metrics.OutcomeNoise)
		return Noise, nil
	case err == nil:
		rec.Assignment(ctx, metrics.OutcomeCluster)
		return id, nil
	case isRecoverable(err):
		rec.Assignment(ctx, metrics.OutcomeRecovered)
		log.Warn().
			Err(err).
			Int("dim", len(vector)).
			Int("model_dim", model.Dimension()).
			Msg("Cluster assignment degraded to noise")
		return Noise, nil
	default:
		return Noise, err
	}
}

func isRecoverable(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrNonFinite) ||
		errors.Is(err, ErrNotFitted)
}
