// Package metrics exposes the OpenTelemetry instruments recorded by the service.
// Instruments come from the global MeterProvider and are no-ops unless the host
// process installs a real provider.
package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/thebtf/notionflow-ai"

// Outcome values used as the "outcome" attribute.
const (
	OutcomeFitted    = "fitted"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
	OutcomeCluster   = "cluster"
	OutcomeNoise     = "noise"
	OutcomeRecovered = "recovered"
	OutcomeDelivered = "delivered"
	OutcomeRetried   = "retried"
	OutcomeDropped   = "dropped"
	OutcomeOK        = "ok"
)

// Recorder holds the service instruments.
type Recorder struct {
	fits        metric.Int64Counter
	fitDuration metric.Float64Histogram
	assignments metric.Int64Counter
	deliveries  metric.Int64Counter
	jobRuns     metric.Int64Counter
}

var (
	global     *Recorder
	globalOnce sync.Once
)

// Global returns the process-wide recorder, creating it on first use.
func Global() *Recorder {
	globalOnce.Do(func() {
		global = New(otel.Meter(meterName))
	})
	return global
}

// Noop returns a recorder that discards every measurement.
func Noop() *Recorder {
	return New(noop.NewMeterProvider().Meter(meterName))
}

// New creates a recorder on the given meter. Instruments that fail to
// register fall back to no-ops.
func New(meter metric.Meter) *Recorder {
	fallback := noop.NewMeterProvider().Meter(meterName)
	r := &Recorder{}
	var err error

	if r.fits, err = meter.Int64Counter("notionflow.clustering.fits",
		metric.WithDescription("Clustering fits by outcome")); err != nil {
		log.Warn().Err(err).Str("instrument", "notionflow.clustering.fits").Msg("Metric registration failed")
		r.fits, _ = fallback.Int64Counter("notionflow.clustering.fits")
	}
	if r.fitDuration, err = meter.Float64Histogram("notionflow.clustering.fit.duration",
		metric.WithDescription("Clustering fit duration"), metric.WithUnit("s")); err != nil {
		log.Warn().Err(err).Str("instrument", "notionflow.clustering.fit.duration").Msg("Metric registration failed")
		r.fitDuration, _ = fallback.Float64Histogram("notionflow.clustering.fit.duration")
	}
	if r.assignments, err = meter.Int64Counter("notionflow.clustering.assignments",
		metric.WithDescription("Incremental cluster assignments by outcome")); err != nil {
		log.Warn().Err(err).Str("instrument", "notionflow.clustering.assignments").Msg("Metric registration failed")
		r.assignments, _ = fallback.Int64Counter("notionflow.clustering.assignments")
	}
	if r.deliveries, err = meter.Int64Counter("notionflow.callback.deliveries",
		metric.WithDescription("Callback deliveries by outcome")); err != nil {
		log.Warn().Err(err).Str("instrument", "notionflow.callback.deliveries").Msg("Metric registration failed")
		r.deliveries, _ = fallback.Int64Counter("notionflow.callback.deliveries")
	}
	if r.jobRuns, err = meter.Int64Counter("notionflow.jobs.runs",
		metric.WithDescription("Scheduled job runs by job and outcome")); err != nil {
		log.Warn().Err(err).Str("instrument", "notionflow.jobs.runs").Msg("Metric registration failed")
		r.jobRuns, _ = fallback.Int64Counter("notionflow.jobs.runs")
	}
	return r
}

// Fit records one clustering fit.
func (r *Recorder) Fit(ctx context.Context, outcome string, took time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	r.fits.Add(ctx, 1, attrs)
	if outcome == OutcomeFitted {
		r.fitDuration.Record(ctx, took.Seconds())
	}
}

// Assignment records one incremental assignment.
func (r *Recorder) Assignment(ctx context.Context, outcome string) {
	r.assignments.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// Delivery records one callback delivery attempt outcome.
func (r *Recorder) Delivery(ctx context.Context, outcome string) {
	r.deliveries.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

// JobRun records one scheduled job run.
func (r *Recorder) JobRun(ctx context.Context, job, outcome string) {
	r.jobRuns.Add(ctx, 1, metric.WithAttributes(
		attribute.String("job", job),
		attribute.String("outcome", outcome),
	))
}
