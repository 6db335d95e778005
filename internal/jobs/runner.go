// Package jobs runs the periodic recluster and report jobs.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/thebtf/notionflow-ai/internal/callback"
	"github.com/thebtf/notionflow-ai/internal/clustering"
	"github.com/thebtf/notionflow-ai/internal/metrics"
	"github.com/thebtf/notionflow-ai/internal/report"
	"github.com/thebtf/notionflow-ai/pkg/models"
)

// Job names used in logs and metrics.
const (
	JobRecluster    = "recluster"
	JobDailyReport  = "daily_report"
	JobWeeklyReport = "weekly_report"
)

// WebApp is the part of the web application API the jobs talk to.
type WebApp interface {
	TriggerRecluster(ctx context.Context, baseURL string) ([]models.PageEmbedding, error)
	SendClusterResults(ctx context.Context, target string, result models.ClusterResult) error
	FetchChanges(ctx context.Context, baseURL, periodStart, periodEnd string) ([]models.ChangeItem, error)
	SendReport(ctx context.Context, target string, r *models.Report) error
}

// Clusterer fits a batch and retains the resulting model.
type Clusterer interface {
	Fit(ctx context.Context, items []clustering.Item) (*clustering.Result, error)
}

// Runner executes job bodies. Concurrent recluster requests share one run.
type Runner struct {
	baseURL   string
	web       WebApp
	clusterer Clusterer
	reports   *report.Generator
	metrics   *metrics.Recorder
	location  *time.Location
	now       func() time.Time
	group     singleflight.Group
}

// Options configures a Runner.
type Options struct {
	BaseURL   string
	WebApp    WebApp
	Clusterer Clusterer
	Reports   *report.Generator
	Metrics   *metrics.Recorder
	Location  *time.Location
}

// NewRunner creates a job runner.
func NewRunner(opts Options) *Runner {
	if opts.Metrics == nil {
		opts.Metrics = metrics.Noop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Runner{
		baseURL:   opts.BaseURL,
		web:       opts.WebApp,
		clusterer: opts.Clusterer,
		reports:   opts.Reports,
		metrics:   opts.Metrics,
		location:  opts.Location,
		now:       time.Now,
	}
}

// Recluster fetches every page embedding from the web application, fits a
// new model and posts the partition back. A run already in flight is joined
// instead of starting another fit. An empty embedding set is skipped and
// returns a nil result.
func (r *Runner) Recluster(ctx context.Context) (*clustering.Result, error) {
	v, err, shared := r.group.Do(JobRecluster, func() (any, error) {
		return r.recluster(ctx)
	})
	if shared {
		log.Debug().Str("job", JobRecluster).Msg("Joined running recluster")
	}
	if err != nil {
		return nil, err
	}
	return v.(*clustering.Result), nil
}

func (r *Runner) recluster(ctx context.Context) (*clustering.Result, error) {
	log.Info().Str("job", JobRecluster).Msg("Starting recluster job")

	pages, err := r.web.TriggerRecluster(ctx, r.baseURL)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		log.Info().Str("job", JobRecluster).Msg("No embeddings returned, skipping recluster")
		return (*clustering.Result)(nil), nil
	}

	result, err := r.clusterer.Fit(ctx, clustering.ItemsFromPages(pages))
	if err != nil {
		return nil, fmt.Errorf("fit %d embeddings: %w", len(pages), err)
	}

	if err := r.web.SendClusterResults(ctx, callback.URL(r.baseURL, "/ai/cluster-results"), result.ClusterResult()); err != nil {
		return nil, err
	}

	log.Info().
		Str("job", JobRecluster).
		Int("clusters", len(result.Clusters)).
		Int("noise", len(result.Noise)).
		Msg("Recluster complete")
	return result, nil
}

// Report builds the daily or weekly report for the period ending now and
// posts it to the web application.
func (r *Runner) Report(ctx context.Context, reportType string) (*models.Report, error) {
	start, end, err := report.Period(reportType, r.now().In(r.location))
	if err != nil {
		return nil, err
	}

	changes, err := r.web.FetchChanges(ctx, r.baseURL, start, end)
	if err != nil {
		return nil, err
	}

	rep, err := r.reports.Build(ctx, report.Request{
		Type:        reportType,
		PeriodStart: start,
		PeriodEnd:   end,
		Changes:     changes,
	})
	if err != nil {
		return nil, err
	}

	if err := r.web.SendReport(ctx, callback.URL(r.baseURL, "/ai/report"), rep); err != nil {
		return nil, err
	}

	log.Info().Str("type", reportType).Int("changes", rep.TotalChanges).Msg("Report sent")
	return rep, nil
}

// run executes one job body, logging and counting the outcome. Failures end here.
func (r *Runner) run(job string, fn func(ctx context.Context) error) {
	ctx := context.Background()
	start := time.Now()
	if err := fn(ctx); err != nil {
		r.metrics.JobRun(ctx, job, metrics.OutcomeFailed)
		log.Error().Err(err).Str("job", job).Dur("took", time.Since(start)).Msg("Job failed")
		return
	}
	r.metrics.JobRun(ctx, job, metrics.OutcomeOK)
	log.Debug().Str("job", job).Dur("took", time.Since(start)).Msg("Job finished")
}

// RunRecluster runs the recluster job, absorbing failures.
func (r *Runner) RunRecluster() {
	r.run(JobRecluster, func(ctx context.Context) error {
		_, err := r.Recluster(ctx)
		return err
	})
}

// RunDailyReport runs the daily report job, absorbing failures.
func (r *Runner) RunDailyReport() {
	r.run(JobDailyReport, func(ctx context.Context) error {
		_, err := r.Report(ctx, models.ReportDaily)
		return err
	})
}

// RunWeeklyReport runs the weekly report job, absorbing failures.
func (r *Runner) RunWeeklyReport() {
	r.run(JobWeeklyReport, func(ctx context.Context) error {
		_, err := r.Report(ctx, models.ReportWeekly)
		return err
	})
}
