package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

const (
	dailyReportSpec  = "0 9 * * *"
	weeklyReportSpec = "0 9 * * 1"
)

// Scheduler triggers the runner's jobs on their schedules.
type Scheduler struct {
	cron  *cron.Cron
	names map[cron.EntryID]string
}

// NewScheduler registers the recluster job every interval and the daily and
// weekly reports at 09:00 (Mondays for weekly) in loc.
func NewScheduler(runner *Runner, interval time.Duration, loc *time.Location) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("invalid recluster interval %s", interval)
	}
	if loc == nil {
		loc = time.UTC
	}

	logger := cronLogger{}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{JobRecluster, "@every " + interval.String(), runner.RunRecluster},
		{JobDailyReport, dailyReportSpec, runner.RunDailyReport},
		{JobWeeklyReport, weeklyReportSpec, runner.RunWeeklyReport},
	}
	names := make(map[cron.EntryID]string, len(jobs))
	for _, j := range jobs {
		id, err := c.AddFunc(j.spec, j.fn)
		if err != nil {
			return nil, fmt.Errorf("schedule %s: %w", j.name, err)
		}
		names[id] = j.name
	}

	return &Scheduler{cron: c, names: names}, nil
}

// Start starts the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	next := s.Next()
	for name, at := range next {
		log.Debug().Str("job", name).Time("next", at).Msg("Job scheduled")
	}
	log.Info().Int("jobs", len(next)).Msg("Scheduler started")
}

// Stop stops scheduling and returns a context that is done once running
// jobs have finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// Next returns the next activation time of each job by name. Times are zero
// until the scheduler has been started.
func (s *Scheduler) Next() map[string]time.Time {
	out := make(map[string]time.Time, len(s.names))
	for _, e := range s.cron.Entries() {
		out[s.names[e.ID]] = e.Next
	}
	return out
}

// cronLogger routes cron's logs to zerolog.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
