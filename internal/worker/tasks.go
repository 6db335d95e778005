package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// TaskRunner runs accepted requests in the background with bounded
// concurrency. Tasks are never cancelled once accepted. Failures end at
// the log.
type TaskRunner struct {
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewTaskRunner creates a runner allowing at most limit concurrent tasks.
func NewTaskRunner(limit int) *TaskRunner {
	if limit <= 0 {
		limit = 1
	}
	return &TaskRunner{sem: semaphore.NewWeighted(int64(limit))}
}

// Submit schedules fn and returns the task id immediately.
func (t *TaskRunner) Submit(kind string, fn func(ctx context.Context) error) string {
	id := uuid.NewString()
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ctx := context.Background()

		if err := t.sem.Acquire(ctx, 1); err != nil {
			log.Error().Err(err).Str("task_id", id).Str("kind", kind).Msg("Task not started")
			return
		}
		defer t.sem.Release(1)

		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("task_id", id).Str("kind", kind).Msg("Task panicked")
			}
		}()

		if err := fn(ctx); err != nil {
			log.Error().Err(err).Str("task_id", id).Str("kind", kind).Dur("took", time.Since(start)).Msg("Task failed")
			return
		}
		log.Debug().Str("task_id", id).Str("kind", kind).Dur("took", time.Since(start)).Msg("Task finished")
	}()
	return id
}

// Wait blocks until every submitted task has finished or ctx is done.
func (t *TaskRunner) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
