// Package scheduler runs periodic background jobs such as news cache
// warming on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultJobTimeout bounds a single job run.
const DefaultJobTimeout = 2 * time.Minute

// Job represents a scheduled task.
type Job struct {
	Name     string
	Schedule string // standard 5-field cron expression or a descriptor like "@every 4m"
	Timeout  time.Duration
	Fn       func(ctx context.Context) error
}

// Scheduler runs jobs on their cron schedules.
type Scheduler struct {
	ctx    context.Context
	cron   *cron.Cron
	jobs   []Job
	logger *slog.Logger
}

// New creates a scheduler whose jobs derive their context from ctx.
func New(ctx context.Context) *Scheduler {
	return &Scheduler{
		ctx:    ctx,
		cron:   cron.New(cron.WithLocation(time.UTC)),
		logger: slog.Default(),
	}
}

// Add registers a job. The schedule is validated immediately.
func (s *Scheduler) Add(job Job) error {
	if job.Fn == nil {
		return fmt.Errorf("job %q has no function", job.Name)
	}
	if _, err := s.cron.AddFunc(job.Schedule, func() { s.run(s.ctx, job) }); err != nil {
		return fmt.Errorf("schedule job %q: %w", job.Name, err)
	}
	s.jobs = append(s.jobs, job)
	return nil
}

// RunOnce executes every registered job once, in registration order.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	var errs []error
	for _, job := range s.jobs {
		if err := s.run(ctx, job); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", job.Name, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	timeout := job.Timeout
	if timeout <= 0 {
		timeout = DefaultJobTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if ctx.Err() != nil {
		s.logger.InfoContext(ctx, "scheduler context is done", "name", job.Name, "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "running job", "name", job.Name)
	start := time.Now()
	if err := job.Fn(ctx); err != nil {
		s.logger.ErrorContext(ctx, "job failed", "name", job.Name, "error", err, "duration", time.Since(start))
		return err
	}
	s.logger.InfoContext(ctx, "job completed", "name", job.Name, "duration", time.Since(start))
	return nil
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	s.cron.Start()
}

// Stop halts the schedule and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Warmer refreshes cached news for a set of categories.
type Warmer interface {
	Warm(ctx context.Context, categories []string) error
}

// WarmJob builds the job that keeps the first page of each category hot.
func WarmJob(w Warmer, categories []string, schedule string) Job {
	cats := append([]string(nil), categories...)
	return Job{
		Name:     "warm-news-cache",
		Schedule: schedule,
		Fn: func(ctx context.Context) error {
			return w.Warm(ctx, cats)
		},
	}
}
