// Package scheduler runs the pipeline on a cron schedule in daemon mode.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/yulin-dev/jobsift/internal/model"
	"github.com/yulin-dev/jobsift/internal/pipeline"
)

// Runner is the unit of work the scheduler triggers.
type Runner interface {
	Run(ctx context.Context) ([]model.RunReport, error)
}

// Scheduler owns the daemon loop: an immediate run at startup, then runs on
// the cron schedule, each guarded by the run lock.
type Scheduler struct {
	runner   Runner
	lock     RunLock
	schedule string
	logger   *slog.Logger
}

// New creates a scheduler. schedule is a standard 5-field cron expression.
func New(runner Runner, lock RunLock, schedule string, logger *slog.Logger) *Scheduler {
	if lock == nil {
		lock = NopLock{}
	}
	return &Scheduler{
		runner:   runner,
		lock:     lock,
		schedule: schedule,
		logger:   logger,
	}
}

// Run starts the daemon. It returns nil when ctx is cancelled (graceful
// shutdown) and an error only if the schedule cannot be parsed.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("starting scheduler", "schedule", s.schedule)

	c := cron.New()
	if _, err := c.AddFunc(s.schedule, func() { s.runOnce(ctx) }); err != nil {
		return fmt.Errorf("parse schedule %q: %w", s.schedule, err)
	}

	// Run one immediate cycle before handing off to cron.
	s.runOnce(ctx)

	c.Start()
	<-ctx.Done()
	s.logger.Info("shutting down scheduler")

	// Stop scheduling new runs and wait for an in-flight one to finish.
	<-c.Stop().Done()
	return nil
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logger.Error("run lock unavailable", "error", err)
		return
	}
	if !acquired {
		s.logger.Info("skipping run, another instance holds the lock")
		return
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logger.Error("releasing run lock failed", "error", err)
		}
	}()

	reports, err := s.runner.Run(ctx)
	switch {
	case errors.Is(err, pipeline.ErrAllSourcesFailed):
		s.logger.Error("run produced no data", "error", err)
	case err != nil:
		s.logger.Error("run aborted", "error", err)
	}

	var scraped, fresh int
	for _, r := range reports {
		scraped += r.Scraped
		fresh += r.New
	}
	s.logger.Info("run finished", "sources", len(reports), "scraped", scraped, "new", fresh)
}
