package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/w3qxst1ck/volleyballScheduler/internal/repository"
)

// Scheduler runs the hourly and daily jobs on cron specs. Runs take the
// shared lock so they never interleave with update handling.
type Scheduler struct {
	cron    *cron.Cron
	jobs    *Jobs
	lock    sync.Locker
	logger  repository.Logger
	timeout time.Duration
}

func NewScheduler(jobs *Jobs, lock sync.Locker, loc *time.Location, logger repository.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.NewWithLocation(loc),
		jobs:    jobs,
		lock:    lock,
		logger:  logger,
		timeout: 10 * time.Minute,
	}
}

// Register adds both cadences. Specs use the six field format with seconds,
// e.g. "0 0 * * * *" for hourly.
func (s *Scheduler) Register(ctx context.Context, hourlySpec, dailySpec string) error {
	if err := s.cron.AddFunc(hourlySpec, s.wrap(ctx, s.jobs.Hourly)); err != nil {
		return fmt.Errorf("hourly spec %q: %w", hourlySpec, err)
	}
	if err := s.cron.AddFunc(dailySpec, s.wrap(ctx, s.jobs.Daily)); err != nil {
		return fmt.Errorf("daily spec %q: %w", dailySpec, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) wrap(ctx context.Context, job func(context.Context) Report) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		s.lock.Lock()
		defer s.lock.Unlock()

		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		report := job(runCtx)
		s.log(report)
	}
}

func (s *Scheduler) log(report Report) {
	if s.logger == nil {
		return
	}
	if err := report.Err(); err != nil {
		s.logger.Error(err, report.Job, "job", 0, 0)
		return
	}
	s.logger.Info(report.Job, "job", 0, 0, fmt.Sprintf(
		"run=%s events=%d tournaments=%d teams=%d promotions=%d",
		report.RunID, len(report.Events), len(report.Tournaments), len(report.Teams), len(report.Promotions)))
}
