package scheduler

import (
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// Scheduler runs the dataset update once per calendar month, early in
// the month so the prior month's data is complete.
type Scheduler struct {
	scheduler *gocron.Scheduler
	day       int
	job       func()
	logger    *slog.Logger
}

// New creates a Scheduler that runs job on the given day of each month.
func New(day int, job func(), logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		day:       day,
		job:       job,
		logger:    logger,
	}
}

// Start schedules the monthly job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(1).Month(s.day).At("02:00").Do(func() {
		s.logger.Info("scheduler: running monthly degree-day update")
		s.job()
		s.logger.Info("scheduler: monthly degree-day update complete")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
