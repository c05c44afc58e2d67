// Package scheduler runs the server's background jobs on fixed intervals.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Job is a named task run every Every. A run that overlaps the previous one
// is skipped.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

type Scheduler struct {
	cron   *gocron.Scheduler
	logger zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(logger zerolog.Logger) *Scheduler {
	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{cron: cron, logger: logger.With().Str("component", "scheduler").Logger(), ctx: ctx, cancel: cancel}
}

func (s *Scheduler) Add(job Job) error {
	if job.Every <= 0 {
		return fmt.Errorf("job %s: interval must be positive", job.Name)
	}
	if _, err := s.cron.Every(job.Every).Name(job.Name).Do(s.run, job); err != nil {
		return fmt.Errorf("schedule %s: %w", job.Name, err)
	}
	s.logger.Info().Str("job", job.Name).Dur("every", job.Every).Msg("job scheduled")
	return nil
}

func (s *Scheduler) run(job Job) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("job", job.Name).Interface("panic", r).Msg("job panicked")
		}
	}()
	if err := job.Run(s.ctx); err != nil {
		s.logger.Error().Err(err).Str("job", job.Name).Msg("job failed")
		return
	}
	s.logger.Debug().Str("job", job.Name).Dur("took", time.Since(start)).Msg("job finished")
}

func (s *Scheduler) Len() int { return s.cron.Len() }

// Start runs jobs in the background and returns immediately.
func (s *Scheduler) Start() {
	s.cron.StartAsync()
}

// Stop cancels the context passed to running jobs and stops scheduling.
func (s *Scheduler) Stop() {
	s.cancel()
	s.cron.Stop()
}
