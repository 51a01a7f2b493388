package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a named unit of scheduled work
type Job interface {
	Name() string
	Run() error
}

// Scheduler runs registered jobs on cron schedules.
// Failures are logged, never fatal: a missed sync is retried on the next
// schedule (or the next startup) because the store resumes from its
// latest date.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

// New creates a new scheduler
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// Register schedules a job with a cron spec (standard 5-field format)
func (s *Scheduler) Register(spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.log.Debug().Str("job", job.Name()).Msg("Job starting")
		if err := job.Run(); err != nil {
			s.log.Error().Err(err).Str("job", job.Name()).Msg("Job failed")
			return
		}
		s.log.Debug().Str("job", job.Name()).Msg("Job finished")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s with spec %q: %w", job.Name(), spec, err)
	}

	s.log.Info().Str("job", job.Name()).Str("schedule", spec).Msg("Job scheduled")
	return nil
}

// Start begins running scheduled jobs in the background
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler, waiting for any running job to finish
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}
