// Package scheduler provides job scheduling functionality.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/strideapp/stride/internal/modules/points"
)

// DailySyncJob backfills the points store through yesterday.
// Scheduled shortly after midnight so yesterday's record exists before
// anyone opens the UI; also run once at startup.
type DailySyncJob struct {
	log     zerolog.Logger
	service *points.Service
	timeout time.Duration
}

// DailySyncJobConfig holds configuration for the daily sync job
type DailySyncJobConfig struct {
	Log     zerolog.Logger
	Service *points.Service
	Timeout time.Duration // Bound on one whole run; zero means no bound
}

// NewDailySyncJob creates a new daily sync job
func NewDailySyncJob(cfg DailySyncJobConfig) *DailySyncJob {
	return &DailySyncJob{
		log:     cfg.Log.With().Str("job", "daily_sync").Logger(),
		service: cfg.Service,
		timeout: cfg.Timeout,
	}
}

// Name returns the job name
func (j *DailySyncJob) Name() string {
	return "daily_sync"
}

// Run executes one sync pass
func (j *DailySyncJob) Run() error {
	j.log.Info().Msg("Starting scheduled sync")
	startTime := time.Now()

	ctx := context.Background()
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}

	result, err := j.service.RunSync(ctx, func(p points.Progress) {
		j.log.Info().
			Str("date", points.DayKey(p.Date)).
			Int("index", p.Index).
			Int("total", p.Total).
			Msg("Synced day")
	})
	if err != nil {
		return fmt.Errorf("scheduled sync failed: %w", err)
	}

	j.log.Info().
		Str("status", string(result.Status)).
		Int("days_synced", result.DaysSynced).
		Dur("duration", time.Since(startTime)).
		Msg("Scheduled sync completed")

	return nil
}
