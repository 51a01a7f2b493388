package points

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/strideapp/stride/internal/events"
)

// SyncStatus is the terminal status of a sync run
type SyncStatus string

const (
	// StatusUpToDate means the store already covered every day through yesterday
	StatusUpToDate SyncStatus = "up_to_date"
	// StatusComplete means all missing days were fetched, scored and stored
	StatusComplete SyncStatus = "complete"
	// StatusFailed means the run halted on an error; earlier days remain committed
	StatusFailed SyncStatus = "failed"
)

// MetricsFetcher retrieves the raw metrics for one calendar date
type MetricsFetcher interface {
	FetchDailyMetrics(ctx context.Context, date time.Time) (DailyMetrics, error)
}

// Progress describes one completed date within a sync run
type Progress struct {
	Date  time.Time
	Index int // 1-based position within this run
	Total int // Total days in this run
}

// ProgressFunc is invoked after each date completes. It must be fast and
// non-failing; its errors are not part of the sync error taxonomy.
type ProgressFunc func(Progress)

// SyncResult summarizes a finished sync run
type SyncResult struct {
	RunID      string     `json:"run_id"`
	Status     SyncStatus `json:"status"`
	StartDate  string     `json:"start_date,omitempty"`
	EndDate    string     `json:"end_date,omitempty"`
	DaysSynced int        `json:"days_synced"`
	Error      string     `json:"error,omitempty"`
}

// SyncerConfig holds dependencies for the sync orchestrator
type SyncerConfig struct {
	Repo    *Repository
	Fetcher MetricsFetcher
	Bus     *events.Bus // Optional; progress events are skipped when nil
	Epoch   time.Time   // First date eligible for backfill
	Log     zerolog.Logger
}

// Syncer walks the store forward from the last cached day to yesterday,
// fetching, scoring and persisting one day at a time. Processing is
// strictly sequential: a day is fully committed before the next begins,
// so the store never has gaps below its latest date and a failed run can
// always resume from where it halted.
type Syncer struct {
	repo    *Repository
	fetcher MetricsFetcher
	bus     *events.Bus
	epoch   time.Time
	log     zerolog.Logger
	now     func() time.Time // Injectable clock for tests
}

// NewSyncer creates a new sync orchestrator
func NewSyncer(cfg SyncerConfig) *Syncer {
	return &Syncer{
		repo:    cfg.Repo,
		fetcher: cfg.Fetcher,
		bus:     cfg.Bus,
		epoch:   Day(cfg.Epoch),
		log:     cfg.Log.With().Str("component", "syncer").Logger(),
		now:     time.Now,
	}
}

// Run executes one sync pass. Today is always excluded - its value is
// still accumulating and is the UI's job to show live.
//
// On error the run halts at the failing date: days before it are already
// committed, days after it stay un-synced and are picked up by the next
// invocation.
func (s *Syncer) Run(ctx context.Context, progress ProgressFunc) (*SyncResult, error) {
	runID := uuid.NewString()
	log := s.log.With().Str("run_id", runID).Logger()

	latest, err := s.repo.LatestDate()
	if err != nil {
		return s.fail(runID, time.Time{}, fmt.Errorf("failed to resolve sync start date: %w", err))
	}

	// All day arithmetic in the clock's location: an epoch or latest date
	// carrying a different zone (e.g. UTC midnight) must not shift the
	// loop bounds against the local yesterday.
	now := s.now()
	start := DayIn(s.epoch, now.Location())
	if latest != nil {
		start = DayIn(*latest, now.Location()).AddDate(0, 0, 1)
	}
	yesterday := Day(now).AddDate(0, 0, -1)

	if start.After(yesterday) {
		log.Info().Msg("Store is up to date")
		result := &SyncResult{RunID: runID, Status: StatusUpToDate}
		s.emitComplete(runID, StatusUpToDate, 0)
		return result, nil
	}

	total := int(yesterday.Sub(start).Hours()/24) + 1
	log.Info().
		Str("start", DayKey(start)).
		Str("end", DayKey(yesterday)).
		Int("total_days", total).
		Msg("Starting sync")

	if s.bus != nil {
		s.bus.EmitTyped("points", &events.SyncStartedData{
			RunID:     runID,
			StartDate: DayKey(start),
			EndDate:   DayKey(yesterday),
			TotalDays: total,
		})
	}

	synced := 0
	for date := start; !date.After(yesterday); date = date.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return s.fail(runID, date, fmt.Errorf("sync cancelled at %s: %w", DayKey(date), err))
		}

		metrics, err := s.fetcher.FetchDailyMetrics(ctx, date)
		if err != nil {
			return s.fail(runID, date, fmt.Errorf("failed to fetch metrics for %s: %w", DayKey(date), err))
		}

		record := DailyRecord{
			Date:     metrics.Date,
			Steps:    metrics.Steps,
			Points:   Score(metrics.Steps, metrics.Sessions),
			Sessions: metrics.Sessions,
		}

		if err := s.repo.Upsert(record); err != nil {
			return s.fail(runID, date, fmt.Errorf("failed to store record for %s: %w", DayKey(date), err))
		}

		synced++
		log.Debug().
			Str("date", DayKey(date)).
			Int("steps", record.Steps).
			Int("points", record.Points).
			Int("sessions", len(record.Sessions)).
			Msgf("Synced day %d/%d", synced, total)

		if s.bus != nil {
			s.bus.EmitTyped("points", &events.SyncProgressData{
				RunID:  runID,
				Date:   DayKey(date),
				Index:  synced,
				Total:  total,
				Steps:  record.Steps,
				Points: record.Points,
			})
		}
		if progress != nil {
			progress(Progress{Date: date, Index: synced, Total: total})
		}
	}

	log.Info().Int("days_synced", synced).Msg("Sync complete")
	s.emitComplete(runID, StatusComplete, synced)

	return &SyncResult{
		RunID:      runID,
		Status:     StatusComplete,
		StartDate:  DayKey(start),
		EndDate:    DayKey(yesterday),
		DaysSynced: synced,
	}, nil
}

func (s *Syncer) emitComplete(runID string, status SyncStatus, daysAdded int) {
	if s.bus == nil {
		return
	}
	s.bus.EmitTyped("points", &events.SyncCompleteData{
		RunID:     runID,
		Status:    string(status),
		DaysAdded: daysAdded,
	})
}

func (s *Syncer) fail(runID string, date time.Time, err error) (*SyncResult, error) {
	s.log.Error().Err(err).Str("run_id", runID).Msg("Sync halted")

	dateKey := ""
	if !date.IsZero() {
		dateKey = DayKey(date)
	}
	if s.bus != nil {
		s.bus.EmitTyped("points", &events.SyncFailedData{
			RunID: runID,
			Date:  dateKey,
			Error: err.Error(),
		})
	}

	return &SyncResult{
		RunID:  runID,
		Status: StatusFailed,
		Error:  err.Error(),
	}, err
}
