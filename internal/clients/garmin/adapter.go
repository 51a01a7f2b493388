package garmin

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/strideapp/stride/internal/modules/points"
)

const (
	// stepWindowMargin widens the requested step-history window beyond
	// (today - date) so the target date is always inside it.
	stepWindowMargin = 2

	// activityFetchLimit is how many recent activities are listed before
	// filtering down to the target date.
	activityFetchLimit = 50
)

// Adapter turns raw provider responses into the normalized per-day
// metrics the points engine consumes. Partial provider failures degrade
// (steps to 0, sessions to empty) rather than failing the day; only an
// invalid session fails the whole call.
type Adapter struct {
	client *Client
	log    zerolog.Logger
	now    func() time.Time // Injectable clock for tests
}

// NewAdapter creates a new fetch adapter around a Garmin client
func NewAdapter(client *Client, log zerolog.Logger) *Adapter {
	return &Adapter{
		client: client,
		log:    log.With().Str("component", "garmin_adapter").Logger(),
		now:    time.Now,
	}
}

// FetchDailyMetrics fetches steps and exercise sessions for one calendar date.
// The date must not be in the future; the sync orchestrator only asks for
// dates through yesterday.
func (a *Adapter) FetchDailyMetrics(ctx context.Context, date time.Time) (points.DailyMetrics, error) {
	metrics := points.DailyMetrics{
		Date:     points.Day(date),
		Sessions: []points.ExerciseSession{},
	}

	steps, err := a.fetchSteps(ctx, metrics.Date)
	if err != nil {
		if IsAuthRequired(err) {
			return points.DailyMetrics{}, err
		}
		// Transient provider failure: degrade to 0 steps for this date
		a.log.Warn().Err(err).Str("date", points.DayKey(metrics.Date)).Msg("Step fetch failed, defaulting to 0")
		steps = 0
	}
	metrics.Steps = steps

	sessions, err := a.fetchSessions(ctx, metrics.Date)
	if err != nil {
		if IsAuthRequired(err) {
			return points.DailyMetrics{}, err
		}
		// Transient provider failure: degrade to no sessions for this date
		a.log.Warn().Err(err).Str("date", points.DayKey(metrics.Date)).Msg("Activity fetch failed, defaulting to none")
		sessions = []points.ExerciseSession{}
	}
	metrics.Sessions = sessions

	return metrics, nil
}

// fetchSteps resolves the step total for date from the provider's
// trailing step-history window.
func (a *Adapter) fetchSteps(ctx context.Context, date time.Time) (int, error) {
	today := points.Day(a.now())
	daysBack := int(today.Sub(date).Hours() / 24)
	if daysBack < 0 {
		daysBack = 0
	}

	window := daysBack + stepWindowMargin
	entries, err := a.client.GetStepHistory(ctx, window)
	if err != nil {
		return 0, err
	}

	// First exact date match wins; a date outside the window means 0 steps
	key := points.DayKey(date)
	for _, entry := range entries {
		if entry.CalendarDate == key {
			return entry.TotalSteps, nil
		}
	}

	return 0, nil
}

// fetchSessions lists recent activities and keeps the ones whose local
// start timestamp falls on date. The provider reports start times in
// device-local time already, so a date-prefix match is sufficient.
func (a *Adapter) fetchSessions(ctx context.Context, date time.Time) ([]points.ExerciseSession, error) {
	activities, err := a.client.GetRecentActivities(ctx, activityFetchLimit)
	if err != nil {
		return nil, err
	}

	key := points.DayKey(date)
	sessions := []points.ExerciseSession{}
	for _, act := range activities {
		if !strings.HasPrefix(act.StartTimeLocal, key) {
			continue
		}
		sessions = append(sessions, normalizeActivity(act))
	}

	return sessions, nil
}

// normalizeActivity maps a provider activity onto an exercise session.
// Missing heart rate or duration normalize to 0, which the calculator
// treats as "no contribution".
func normalizeActivity(act Activity) points.ExerciseSession {
	duration := 0
	if act.DurationSeconds > 0 {
		duration = int(act.DurationSeconds)
	}

	hr := act.AverageHR
	if hr < 0 {
		hr = 0
	}

	return points.ExerciseSession{
		ActivityType:     act.ActivityType.TypeKey,
		DurationSeconds:  duration,
		AverageHeartRate: hr,
	}
}
