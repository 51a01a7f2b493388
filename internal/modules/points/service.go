package points

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Goal thresholds used by the weekly and calendar views
const (
	// DayGoal is the daily points target (circle rind turns green)
	DayGoal = 8
	// WeekGoal is the weekly points target (whole week fills green)
	WeekGoal = 40
)

// DaySummary is one day as presented to the UI
type DaySummary struct {
	Date    string `json:"date"`
	Weekday string `json:"weekday"`
	Steps   int    `json:"steps"`
	Points  int    `json:"points"`
	Synced  bool   `json:"synced"` // False means "not yet synced", not "0 points"
	Future  bool   `json:"future"`
	GoalMet bool   `json:"goal_met"`
}

// WeekSummary is the home-page week view: Monday through Sunday of the
// week containing the reference day
type WeekSummary struct {
	StartDate   string       `json:"start_date"`
	EndDate     string       `json:"end_date"`
	Days        []DaySummary `json:"days"`
	TotalPoints int          `json:"total_points"`
	WeekGoalMet bool         `json:"week_goal_met"`
}

// CalendarWeek is one Monday-Sunday row of the calendar grid. Days
// belonging to neighboring months appear with InMonth=false.
type CalendarWeek struct {
	Days        []CalendarDay `json:"days"`
	TotalPoints int           `json:"total_points"`
	WeekGoalMet bool          `json:"week_goal_met"`
}

// CalendarDay is one cell of the calendar grid
type CalendarDay struct {
	DaySummary
	InMonth bool `json:"in_month"`
}

// MonthSummary is the calendar-page month view
type MonthSummary struct {
	Year  int            `json:"year"`
	Month int            `json:"month"`
	Weeks []CalendarWeek `json:"weeks"`
}

// Service exposes the read API consumed by the UI and owns the
// lifecycle of sync runs (one at a time).
type Service struct {
	repo   *Repository
	syncer *Syncer
	log    zerolog.Logger
	now    func() time.Time // Injectable clock for tests

	mu         sync.Mutex
	syncActive bool
	lastResult *SyncResult
}

// NewService creates a new points service
func NewService(repo *Repository, syncer *Syncer, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		syncer: syncer,
		log:    log.With().Str("service", "points").Logger(),
		now:    time.Now,
	}
}

// GetPointsForRange returns stored records for start..end inclusive,
// keyed by date. Absent dates are omitted.
func (s *Service) GetPointsForRange(start, end time.Time) (map[string]DailyRecord, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("invalid range: end %s before start %s", DayKey(end), DayKey(start))
	}
	return s.repo.GetRange(start, end)
}

// GetCurrentWeek returns the week view for the week containing today
func (s *Service) GetCurrentWeek() (*WeekSummary, error) {
	return s.GetWeek(s.now())
}

// GetWeek returns the Monday-Sunday week view containing the given day
func (s *Service) GetWeek(ref time.Time) (*WeekSummary, error) {
	monday := startOfWeek(Day(ref))
	sunday := monday.AddDate(0, 0, 6)

	records, err := s.repo.GetRange(monday, sunday)
	if err != nil {
		return nil, err
	}

	today := Day(s.now())
	summary := &WeekSummary{
		StartDate: DayKey(monday),
		EndDate:   DayKey(sunday),
		Days:      make([]DaySummary, 0, 7),
	}

	for i := 0; i < 7; i++ {
		date := monday.AddDate(0, 0, i)
		day := buildDaySummary(date, records, today)
		summary.TotalPoints += day.Points
		summary.Days = append(summary.Days, day)
	}

	summary.WeekGoalMet = summary.TotalPoints >= WeekGoal
	return summary, nil
}

// GetMonth returns the calendar grid for a month. The grid is built in
// full Monday-Sunday rows, so it can include trailing days of the
// previous month and leading days of the next; weekly goal flags are
// computed over the full row.
func (s *Service) GetMonth(year int, month time.Month) (*MonthSummary, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("invalid month: %d", month)
	}

	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	lastOfMonth := firstOfMonth.AddDate(0, 1, -1)

	gridStart := startOfWeek(firstOfMonth)
	gridEnd := startOfWeek(lastOfMonth).AddDate(0, 0, 6)

	records, err := s.repo.GetRange(gridStart, gridEnd)
	if err != nil {
		return nil, err
	}

	today := Day(s.now())
	summary := &MonthSummary{Year: year, Month: int(month)}

	for weekStart := gridStart; !weekStart.After(gridEnd); weekStart = weekStart.AddDate(0, 0, 7) {
		week := CalendarWeek{Days: make([]CalendarDay, 0, 7)}
		for i := 0; i < 7; i++ {
			date := weekStart.AddDate(0, 0, i)
			day := buildDaySummary(date, records, today)
			week.TotalPoints += day.Points
			week.Days = append(week.Days, CalendarDay{
				DaySummary: day,
				InMonth:    date.Month() == month,
			})
		}
		week.WeekGoalMet = week.TotalPoints >= WeekGoal
		summary.Weeks = append(summary.Weeks, week)
	}

	return summary, nil
}

// StartSync launches a sync run in the background. Returns an error if a
// run is already active - sync is strictly sequential, never concurrent.
func (s *Service) StartSync(ctx context.Context) error {
	s.mu.Lock()
	if s.syncActive {
		s.mu.Unlock()
		return fmt.Errorf("sync already running")
	}
	s.syncActive = true
	s.mu.Unlock()

	go func() {
		result, err := s.syncer.Run(ctx, nil)
		if err != nil {
			s.log.Error().Err(err).Msg("Background sync failed")
		}

		s.mu.Lock()
		s.syncActive = false
		s.lastResult = result
		s.mu.Unlock()
	}()

	return nil
}

// RunSync executes a sync run synchronously (used at startup and by the
// scheduled job). Respects the single-run lock.
func (s *Service) RunSync(ctx context.Context, progress ProgressFunc) (*SyncResult, error) {
	s.mu.Lock()
	if s.syncActive {
		s.mu.Unlock()
		return nil, fmt.Errorf("sync already running")
	}
	s.syncActive = true
	s.mu.Unlock()

	result, err := s.syncer.Run(ctx, progress)

	s.mu.Lock()
	s.syncActive = false
	s.lastResult = result
	s.mu.Unlock()

	return result, err
}

// SyncStatus reports whether a sync is running and the last run's result
func (s *Service) SyncStatus() (bool, *SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncActive, s.lastResult
}

// buildDaySummary assembles the UI view of one day from the record map
func buildDaySummary(date time.Time, records map[string]DailyRecord, today time.Time) DaySummary {
	day := DaySummary{
		Date:    DayKey(date),
		Weekday: date.Weekday().String()[:3],
		Future:  date.After(today),
	}

	if record, ok := records[day.Date]; ok {
		day.Synced = true
		day.Steps = record.Steps
		day.Points = record.Points
		day.GoalMet = record.Points >= DayGoal
	}

	return day
}

// startOfWeek returns the Monday of the week containing date
func startOfWeek(date time.Time) time.Time {
	offset := (int(date.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return date.AddDate(0, 0, -offset)
}
