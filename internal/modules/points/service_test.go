package points

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, today string) (*Service, *Repository, func()) {
	t.Helper()

	db, cleanup := setupTestDB(t)
	repo := NewRepository(db.Conn(), zerolog.Nop())

	syncer := NewSyncer(SyncerConfig{
		Repo:    repo,
		Fetcher: &fakeFetcher{},
		Epoch:   day("2025-02-01"),
		Log:     zerolog.Nop(),
	})
	syncer.now = func() time.Time { return day(today) }

	svc := NewService(repo, syncer, zerolog.Nop())
	svc.now = func() time.Time { return day(today) }

	return svc, repo, cleanup
}

func TestService_GetWeek(t *testing.T) {
	// 2025-03-05 is a Wednesday; its week runs Mon 03-03 .. Sun 03-09
	svc, repo, cleanup := newTestService(t, "2025-03-05")
	defer cleanup()

	require.NoError(t, repo.Upsert(DailyRecord{Date: day("2025-03-03"), Steps: 13000, Points: 8}))
	require.NoError(t, repo.Upsert(DailyRecord{Date: day("2025-03-04"), Steps: 6000, Points: 0}))

	week, err := svc.GetCurrentWeek()
	require.NoError(t, err)

	assert.Equal(t, "2025-03-03", week.StartDate)
	assert.Equal(t, "2025-03-09", week.EndDate)
	require.Len(t, week.Days, 7)

	mon := week.Days[0]
	assert.Equal(t, "Mon", mon.Weekday)
	assert.True(t, mon.Synced)
	assert.True(t, mon.GoalMet)
	assert.Equal(t, 8, mon.Points)

	tue := week.Days[1]
	assert.True(t, tue.Synced)
	assert.False(t, tue.GoalMet)

	// Wednesday (today) has no record yet: not synced, not future
	wed := week.Days[2]
	assert.False(t, wed.Synced)
	assert.False(t, wed.Future)

	// Thursday onward is the future
	assert.True(t, week.Days[3].Future)
	assert.True(t, week.Days[6].Future)

	assert.Equal(t, 8, week.TotalPoints)
	assert.False(t, week.WeekGoalMet)
}

func TestService_GetWeek_GoalMet(t *testing.T) {
	svc, repo, cleanup := newTestService(t, "2025-03-09")
	defer cleanup()

	for i := 0; i < 5; i++ {
		d := day("2025-03-03").AddDate(0, 0, i)
		require.NoError(t, repo.Upsert(DailyRecord{Date: d, Points: 8}))
	}

	week, err := svc.GetCurrentWeek()
	require.NoError(t, err)
	assert.Equal(t, 40, week.TotalPoints)
	assert.True(t, week.WeekGoalMet)
}

func TestService_GetWeek_SundayBelongsToSameWeek(t *testing.T) {
	// Go's Weekday starts at Sunday; the week view must not roll a
	// Sunday into the following week
	svc, _, cleanup := newTestService(t, "2025-03-09")
	defer cleanup()

	week, err := svc.GetCurrentWeek()
	require.NoError(t, err)
	assert.Equal(t, "2025-03-03", week.StartDate)
	assert.Equal(t, "2025-03-09", week.EndDate)
}

func TestService_GetMonth(t *testing.T) {
	svc, repo, cleanup := newTestService(t, "2025-03-15")
	defer cleanup()

	require.NoError(t, repo.Upsert(DailyRecord{Date: day("2025-03-01"), Points: 8}))

	month, err := svc.GetMonth(2025, time.March)
	require.NoError(t, err)

	assert.Equal(t, 2025, month.Year)
	assert.Equal(t, 3, month.Month)

	// March 2025: Sat the 1st through Mon the 31st spans six
	// Monday-Sunday rows (grid runs Feb 24 .. Apr 6)
	require.Len(t, month.Weeks, 6)
	for _, week := range month.Weeks {
		assert.Len(t, week.Days, 7)
	}

	firstWeek := month.Weeks[0]
	assert.Equal(t, "2025-02-24", firstWeek.Days[0].Date)
	assert.False(t, firstWeek.Days[0].InMonth)
	assert.Equal(t, "2025-03-01", firstWeek.Days[5].Date)
	assert.True(t, firstWeek.Days[5].InMonth)
	assert.Equal(t, 8, firstWeek.TotalPoints)

	lastWeek := month.Weeks[5]
	assert.Equal(t, "2025-04-06", lastWeek.Days[6].Date)
	assert.False(t, lastWeek.Days[6].InMonth)
	assert.True(t, lastWeek.Days[0].InMonth) // Mon Mar 31
}

func TestService_GetMonth_InvalidMonth(t *testing.T) {
	svc, _, cleanup := newTestService(t, "2025-03-15")
	defer cleanup()

	_, err := svc.GetMonth(2025, time.Month(13))
	assert.Error(t, err)
}

func TestService_GetPointsForRange_InvalidRange(t *testing.T) {
	svc, _, cleanup := newTestService(t, "2025-03-15")
	defer cleanup()

	_, err := svc.GetPointsForRange(day("2025-03-10"), day("2025-03-01"))
	assert.Error(t, err)
}

func TestService_RunSyncRecordsResult(t *testing.T) {
	svc, _, cleanup := newTestService(t, "2025-02-03")
	defer cleanup()

	result, err := svc.RunSync(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, result.Status)
	assert.Equal(t, 2, result.DaysSynced)

	running, last := svc.SyncStatus()
	assert.False(t, running)
	require.NotNil(t, last)
	assert.Equal(t, result.RunID, last.RunID)
}

func TestService_RunSyncRejectsConcurrentRun(t *testing.T) {
	svc, _, cleanup := newTestService(t, "2025-02-03")
	defer cleanup()

	svc.mu.Lock()
	svc.syncActive = true
	svc.mu.Unlock()

	_, err := svc.RunSync(context.Background(), nil)
	assert.Error(t, err)

	err = svc.StartSync(context.Background())
	assert.Error(t, err)
}
