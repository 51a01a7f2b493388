package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strideapp/stride/internal/database"
	"github.com/strideapp/stride/internal/modules/points"
)

// stubFetcher returns empty metrics for every date
type stubFetcher struct{}

func (stubFetcher) FetchDailyMetrics(_ context.Context, date time.Time) (points.DailyMetrics, error) {
	return points.DailyMetrics{Date: points.Day(date)}, nil
}

func setupTestHandler(t *testing.T) (*Handler, *points.Repository, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "test_points_handlers_*.db")
	require.NoError(t, err)
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{Path: tmpPath, Name: "activity"})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(points.Schema))

	repo := points.NewRepository(db.Conn(), zerolog.Nop())
	syncer := points.NewSyncer(points.SyncerConfig{
		Repo:    repo,
		Fetcher: stubFetcher{},
		Epoch:   time.Date(2025, 2, 1, 0, 0, 0, 0, time.Local),
		Log:     zerolog.Nop(),
	})
	service := points.NewService(repo, syncer, zerolog.Nop())

	handler := NewHandler(service, zerolog.Nop())

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(tmpPath)
	}

	return handler, repo, cleanup
}

func newTestRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func mustDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation(points.DateFormat, s, time.Local)
	require.NoError(t, err)
	return d
}

func TestHandleGetRange(t *testing.T) {
	handler, repo, cleanup := setupTestHandler(t)
	defer cleanup()

	require.NoError(t, repo.Upsert(points.DailyRecord{
		Date: mustDay(t, "2025-03-02"), Steps: 13000, Points: 8,
	}))

	router := newTestRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/points/range?start=2025-03-01&end=2025-03-07", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Start string                        `json:"start"`
		End   string                        `json:"end"`
		Days  map[string]points.DailyRecord `json:"days"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "2025-03-01", body.Start)
	assert.Equal(t, "2025-03-07", body.End)
	require.Len(t, body.Days, 1)
	assert.Equal(t, 8, body.Days["2025-03-02"].Points)
}

func TestHandleGetRange_BadParams(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	router := newTestRouter(handler)

	tests := []struct {
		name string
		url  string
	}{
		{"missing start", "/points/range?end=2025-03-07"},
		{"missing end", "/points/range?start=2025-03-01"},
		{"malformed date", "/points/range?start=03/01/2025&end=2025-03-07"},
		{"end before start", "/points/range?start=2025-03-07&end=2025-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if tt.name == "end before start" {
				// Range validation happens in the service layer
				assert.Equal(t, http.StatusInternalServerError, rec.Code)
			} else {
				assert.Equal(t, http.StatusBadRequest, rec.Code)
			}
		})
	}
}

func TestHandleGetWeek(t *testing.T) {
	handler, repo, cleanup := setupTestHandler(t)
	defer cleanup()

	// Week of Wed 2025-03-05 runs Mon 03-03 .. Sun 03-09
	require.NoError(t, repo.Upsert(points.DailyRecord{
		Date: mustDay(t, "2025-03-03"), Steps: 13000, Points: 8,
	}))

	router := newTestRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/points/week?date=2025-03-05", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var week points.WeekSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &week))

	assert.Equal(t, "2025-03-03", week.StartDate)
	assert.Equal(t, "2025-03-09", week.EndDate)
	require.Len(t, week.Days, 7)
	assert.Equal(t, 8, week.TotalPoints)
}

func TestHandleGetWeek_InvalidDate(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	router := newTestRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/points/week?date=notadate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleGetMonth(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	router := newTestRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/points/calendar/2025/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var month points.MonthSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &month))

	assert.Equal(t, 2025, month.Year)
	assert.Equal(t, 3, month.Month)
	require.NotEmpty(t, month.Weeks)
	for _, week := range month.Weeks {
		assert.Len(t, week.Days, 7)
	}
}

func TestHandleGetMonth_InvalidParams(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	router := newTestRouter(handler)

	for _, url := range []string{
		"/points/calendar/abcd/3",
		"/points/calendar/2025/13",
		"/points/calendar/2025/0",
	} {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
	}
}

func TestHandleSyncStatus(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	router := newTestRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/sync/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["running"])
	assert.NotContains(t, body, "last_run")
}

func TestHandleTriggerSync(t *testing.T) {
	handler, _, cleanup := setupTestHandler(t)
	defer cleanup()

	router := newTestRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/sync/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}
