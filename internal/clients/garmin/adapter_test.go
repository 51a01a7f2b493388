package garmin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/strideapp/stride/internal/modules/points"
)

// fakeProvider is a configurable Garmin API double
type fakeProvider struct {
	stepsStatus      int
	stepsBody        string
	activitiesStatus int
	activitiesBody   string

	stepsPeriod     string // captured from the last steps request
	activitiesLimit string // captured from the last activities request
}

func (f *fakeProvider) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case stepsEndpoint:
			f.stepsPeriod = r.URL.Query().Get("period")
			if f.stepsStatus != 0 {
				w.WriteHeader(f.stepsStatus)
				return
			}
			_, _ = w.Write([]byte(f.stepsBody))
		case activitiesEndpoint:
			f.activitiesLimit = r.URL.Query().Get("limit")
			if f.activitiesStatus != 0 {
				w.WriteHeader(f.activitiesStatus)
				return
			}
			_, _ = w.Write([]byte(f.activitiesBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newTestAdapter(t *testing.T, provider *fakeProvider, today string) (*Adapter, func()) {
	t.Helper()

	server := httptest.NewServer(provider.handler())
	c := newTestClient(server.URL)

	a := NewAdapter(c, zerolog.Nop())
	a.now = func() time.Time {
		d, err := time.ParseInLocation("2006-01-02", today, time.Local)
		require.NoError(t, err)
		return d
	}

	return a, server.Close
}

func testDay(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.ParseInLocation("2006-01-02", s, time.Local)
	require.NoError(t, err)
	return d
}

func TestAdapter_FetchDailyMetrics(t *testing.T) {
	provider := &fakeProvider{
		stepsBody: `[
			{"calendarDate":"2025-03-01","totalSteps":9000},
			{"calendarDate":"2025-03-02","totalSteps":13250},
			{"calendarDate":"2025-03-03","totalSteps":4000}
		]`,
		activitiesBody: `[
			{"activityType":{"typeKey":"running"},"startTimeLocal":"2025-03-03 18:00:00","duration":1900,"averageHR":120},
			{"activityType":{"typeKey":"strength_training"},"startTimeLocal":"2025-03-02 07:15:00","duration":2400,"averageHR":112},
			{"activityType":{"typeKey":"cycling"},"startTimeLocal":"2025-03-02 17:40:00","duration":3650,"averageHR":98}
		]`,
	}
	adapter, closeServer := newTestAdapter(t, provider, "2025-03-04")
	defer closeServer()

	metrics, err := adapter.FetchDailyMetrics(context.Background(), testDay(t, "2025-03-02"))
	require.NoError(t, err)

	assert.Equal(t, "2025-03-02", points.DayKey(metrics.Date))
	assert.Equal(t, 13250, metrics.Steps)

	// Only the two activities that started on the target date survive
	require.Len(t, metrics.Sessions, 2)
	assert.Equal(t, "strength_training", metrics.Sessions[0].ActivityType)
	assert.Equal(t, 2400, metrics.Sessions[0].DurationSeconds)
	assert.Equal(t, 112.0, metrics.Sessions[0].AverageHeartRate)
	assert.Equal(t, "cycling", metrics.Sessions[1].ActivityType)

	// Window covers (today - date) plus margin; activities use the fixed limit
	assert.Equal(t, "4", provider.stepsPeriod)
	assert.Equal(t, "50", provider.activitiesLimit)
}

func TestAdapter_DateOutsideWindowMeansZeroSteps(t *testing.T) {
	provider := &fakeProvider{
		stepsBody:      `[{"calendarDate":"2025-03-04","totalSteps":9000}]`,
		activitiesBody: `[]`,
	}
	adapter, closeServer := newTestAdapter(t, provider, "2025-03-04")
	defer closeServer()

	metrics, err := adapter.FetchDailyMetrics(context.Background(), testDay(t, "2025-03-01"))
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.Steps)
}

func TestAdapter_StepFailureDegradesToZero(t *testing.T) {
	provider := &fakeProvider{
		stepsStatus: http.StatusInternalServerError,
		activitiesBody: `[
			{"activityType":{"typeKey":"running"},"startTimeLocal":"2025-03-02 18:00:00","duration":1800,"averageHR":120}
		]`,
	}
	adapter, closeServer := newTestAdapter(t, provider, "2025-03-04")
	defer closeServer()

	metrics, err := adapter.FetchDailyMetrics(context.Background(), testDay(t, "2025-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 0, metrics.Steps)
	assert.Len(t, metrics.Sessions, 1)
}

func TestAdapter_ActivityFailureDegradesToEmpty(t *testing.T) {
	provider := &fakeProvider{
		stepsBody:        `[{"calendarDate":"2025-03-02","totalSteps":8000}]`,
		activitiesStatus: http.StatusBadGateway,
	}
	adapter, closeServer := newTestAdapter(t, provider, "2025-03-04")
	defer closeServer()

	metrics, err := adapter.FetchDailyMetrics(context.Background(), testDay(t, "2025-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 8000, metrics.Steps)
	assert.NotNil(t, metrics.Sessions)
	assert.Empty(t, metrics.Sessions)
}

func TestAdapter_AuthFailureFailsWholeCall(t *testing.T) {
	provider := &fakeProvider{
		stepsStatus:      http.StatusUnauthorized,
		activitiesStatus: http.StatusUnauthorized,
	}
	adapter, closeServer := newTestAdapter(t, provider, "2025-03-04")
	defer closeServer()

	_, err := adapter.FetchDailyMetrics(context.Background(), testDay(t, "2025-03-02"))
	require.Error(t, err)
	assert.True(t, IsAuthRequired(err))
}

func TestAdapter_NormalizesInvalidActivityValues(t *testing.T) {
	provider := &fakeProvider{
		stepsBody: `[]`,
		activitiesBody: `[
			{"activityType":{"typeKey":"running"},"startTimeLocal":"2025-03-02 18:00:00","duration":-30,"averageHR":-4}
		]`,
	}
	adapter, closeServer := newTestAdapter(t, provider, "2025-03-04")
	defer closeServer()

	metrics, err := adapter.FetchDailyMetrics(context.Background(), testDay(t, "2025-03-02"))
	require.NoError(t, err)
	require.Len(t, metrics.Sessions, 1)
	assert.Equal(t, 0, metrics.Sessions[0].DurationSeconds)
	assert.Equal(t, 0.0, metrics.Sessions[0].AverageHeartRate)
}
