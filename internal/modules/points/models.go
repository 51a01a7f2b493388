// Package points implements the daily activity points engine: scoring
// rules, the local day-record store, and the incremental sync that keeps
// the store current through yesterday.
package points

import (
	"strings"
	"time"
)

// DateFormat is the canonical date key format (ISO 8601 date)
const DateFormat = "2006-01-02"

// ExerciseSession is one recorded exercise session for a day.
// AverageHeartRate of 0 means no heart-rate data was recorded; such a
// session never contributes points regardless of duration or type.
type ExerciseSession struct {
	ActivityType     string  `json:"activity_type"`
	DurationSeconds  int     `json:"duration_seconds"`
	AverageHeartRate float64 `json:"average_heart_rate"`
}

// IsStrength classifies the session: any type label containing
// "strength" (case-insensitive) counts as strength training,
// everything else is treated as cardio.
func (s ExerciseSession) IsStrength() bool {
	return strings.Contains(strings.ToLower(s.ActivityType), "strength")
}

// DailyMetrics is the normalized raw input for one day, as returned by
// the fetch adapter. Absent step data normalizes to 0; sessions may be empty.
type DailyMetrics struct {
	Date     time.Time
	Steps    int
	Sessions []ExerciseSession
}

// DailyRecord is one stored day: raw steps, the derived points, and a
// snapshot of the sessions the points were computed from.
type DailyRecord struct {
	Date     time.Time         `json:"date"`
	Steps    int               `json:"steps"`
	Points   int               `json:"points"`
	Sessions []ExerciseSession `json:"sessions"`
}

// DayKey formats a date as its store key (YYYY-MM-DD)
func DayKey(date time.Time) string {
	return date.Format(DateFormat)
}

// Day truncates a timestamp to midnight in its own location.
// Dates are compared and iterated at day granularity throughout.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayIn re-anchors the calendar date of t to midnight in loc, keeping the
// date components untouched. Day-granularity comparisons are only meaningful
// between timestamps in the same location, so all sync arithmetic is anchored
// to the clock's location.
func DayIn(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
