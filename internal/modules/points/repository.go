package points

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Schema is the daily_stats table definition, applied via database.Migrate.
// One row per calendar date; sessions are stored as a JSON snapshot of the
// inputs the points were computed from.
const Schema = `
CREATE TABLE IF NOT EXISTS daily_stats (
	date TEXT PRIMARY KEY,
	steps INTEGER NOT NULL DEFAULT 0,
	points INTEGER NOT NULL DEFAULT 0,
	sessions_json TEXT NOT NULL DEFAULT '[]'
) STRICT;

CREATE INDEX IF NOT EXISTS idx_daily_stats_date ON daily_stats(date);
`

// Repository handles persistence of daily activity records.
// Records are keyed by date (YYYY-MM-DD). A write for an existing date
// replaces the whole row - re-syncing an already-synced range is
// idempotent by construction.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new daily record repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "points").Logger(),
	}
}

// Upsert stores the record for a date, replacing any existing record in
// full. The single INSERT OR REPLACE statement is atomic - readers never
// observe a partial write.
func (r *Repository) Upsert(record DailyRecord) error {
	sessions := record.Sessions
	if sessions == nil {
		sessions = []ExerciseSession{}
	}

	sessionsJSON, err := json.Marshal(sessions)
	if err != nil {
		return fmt.Errorf("failed to serialize sessions for %s: %w", DayKey(record.Date), err)
	}

	_, err = r.db.Exec(`
		INSERT OR REPLACE INTO daily_stats (date, steps, points, sessions_json)
		VALUES (?, ?, ?, ?)
	`, DayKey(record.Date), record.Steps, record.Points, string(sessionsJSON))
	if err != nil {
		return fmt.Errorf("failed to upsert daily record for %s: %w", DayKey(record.Date), err)
	}

	return nil
}

// Get retrieves the record for a date.
// Returns nil (not an error) when the date has not been synced yet.
func (r *Repository) Get(date time.Time) (*DailyRecord, error) {
	row := r.db.QueryRow(`
		SELECT date, steps, points, sessions_json
		FROM daily_stats
		WHERE date = ?
	`, DayKey(date))

	record, err := scanRecord(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily record for %s: %w", DayKey(date), err)
	}

	return record, nil
}

// GetRange retrieves all stored records with start <= date <= end, keyed
// by date string. Dates with no record are simply absent from the result -
// callers must treat absence as "not yet synced", which is distinct from
// "synced with 0 points".
func (r *Repository) GetRange(start, end time.Time) (map[string]DailyRecord, error) {
	rows, err := r.db.Query(`
		SELECT date, steps, points, sessions_json
		FROM daily_stats
		WHERE date >= ? AND date <= ?
	`, DayKey(start), DayKey(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query range %s..%s: %w", DayKey(start), DayKey(end), err)
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]DailyRecord)
	for rows.Next() {
		record, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily record: %w", err)
		}
		result[DayKey(record.Date)] = *record
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate range %s..%s: %w", DayKey(start), DayKey(end), err)
	}

	return result, nil
}

// LatestDate returns the most recent date with a stored record.
// Returns nil when the store is empty.
func (r *Repository) LatestDate() (*time.Time, error) {
	var dateStr sql.NullString
	err := r.db.QueryRow(`SELECT MAX(date) FROM daily_stats`).Scan(&dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest date: %w", err)
	}

	if !dateStr.Valid || dateStr.String == "" {
		return nil, nil
	}

	date, err := time.ParseInLocation(DateFormat, dateStr.String, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q in daily_stats: %w", dateStr.String, err)
	}

	return &date, nil
}

// Count returns the number of stored records
func (r *Repository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM daily_stats`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count daily records: %w", err)
	}
	return count, nil
}

// scanRecord builds a DailyRecord from a row scan function
func scanRecord(scan func(...interface{}) error) (*DailyRecord, error) {
	var (
		dateStr      string
		steps        int
		pointsTotal  int
		sessionsJSON string
	)

	if err := scan(&dateStr, &steps, &pointsTotal, &sessionsJSON); err != nil {
		return nil, err
	}

	date, err := time.ParseInLocation(DateFormat, dateStr, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q: %w", dateStr, err)
	}

	var sessions []ExerciseSession
	if err := json.Unmarshal([]byte(sessionsJSON), &sessions); err != nil {
		return nil, fmt.Errorf("invalid sessions snapshot for %s: %w", dateStr, err)
	}
	if sessions == nil {
		sessions = []ExerciseSession{}
	}

	return &DailyRecord{
		Date:     date,
		Steps:    steps,
		Points:   pointsTotal,
		Sessions: sessions,
	}, nil
}
