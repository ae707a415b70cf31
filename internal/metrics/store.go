// Package metrics records intent executions and reports usage and process health.
package metrics

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// timestampLayout keeps stored times sortable and readable by SQLite's date().
const timestampLayout = "2006-01-02 15:04:05"

// Outcome classifies how an intent ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDeclined Outcome = "declined"
	OutcomeEmpty    Outcome = "empty"
	OutcomeFailed   Outcome = "failed"
)

// IntentExecution records one handled intent.
type IntentExecution struct {
	RequestID string
	Intent    string
	Outcome   Outcome
	LatencyMS int64
	Timestamp time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(ctx context.Context, e IntentExecution) error {
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO intent_executions (request_id, intent, outcome, latency_ms, timestamp) VALUES (?, ?, ?, ?, ?)`,
		e.RequestID, e.Intent, string(e.Outcome), e.LatencyMS, ts.UTC().Format(timestampLayout),
	)
	if err != nil {
		return errors.Wrap(err, "failed to record intent execution")
	}
	return nil
}

// DailyUsage summarises a single day of intents.
type DailyUsage struct {
	Date         string
	Executions   int
	Failures     int
	Declined     int
	AvgLatencyMS float64
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(ctx context.Context, days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(timestampLayout)
	rows, err := s.db.QueryContext(ctx, `
		SELECT date(timestamp) AS day,
		       COUNT(*),
		       SUM(CASE WHEN outcome = 'failed' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN outcome = 'declined' THEN 1 ELSE 0 END),
		       AVG(latency_ms)
		FROM intent_executions
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query daily usage")
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var (
			u   DailyUsage
			day sql.NullString
			avg sql.NullFloat64
		)
		if err := rows.Scan(&day, &u.Executions, &u.Failures, &u.Declined, &avg); err != nil {
			return nil, errors.Wrap(err, "failed to scan daily usage")
		}
		u.Date = "Unknown"
		if day.Valid {
			u.Date = day.String
		}
		if avg.Valid {
			u.AvgLatencyMS = avg.Float64
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// IntentCounts returns how often each intent ran in the last N days.
func (s *Store) IntentCounts(ctx context.Context, days int) (map[string]int, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(timestampLayout)
	rows, err := s.db.QueryContext(ctx,
		`SELECT intent, COUNT(*) FROM intent_executions WHERE timestamp >= ? GROUP BY intent`, since)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query intent counts")
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			name string
			n    int
		)
		if err := rows.Scan(&name, &n); err != nil {
			return nil, errors.Wrap(err, "failed to scan intent counts")
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// Cleanup removes records older than the specified number of days.
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(timestampLayout)
	res, err := s.db.ExecContext(ctx, `DELETE FROM intent_executions WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, errors.Wrap(err, "failed to clean up intent executions")
	}
	return res.RowsAffected()
}
