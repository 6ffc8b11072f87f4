package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mumbai-meal-planner/internal/shared"
)

// CallMetric records metadata for one completion-client call.
type CallMetric struct {
	RequestID        string
	Operation        string
	Model            string
	Attempts         int
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	OK               bool
	Timestamp        time.Time
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
func (s *Store) Record(m CallMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO call_metrics (request_id, operation, model, attempts, prompt_tokens, completion_tokens, latency_ms, ok, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.RequestID, m.Operation, m.Model, m.Attempts,
		m.PromptTokens, m.CompletionTokens, m.LatencyMS, m.OK, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert call metric: %w", err)
	}
	return nil
}

// RecordMeta records metrics directly from shared.CallMeta.
func (s *Store) RecordMeta(meta shared.CallMeta) error {
	return s.Record(CallMetric{
		RequestID:        meta.RequestID,
		Operation:        meta.Operation,
		Model:            meta.Model,
		Attempts:         meta.Attempts,
		PromptTokens:     meta.Usage.PromptTokens,
		CompletionTokens: meta.Usage.CompletionTokens,
		LatencyMS:        meta.Latency.Milliseconds(),
		OK:               meta.OK,
		Timestamp:        time.Now().UTC(),
	})
}

// DailyUsage represents call and token totals for a single day.
type DailyUsage struct {
	Date            string `json:"date"`
	Calls           int    `json:"calls"`
	Failures        int    `json:"failures"`
	TotalPrompt     int    `json:"prompt_tokens"`
	TotalCompletion int    `json:"completion_tokens"`
}

// GetDailyUsage retrieves usage for the last N days.
func (s *Store) GetDailyUsage(days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	rows, err := s.db.QueryContext(context.Background(),
		`SELECT date(timestamp) AS day,
		        COUNT(*),
		        SUM(CASE WHEN ok = 0 THEN 1 ELSE 0 END),
		        COALESCE(SUM(prompt_tokens), 0),
		        COALESCE(SUM(completion_tokens), 0)
		 FROM call_metrics
		 WHERE timestamp >= ?
		 GROUP BY day
		 ORDER BY day DESC`,
		since,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.Calls, &u.Failures, &u.TotalPrompt, &u.TotalCompletion); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage row: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// returns how many rows were deleted.
func (s *Store) Cleanup(olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays)
	res, err := s.db.ExecContext(context.Background(),
		`DELETE FROM call_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up call metrics: %w", err)
	}
	return res.RowsAffected()
}
