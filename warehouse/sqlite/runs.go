/*
runs.go - Pipeline run log

Each pipeline run is recorded with its status, timing, error and the
data-quality counters serialized as JSON. The log is the observable surface
for "how many fact rows were dropped and why".
*/
package sqlite

import (
	"context"
	"database/sql"
	"time"
)

// RunRecord is one pipeline run in storage.
type RunRecord struct {
	ID          string
	RunDate     string
	Status      string // running, completed, failed
	Error       string
	StatsJSON   string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// SaveRun inserts or updates a run record.
func (s *Store) SaveRun(ctx context.Context, r RunRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var completedAt *string
	if r.CompletedAt != nil {
		t := r.CompletedAt.UTC().Format(time.RFC3339)
		completedAt = &t
	}

	query := `
		INSERT INTO pipeline_runs (id, run_date, status, error, stats_json, started_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			error = excluded.error,
			stats_json = excluded.stats_json,
			completed_at = excluded.completed_at
	`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.RunDate, r.Status, r.Error, r.StatsJSON,
		r.StartedAt.UTC().Format(time.RFC3339), completedAt,
	)
	return err
}

// GetRun retrieves a run by ID. Returns nil when not found.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT id, run_date, status, error, stats_json, started_at, completed_at
		FROM pipeline_runs WHERE id = ?
	`, id)

	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListRuns returns runs, most recent first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_date, status, error, stats_json, started_at, completed_at
		FROM pipeline_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// LatestRun returns the most recent run, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*RunRecord, error) {
	runs, err := s.ListRuns(ctx, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var r RunRecord
	var errMsg, statsJSON, completedAt sql.NullString
	var startedAt string

	if err := row.Scan(&r.ID, &r.RunDate, &r.Status, &errMsg, &statsJSON,
		&startedAt, &completedAt); err != nil {
		return nil, err
	}

	r.Error = errMsg.String
	r.StatsJSON = statsJSON.String
	r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if completedAt.Valid {
		t, _ := time.Parse(time.RFC3339, completedAt.String)
		r.CompletedAt = &t
	}
	return &r, nil
}
