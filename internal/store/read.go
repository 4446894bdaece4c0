package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrRunNotFound is returned when a run ID has no record.
var ErrRunNotFound = errors.New("run not found")

// ReadRun retrieves a single run by ID.
// Returns an error wrapping ErrRunNotFound if it does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow, fragment_hash, status, error, last_seq, engine_version
		FROM runs
		WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	return run, err
}

// ListRuns returns every run ordered by ID. Run IDs are UUIDv7, so this is
// creation order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT id, workflow, fragment_hash, status, error, last_seq, engine_version
		FROM runs
		ORDER BY id COLLATE BINARY ASC
	`)
}

// FindIncompleteRuns returns runs still marked running, typically left
// behind by a process that exited before the run terminated.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT id, workflow, fragment_hash, status, error, last_seq, engine_version
		FROM runs
		WHERE status = 'running'
		ORDER BY id COLLATE BINARY ASC
	`)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadNotifications returns a run's trace in seq order.
// Returns an empty slice (not nil) if the run recorded nothing.
func (s *Store) ReadNotifications(ctx context.Context, runID string) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, kind, value, error
		FROM notifications
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	ns := []Notification{}
	for rows.Next() {
		var (
			n    Notification
			kind string
		)
		if err := rows.Scan(&n.RunID, &n.Seq, &kind, &n.Value, &n.Error); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.Kind = Kind(kind)
		ns = append(ns, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return ns, nil
}

// GetLastSeq returns the highest seq recorded for a run, or 0.
func (s *Store) GetLastSeq(ctx context.Context, runID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM notifications WHERE run_id = ?
	`, runID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return seq, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run    Run
		status string
	)
	err := row.Scan(&run.ID, &run.Workflow, &run.FragmentHash, &status, &run.Error, &run.LastSeq, &run.EngineVersion)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Status = Status(status)
	return run, nil
}
