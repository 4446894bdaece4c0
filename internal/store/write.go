package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run record. Uses ON CONFLICT(id) DO NOTHING for
// idempotency - duplicate IDs are silently ignored.
func (s *Store) WriteRun(ctx context.Context, run Run) error {
	status := run.Status
	if status == "" {
		status = StatusRunning
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, workflow, fragment_hash, status, error, last_seq, engine_version)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		run.ID,
		run.Workflow,
		run.FragmentHash,
		string(status),
		run.Error,
		run.LastSeq,
		run.EngineVersion,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// FinishRun records the terminal status of a run. A run that already left
// the running state is not updated again.
func (s *Store) FinishRun(ctx context.Context, id string, status Status, errMsg string, lastSeq int64) error {
	if !status.Terminal() {
		return fmt.Errorf("finish run %s: status %q is not terminal", id, status)
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET status = ?, error = ?, last_seq = ?
		WHERE id = ? AND status = 'running'
	`, string(status), errMsg, lastSeq, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return nil
}

// WriteNotification appends one notification to a run's trace.
// Uses ON CONFLICT(run_id, seq) DO NOTHING so replaying a write is a no-op.
//
// Note: The run referenced by RunID must exist (foreign key constraint).
func (s *Store) WriteNotification(ctx context.Context, n Notification) error {
	value := n.Value
	if value == "" {
		value = "null"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications
		(run_id, seq, kind, value, error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, n.RunID, n.Seq, string(n.Kind), value, n.Error)
	if err != nil {
		return fmt.Errorf("write notification: %w", err)
	}
	return nil
}

// WriteTrace appends a batch of notifications in one transaction.
func (s *Store) WriteTrace(ctx context.Context, ns []Notification) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write trace: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO notifications
		(run_id, seq, kind, value, error)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write trace: prepare: %w", err)
	}
	defer stmt.Close()

	for _, n := range ns {
		value := n.Value
		if value == "" {
			value = "null"
		}
		if _, err := stmt.ExecContext(ctx, n.RunID, n.Seq, string(n.Kind), value, n.Error); err != nil {
			return fmt.Errorf("write trace: seq %d: %w", n.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write trace: commit: %w", err)
	}
	return nil
}
