package store

import (
	"context"
	"path/filepath"
	"testing"
)

// createTestStore creates a new on-disk store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func ctx(t *testing.T) context.Context {
	t.Helper()
	return context.Background()
}

// writeTestRun inserts a running run with minimal required fields.
func writeTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run := Run{
		ID:            id,
		Workflow:      "test.yaml",
		FragmentHash:  "test-hash",
		EngineVersion: "0.1.0",
	}
	if err := s.WriteRun(ctx(t), run); err != nil {
		t.Fatalf("WriteRun(%s) failed: %v", id, err)
	}
	run.Status = StatusRunning
	return run
}
