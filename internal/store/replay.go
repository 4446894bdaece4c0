package store

import (
	"context"
	"fmt"
)

// RunState is a run together with its trace and a summary of it.
type RunState struct {
	Run           Run
	Notifications []Notification
	Values        int  // number of next notifications
	Terminated    bool // trace ends with error or completed
	Consistent    bool // Run.LastSeq matches the last recorded seq
}

// GetRunState reads a run and its full trace for inspection or replay
// comparison.
func (s *Store) GetRunState(ctx context.Context, runID string) (RunState, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}
	ns, err := s.ReadNotifications(ctx, runID)
	if err != nil {
		return RunState{}, fmt.Errorf("get run state: %w", err)
	}

	state := RunState{Run: run, Notifications: ns}
	var last int64
	for _, n := range ns {
		switch n.Kind {
		case KindNext:
			state.Values++
		case KindError, KindCompleted:
			state.Terminated = true
		}
		last = n.Seq
	}
	// A running run has not written its last_seq yet.
	state.Consistent = run.Status == StatusRunning || run.LastSeq == last
	return state, nil
}

// ReplayValues decodes the values of a run's next notifications in order.
func (s *Store) ReplayValues(ctx context.Context, runID string) ([]any, error) {
	ns, err := s.ReadNotifications(ctx, runID)
	if err != nil {
		return nil, err
	}
	values := []any{}
	for _, n := range ns {
		if n.Kind != KindNext {
			continue
		}
		v, err := DecodeValue(n.Value)
		if err != nil {
			return nil, fmt.Errorf("replay values: seq %d: %w", n.Seq, err)
		}
		values = append(values, v)
	}
	return values, nil
}
