package store

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	want := writeTestRun(t, s, "run-1")

	got, err := s.ReadRun(ctx(t), "run-1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	err := s.WriteRun(ctx(t), Run{ID: "run-1", Workflow: "other.yaml", FragmentHash: "x", EngineVersion: "9"})
	require.NoError(t, err)

	got, err := s.ReadRun(ctx(t), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "test.yaml", got.Workflow)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(ctx(t), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	require.NoError(t, s.FinishRun(ctx(t), "run-1", StatusFailed, "boom", 4))
	// A second finish does not overwrite the first.
	require.NoError(t, s.FinishRun(ctx(t), "run-1", StatusCompleted, "", 9))

	got, err := s.ReadRun(ctx(t), "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	assert.Equal(t, "boom", got.Error)
	assert.Equal(t, int64(4), got.LastSeq)
}

func TestFinishRun_RejectsRunning(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	assert.Error(t, s.FinishRun(ctx(t), "run-1", StatusRunning, "", 0))
}

func TestWriteTrace_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")

	require.NoError(t, s.WriteTrace(ctx(t), []Notification{
		{RunID: "run-1", Seq: 3, Kind: KindCompleted},
		{RunID: "run-1", Seq: 1, Kind: KindNext, Value: "1"},
		{RunID: "run-1", Seq: 2, Kind: KindNext, Value: `"two"`},
	}))
	// Replayed write is ignored.
	require.NoError(t, s.WriteNotification(ctx(t), Notification{RunID: "run-1", Seq: 1, Kind: KindNext, Value: "99"}))

	ns, err := s.ReadNotifications(ctx(t), "run-1")
	require.NoError(t, err)
	require.Len(t, ns, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{ns[0].Seq, ns[1].Seq, ns[2].Seq})
	assert.Equal(t, "1", ns[0].Value)
	assert.Equal(t, "null", ns[2].Value)

	last, err := s.GetLastSeq(ctx(t), "run-1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), last)
}

func TestReadNotifications_Empty(t *testing.T) {
	s := createTestStore(t)

	ns, err := s.ReadNotifications(ctx(t), "nothing")
	require.NoError(t, err)
	assert.NotNil(t, ns)
	assert.Empty(t, ns)
}

func TestListRuns_AndIncomplete(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "b")
	writeTestRun(t, s, "a")
	writeTestRun(t, s, "c")
	require.NoError(t, s.FinishRun(ctx(t), "b", StatusCompleted, "", 0))

	runs, err := s.ListRuns(ctx(t))
	require.NoError(t, err)
	ids := make([]string, len(runs))
	for i, r := range runs {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	incomplete, err := s.FindIncompleteRuns(ctx(t))
	require.NoError(t, err)
	require.Len(t, incomplete, 2)
	assert.Equal(t, "a", incomplete[0].ID)
	assert.Equal(t, "c", incomplete[1].ID)
}

func TestGetRunState(t *testing.T) {
	s := createTestStore(t)
	writeTestRun(t, s, "run-1")
	require.NoError(t, s.WriteTrace(ctx(t), []Notification{
		{RunID: "run-1", Seq: 1, Kind: KindNext, Value: "1"},
		{RunID: "run-1", Seq: 2, Kind: KindNext, Value: "2"},
		{RunID: "run-1", Seq: 3, Kind: KindCompleted},
	}))
	require.NoError(t, s.FinishRun(ctx(t), "run-1", StatusCompleted, "", 3))

	state, err := s.GetRunState(ctx(t), "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.Values)
	assert.True(t, state.Terminated)
	assert.True(t, state.Consistent)

	values, err := s.ReplayValues(ctx(t), "run-1")
	require.NoError(t, err)
	assert.Equal(t, []any{json.Number("1"), json.Number("2")}, values)
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"nil", nil, "null"},
		{"int32 widened", int32(7), "7"},
		{"large int64", int64(1) << 60, "1152921504606846976"},
		{"string", "a<b", `"a<b"`},
		{"map sorted", map[string]any{"b": 1, "a": int16(2)}, `{"a":2,"b":1}`},
		{"typed slice", []int32{1, 2}, "[1,2]"},
		{"float falls back", 1.5, "1.5"},
		{"struct falls back", struct{ X int }{3}, `{"X":3}`},
		{"unencodable", make(chan int), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EncodeValue(tt.value)
			if tt.want == "" {
				assert.NotEmpty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}
