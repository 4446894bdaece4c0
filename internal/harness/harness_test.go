package harness

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/loader"
	"github.com/roach88/rxflow/internal/store"
)

func loadScenario(t *testing.T, name string) *Scenario {
	t.Helper()
	scenario, err := LoadScenario(filepath.Join("testdata", "scenarios", name+ScenarioSuffix))
	require.NoError(t, err)
	return scenario
}

// TestScenarios runs every scenario under testdata/scenarios and compares
// its snapshot against the golden file of the same name.
func TestScenarios(t *testing.T) {
	paths, err := Discover(filepath.Join("testdata", "scenarios"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)

	for _, path := range paths {
		scenario, err := LoadScenario(path)
		require.NoError(t, err, path)

		t.Run(scenario.Name, func(t *testing.T) {
			result, err := RunWithGolden(t, scenario)
			require.NoError(t, err)
			assert.True(t, result.Pass, "errors: %v", result.Errors)
		})
	}
}

func TestRun_Deterministic(t *testing.T) {
	scenario := loadScenario(t, "take")

	first, err := Run(scenario)
	require.NoError(t, err)
	second, err := Run(scenario)
	require.NoError(t, err)

	assert.Equal(t, Snapshot(scenario.Name, first), Snapshot(scenario.Name, second))
	assert.Equal(t, "take-run", first.RunID)
	assert.Equal(t, []string{`"n=1"`, `"n=2"`, `"n=3"`}, first.Values())
}

func TestRun_ValueMismatch(t *testing.T) {
	scenario := loadScenario(t, "sum")
	scenario.Expect = &Expect{Values: []any{7}}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "expected values [7], got [6]", result.Errors[0])
}

func TestRun_UnexpectedError(t *testing.T) {
	scenario := loadScenario(t, "cycle")
	scenario.Expect = nil
	scenario.Assertions = []Assertion{{Type: AssertTraceCount, Count: 0}}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Equal(t, "CYCLE", result.ErrorCode)
	assert.Empty(t, result.RunID)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "unexpected error")
}

func TestRun_WrongErrorCode(t *testing.T) {
	scenario := loadScenario(t, "quota")
	scenario.Expect.Error = "STREAM_FAILED"

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.False(t, result.Pass)
	assert.Contains(t, result.Errors, `expected error STREAM_FAILED, got "QUOTA_EXCEEDED"`)
}

func TestRun_FailedStatusWithoutCode(t *testing.T) {
	scenario := loadScenario(t, "stream_error")
	scenario.Expect = &Expect{Status: "failed"}

	result, err := Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
	assert.Equal(t, string(engine.ErrCodeStreamFailed), result.ErrorCode)
}

func TestRun_QuotaOverride(t *testing.T) {
	scenario := loadScenario(t, "quota")
	scenario.MaxValues = 0
	scenario.Expect = &Expect{Status: "completed", Values: []any{1, 2, 3, 4}}
	scenario.Assertions = nil

	result, err := New().Run(scenario)
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"validation", loader.ValidationError{Code: loader.ErrUnknownKind}, loader.ErrUnknownKind},
		{"load", &loader.LoadError{Code: loader.ErrCodeNotFound}, loader.ErrCodeNotFound},
		{
			"nested build",
			expr.WrapHost(expr.Errorf(expr.CodeArity, nil, "too many inputs"), &expr.Pass{}),
			string(expr.CodeArity),
		},
		{"runtime", &engine.RuntimeError{Code: engine.ErrCodeCancelled}, string(engine.ErrCodeCancelled)},
		{"wrapped runtime", fmt.Errorf("run: %w", engine.NewQuotaError("r", 3, 2)), string(engine.ErrCodeQuotaExceeded)},
		{"plain", errors.New("disk on fire"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorCode(tt.err))
		})
	}
}

func TestResult_AddNotification(t *testing.T) {
	r := NewResult()
	r.AddNotification(store.Notification{Seq: 1, Kind: store.KindNext, Value: "1"})
	r.AddNotification(store.Notification{Seq: 2, Kind: store.KindError, Value: "null", Error: "boom"})

	assert.Equal(t, []TraceEvent{
		{Seq: 1, Kind: "next", Value: "1"},
		{Seq: 2, Kind: "error", Error: "boom"},
	}, r.Trace)
	assert.Equal(t, []string{"1"}, r.Values())
	assert.True(t, r.Pass)

	r.AddError("nope")
	assert.False(t, r.Pass)
}
