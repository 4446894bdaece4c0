package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/config"
	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/store"
)

// runInto runs a workflow into db under runID and returns the output.
func runInto(t *testing.T, db, runID, workflow string, extra ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--db", db, "--run-id", runID, workflow}, extra...))
	err := cmd.Execute()
	return buf.String(), err
}

func TestRunCompletes(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := runInto(t, db, "r1", workflowPath("sum.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "6\n✓ Run r1 completed (1 value(s))\n", out)

	st, err := store.Open(db)
	require.NoError(t, err)
	defer st.Close()

	run, err := st.ReadRun(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, store.StatusCompleted, run.Status)
	assert.Equal(t, int64(2), run.LastSeq)
	assert.True(t, filepath.IsAbs(run.Workflow))
	assert.Equal(t, "sum.yaml", filepath.Base(run.Workflow))
}

func TestRunJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	opts := &RunOptions{RootOptions: &RootOptions{Format: "json"}, RunIDs: engine.NewFixedGenerator("fixed-1")}
	cmd := NewRunCommand(opts.RootOptions)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{workflowPath("sum.yaml")})

	// Drive the command through the options directly to inject the generator.
	cmd.RunE = func(c *cobra.Command, args []string) error { return runWorkflow(opts, args[0], c) }
	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string    `json:"status"`
		RunID  string    `json:"run_id"`
		Data   RunResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "fixed-1", resp.RunID)
	assert.Equal(t, store.StatusCompleted, resp.Data.Status)
	assert.Equal(t, []any{float64(6)}, resp.Data.Values)
}

func TestRunQuotaExceeded(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := runInto(t, db, "q1", workflowPath("many.yaml"), "--max-values", "2")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "1\n2\n")
	assert.Contains(t, out, "✗ Run q1 failed: [QUOTA_EXCEEDED]")
}

func TestRunStreamFailure(t *testing.T) {
	db := filepath.Join(t.TempDir(), "runs.db")

	out, err := runInto(t, db, "e1", workflowPath("bad_items.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "[STREAM_FAILED]")
	assert.Contains(t, out, "items must be a list")
}

func TestRunBuildError(t *testing.T) {
	out, err := runInto(t, filepath.Join(t.TempDir(), "runs.db"), "c1", workflowPath("cycle.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "CYCLE")
}

func TestRunInMemoryByDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRunCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"--run-id", "mem", workflowPath("sum.yaml")})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "✓ Run mem completed")
}

func TestRunSettings(t *testing.T) {
	cfg := config.Default()
	cfg.DB = "from-config.db"
	cfg.MaxValues = 7

	opts := &RunOptions{RootOptions: &RootOptions{Config: cfg}, MaxValues: -1}
	db, timeout, maxValues := opts.settings()
	assert.Equal(t, "from-config.db", db)
	assert.Equal(t, 30*time.Second, timeout)
	assert.Equal(t, 7, maxValues)

	opts = &RunOptions{RootOptions: &RootOptions{Config: cfg}, Database: "flag.db", Timeout: time.Second, MaxValues: 0}
	db, timeout, maxValues = opts.settings()
	assert.Equal(t, "flag.db", db)
	assert.Equal(t, time.Second, timeout)
	assert.Equal(t, 0, maxValues)

	opts = &RunOptions{RootOptions: &RootOptions{}, MaxValues: -1}
	db, _, _ = opts.settings()
	assert.Equal(t, ":memory:", db)
}
