package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rxflow/internal/compiler"
	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/loader"
	"github.com/roach88/rxflow/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID         string       `json:"run_id"`
	Workflow      string       `json:"workflow"`
	Status        store.Status `json:"status"`
	Events        int          `json:"events"`
	HashMatch     bool         `json:"hash_match"`
	Deterministic bool         `json:"deterministic"`
	Skipped       string       `json:"skipped,omitempty"` // reason the run was not replayed
	Diff          string       `json:"diff,omitempty"`    // first differing line
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs             []ReplayRunResult `json:"runs"`
	TotalRuns        int               `json:"total_runs"`
	AllDeterministic bool              `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-run recorded runs and verify determinism",
		Long: `Re-run recorded runs and verify that they reproduce their trace.

Each terminated run's workflow is loaded and compiled again. The fragment
hash is compared with the recorded one, then the pipeline is run in
memory under the same run ID with a fresh logical clock and its
notifications are compared with the recorded trace. Cancelled and
still-running runs are skipped; their traces depend on timing.

Exit codes:
  0 - All runs are deterministic
  1 - Determinism verification failed (differences detected)
  2 - Command error (database not found, etc.)

Examples:
  rxflow replay --db ./runs.db
  rxflow replay --db ./runs.db --run nightly-1
  rxflow replay --db ./runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)

	st, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read run %s", opts.RunID), err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:             make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:        len(runs),
		AllDeterministic: true,
	}

	for _, run := range runs {
		runResult, err := replayRun(ctx, opts, st, run)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}
		formatter.VerboseLog("replayed %s: deterministic=%v", run.ID, runResult.Deterministic)

		result.Runs = append(result.Runs, runResult)
		if !runResult.Deterministic {
			result.AllDeterministic = false
		}
	}

	if formatter.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result, opts.Verbose)
}

// replayRun recompiles a run's workflow and re-runs it in memory. Load
// and build failures make the run non-deterministic rather than failing
// the command: the recorded document has changed since the run.
func replayRun(ctx context.Context, opts *ReplayOptions, st *store.Store, run store.Run) (ReplayRunResult, error) {
	state, err := st.GetRunState(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}
	out := ReplayRunResult{
		RunID:         run.ID,
		Workflow:      run.Workflow,
		Status:        run.Status,
		Events:        len(state.Notifications),
		Deterministic: true,
	}

	switch run.Status {
	case store.StatusRunning, store.StatusCancelled:
		out.Skipped = fmt.Sprintf("run %s", run.Status)
		return out, nil
	}

	fail := func(format string, args ...any) (ReplayRunResult, error) {
		out.Deterministic = false
		out.Diff = fmt.Sprintf(format, args...)
		return out, nil
	}

	res, errs := loadWorkflow(opts.RootOptions, run.Workflow, loader.LoadModeFailFast)
	if len(errs) > 0 {
		return fail("workflow no longer loads: %v", errs[0])
	}
	f, err := compiler.Build(res.Workflow, compiler.WithLogger(opts.logger()))
	if err != nil {
		return fail("workflow no longer builds: %v", err)
	}
	hash, err := ir.Hash(f)
	if err != nil {
		return ReplayRunResult{}, err
	}
	out.HashMatch = hash == run.FragmentHash
	if !out.HashMatch {
		return fail("fragment hash %s, recorded %s", hash, run.FragmentHash)
	}

	// A failed run without a terminal notification was stopped by its
	// quota after recording exactly the allowed values. Any other run
	// terminated on its own within its quota.
	maxValues := 0
	if run.Status == store.StatusFailed && !state.Terminated {
		maxValues = state.Values
	}

	replayed, _ := engine.Run(ctx, f,
		engine.WithRunIDs(engine.NewFixedGenerator(run.ID)),
		engine.WithClock(engine.NewClock()),
		engine.WithMaxValues(maxValues),
		engine.WithLogger(opts.logger()),
	)
	if replayed == nil {
		return fail("workflow no longer instantiates")
	}

	if line, ok := firstDiff(state.Notifications, replayed.Notifications()); !ok {
		return fail("%s", line)
	}
	return out, nil
}

// firstDiff compares two traces line by line in their printed form and
// returns the first difference.
func firstDiff(recorded, replayed []store.Notification) (string, bool) {
	for i := 0; i < len(recorded) || i < len(replayed); i++ {
		var a, b string
		if i < len(recorded) {
			a = engine.FormatNotifications(recorded[i : i+1])
		}
		if i < len(replayed) {
			b = engine.FormatNotifications(replayed[i : i+1])
		}
		if a != b {
			return fmt.Sprintf("event %d: recorded %q, replayed %q", i+1, trimNewline(a), trimNewline(b)), false
		}
	}
	return "", true
}

func trimNewline(s string) string {
	if n := len(s); n > 0 && s[n-1] == '\n' {
		return s[:n-1]
	}
	return s
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(formatter *OutputFormatter, result ReplayResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.AllDeterministic {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    "E_DETERMINISM",
			Message: "determinism verification failed",
		}
	}

	if err := formatter.JSON(response); err != nil {
		return err
	}

	if !result.AllDeterministic {
		// Determinism failure = exit code 1
		return NewExitError(ExitFailure, "determinism verification failed")
	}
	return nil
}

// outputReplayText outputs the replay result as text.
func outputReplayText(formatter *OutputFormatter, result ReplayResult, verbose bool) error {
	w := formatter.Writer

	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d run(s)\n", result.TotalRuns)
	fmt.Fprintln(w)

	for _, run := range result.Runs {
		status := "✓"
		switch {
		case run.Skipped != "":
			status = "-"
		case !run.Deterministic:
			status = "✗"
		}

		fmt.Fprintf(w, "%s Run: %s (%s)\n", status, run.RunID, run.Status)
		if verbose {
			fmt.Fprintf(w, "  Workflow: %s\n", run.Workflow)
		}
		fmt.Fprintf(w, "  Events: %d\n", run.Events)
		if run.Skipped != "" {
			fmt.Fprintf(w, "  Skipped: %s\n", run.Skipped)
		}
		if !run.Deterministic {
			fmt.Fprintf(w, "  Warning: %s\n", run.Diff)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintln(w, "✓ All runs verified deterministic")
		return nil
	}

	fmt.Fprintln(w, "✗ Determinism verification failed")
	// Determinism failure = exit code 1
	return NewExitError(ExitFailure, "determinism verification failed")
}
