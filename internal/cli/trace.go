package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/rxflow/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - without it, runs are listed
	Kind     string // optional - filter to one notification kind
}

// TraceEvent represents a single notification in the trace timeline.
type TraceEvent struct {
	Seq   int64  `json:"seq"`
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	RunID         string       `json:"run_id"`
	Workflow      string       `json:"workflow"`
	Status        store.Status `json:"status"`
	FragmentHash  string       `json:"fragment_hash"`
	EngineVersion string       `json:"engine_version"`
	Error         string       `json:"error,omitempty"`
	Timeline      []TraceEvent `json:"timeline"`
	Stats         TraceStats   `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	TotalEvents int   `json:"total_events"`
	Values      int   `json:"values"`
	LastSeq     int64 `json:"last_seq"`
	Terminated  bool  `json:"terminated"`
	Consistent  bool  `json:"consistent"`
}

// RunSummary is one line of the run listing.
type RunSummary struct {
	RunID    string       `json:"run_id"`
	Workflow string       `json:"workflow"`
	Status   store.Status `json:"status"`
	LastSeq  int64        `json:"last_seq"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Inspect recorded runs",
		Long: `Inspect runs recorded in a run database.

Without --run, lists every recorded run with its status. With --run,
shows the run's notification timeline in sequence order together with
summary statistics. A consistent run has a recorded last sequence number
matching its final notification.

Examples:
  rxflow trace --db ./runs.db
  rxflow trace --db ./runs.db --run nightly-1
  rxflow trace --db ./runs.db --run nightly-1 --kind error --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace")
	cmd.Flags().StringVar(&opts.Kind, "kind", "", "filter to one notification kind (next|error|completed)")

	return cmd
}

// openStore opens the run database named by flag, or the configured one.
// Trace and replay only read existing runs, so an in-memory default is
// not useful to them.
func openStore(opts *RootOptions, flag string) (*store.Store, error) {
	db := flag
	if db == "" {
		db = opts.Config.DB
	}
	if db == "" {
		return nil, NewExitError(ExitCommandError, "no database: set --db or db in the configuration")
	}
	st, err := store.Open(db)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := opts.formatter(cmd)

	switch store.Kind(opts.Kind) {
	case "", store.KindNext, store.KindError, store.KindCompleted:
	default:
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid kind %q: must be next, error or completed", opts.Kind))
	}

	st, err := openStore(opts.RootOptions, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return outputRunList(formatter, runs)
	}

	state, err := st.GetRunState(ctx, opts.RunID)
	if errors.Is(err, store.ErrRunNotFound) {
		if formatter.Format == "json" {
			_ = formatter.JSON(CLIResponse{
				Status: "error",
				Error:  &CLIError{Code: ErrCodeRunNotFound, Message: fmt.Sprintf("run not found: %s", opts.RunID)},
				RunID:  opts.RunID,
			})
		} else {
			fmt.Fprintf(formatter.Writer, "No run found: %s\n", opts.RunID)
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to get run state", err)
	}

	result := TraceResult{
		RunID:         state.Run.ID,
		Workflow:      state.Run.Workflow,
		Status:        state.Run.Status,
		FragmentHash:  state.Run.FragmentHash,
		EngineVersion: state.Run.EngineVersion,
		Error:         state.Run.Error,
		Timeline:      buildTimeline(state.Notifications, store.Kind(opts.Kind)),
		Stats: TraceStats{
			TotalEvents: len(state.Notifications),
			Values:      state.Values,
			LastSeq:     state.Run.LastSeq,
			Terminated:  state.Terminated,
			Consistent:  state.Consistent,
		},
	}

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: result, RunID: result.RunID})
	}
	return outputTraceText(formatter.Writer, result, opts.Verbose)
}

// buildTimeline converts stored notifications to timeline events. When
// kind is set, only notifications of that kind are included.
func buildTimeline(ns []store.Notification, kind store.Kind) []TraceEvent {
	timeline := []TraceEvent{}
	for _, n := range ns {
		if kind != "" && n.Kind != kind {
			continue
		}
		ev := TraceEvent{Seq: n.Seq, Kind: string(n.Kind), Error: n.Error}
		if n.Kind == store.KindNext {
			ev.Value = n.Value
		}
		timeline = append(timeline, ev)
	}
	return timeline
}

// outputRunList prints the recorded runs.
func outputRunList(formatter *OutputFormatter, runs []store.Run) error {
	summaries := make([]RunSummary, len(runs))
	for i, r := range runs {
		summaries[i] = RunSummary{RunID: r.ID, Workflow: r.Workflow, Status: r.Status, LastSeq: r.LastSeq}
	}
	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: summaries})
	}

	w := formatter.Writer
	if len(summaries) == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return nil
	}
	fmt.Fprintf(w, "%d run(s)\n\n", len(summaries))
	for _, s := range summaries {
		fmt.Fprintf(w, "  %-20s %-10s seq=%-4d %s\n", truncateID(s.RunID), s.Status, s.LastSeq, s.Workflow)
	}
	return nil
}

// outputTraceText outputs the trace result as text.
func outputTraceText(w io.Writer, result TraceResult, verbose bool) error {
	fmt.Fprintf(w, "Trace for Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Workflow: %s\n", result.Workflow)
	fmt.Fprintf(w, "Status: %s\n", result.Status)
	if result.Error != "" {
		fmt.Fprintf(w, "Error: %s\n", result.Error)
	}
	if verbose {
		fmt.Fprintf(w, "Fragment: %s\n", result.FragmentHash)
		fmt.Fprintf(w, "Engine: %s\n", result.EngineVersion)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Timeline ===")
	if len(result.Timeline) == 0 {
		fmt.Fprintln(w, "  (no events)")
	}
	for _, ev := range result.Timeline {
		switch ev.Kind {
		case string(store.KindNext):
			fmt.Fprintf(w, "  [%d] NEXT %s\n", ev.Seq, ev.Value)
		case string(store.KindError):
			fmt.Fprintf(w, "  [%d] ERROR %s\n", ev.Seq, ev.Error)
		default:
			fmt.Fprintf(w, "  [%d] COMPLETED\n", ev.Seq)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total Events: %d\n", result.Stats.TotalEvents)
	fmt.Fprintf(w, "  Values:       %d\n", result.Stats.Values)
	fmt.Fprintf(w, "  Last Seq:     %d\n", result.Stats.LastSeq)
	fmt.Fprintf(w, "  Terminated:   %v\n", result.Stats.Terminated)
	if !result.Stats.Consistent {
		fmt.Fprintln(w, "  Warning: recorded last seq does not match the trace")
	}
	return nil
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 20 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}
