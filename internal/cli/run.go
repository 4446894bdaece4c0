package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/rxflow/internal/compiler"
	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/loader"
	"github.com/roach88/rxflow/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	Timeout   time.Duration
	MaxValues int
	RunID     string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil, RunID is used when set, otherwise UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunResult is the outcome of the run command.
type RunResult struct {
	RunID  string       `json:"run_id"`
	Status store.Status `json:"status"`
	Values []any        `json:"values"`
	Error  *CLIError    `json:"error,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <workflow>",
		Short: "Compile and run a workflow",
		Long: `Compile a workflow and run its pipeline to termination.

Every notification is stamped with a logical sequence number and
recorded with the run in a SQLite database. Without --db the run is kept
in memory and only its values are printed.

The run stops when the pipeline completes or fails, when it emits more
than --max-values values, after --timeout, or on Ctrl-C.

Example:
  rxflow run ./sum.yaml
  rxflow run --db ./runs.db --max-values 100 ./ticker.yaml
  rxflow run --db ./runs.db --run-id nightly-1 ./report.cue --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorkflow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (default from config, else in-memory)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "stop the run after this long (default from config)")
	cmd.Flags().IntVar(&opts.MaxValues, "max-values", -1, "fail the run after this many values; 0 disables (default from config)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "record the run under this ID instead of a generated one")

	return cmd
}

// settings resolves flags against the loaded configuration.
func (o *RunOptions) settings() (db string, timeout time.Duration, maxValues int) {
	db = o.Database
	if db == "" {
		db = o.Config.DB
	}
	if db == "" {
		db = ":memory:"
	}
	timeout = o.Timeout
	if timeout <= 0 {
		timeout = o.Config.Timeout
	}
	maxValues = o.MaxValues
	if maxValues < 0 {
		maxValues = o.Config.MaxValues
	}
	return db, timeout, maxValues
}

func runWorkflow(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger()

	res, errs := loadWorkflow(opts.RootOptions, path, loader.LoadModeFailFast)
	if len(errs) > 0 {
		return outputCompileErrors(formatter, describeErrors(errs))
	}
	f, err := compiler.Build(res.Workflow, compiler.WithLogger(logger))
	if err != nil {
		return outputCompileErrors(formatter, []CLIError{describeError(err)})
	}

	db, timeout, maxValues := opts.settings()
	logger.Debug("opening database", "path", db)
	st, err := store.Open(db)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	ids := opts.RunIDs
	if ids == nil && opts.RunID != "" {
		ids = engine.NewFixedGenerator(opts.RunID)
	}
	if ids == nil {
		ids = engine.UUIDv7Generator{}
	}

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(parentCtx, timeout)
	} else {
		ctx, cancel = context.WithCancel(parentCtx)
	}
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan) // Prevent signal handler leak

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, cancelling run", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	result, runErr := engine.Run(ctx, f,
		engine.WithStore(st),
		engine.WithRunIDs(ids),
		engine.WithMaxValues(maxValues),
		engine.WithWorkflow(res.Path),
		engine.WithLogger(logger),
	)
	if result == nil {
		return WrapExitError(ExitCommandError, "failed to start run", runErr)
	}

	out := RunResult{RunID: result.RunID, Status: result.Status, Values: result.Values()}
	if runErr != nil {
		e := describeError(runErr)
		if errors.Is(runErr, context.DeadlineExceeded) {
			e.Message = fmt.Sprintf("run timed out after %s", timeout)
		}
		out.Error = &e
	}
	return outputRunResult(formatter, out)
}

// outputRunResult prints the values and status of a run. A run that did
// not complete exits with ExitFailure.
func outputRunResult(formatter *OutputFormatter, result RunResult) error {
	if formatter.Format == "json" {
		status := "ok"
		if result.Error != nil {
			status = "error"
		}
		if err := formatter.JSON(CLIResponse{Status: status, Data: result, Error: result.Error, RunID: result.RunID}); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, v := range result.Values {
			fmt.Fprintln(w, store.EncodeValue(v))
		}
		if result.Error != nil {
			fmt.Fprintf(w, "✗ Run %s %s: [%s] %s\n", result.RunID, result.Status, result.Error.Code, result.Error.Message)
		} else {
			fmt.Fprintf(w, "✓ Run %s %s (%d value(s))\n", result.RunID, result.Status, len(result.Values))
		}
	}

	if result.Error != nil {
		return NewExitError(ExitFailure, fmt.Sprintf("run %s", result.Status))
	}
	return nil
}
