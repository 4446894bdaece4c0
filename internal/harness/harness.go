package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/rxflow/internal/compiler"
	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/loader"
	"github.com/roach88/rxflow/internal/ops"
	"github.com/roach88/rxflow/internal/overload"
	"github.com/roach88/rxflow/internal/store"
	"github.com/roach88/rxflow/internal/testutil"
)

// DefaultTimeout bounds a single scenario run.
const DefaultTimeout = 10 * time.Second

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and run ID.
type Harness struct {
	table   *overload.Table
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithTable sets the operator table workflows are resolved against.
// Default: ops.Default().
func WithTable(table *overload.Table) Option {
	return func(h *Harness) { h.table = table }
}

// WithTimeout bounds each scenario run. Default: DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(h *Harness) { h.timeout = d }
}

// WithLogger sets the logger passed to the loader and engine.
// Default: discard.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) { h.logger = logger }
}

// New creates a harness.
func New(opts ...Option) *Harness {
	h := &Harness{
		table:   ops.Default(),
		timeout: DefaultTimeout,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run executes a scenario with a default harness.
func Run(scenario *Scenario) (*Result, error) {
	return New().Run(scenario)
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
//  1. Load the workflow document
//  2. Compile it
//  3. Run the fragment with a fixed run ID and a clock starting at 0
//  4. Read the stored trace back
//  5. Check the expected outcome and evaluate assertions
//
// Failures of the workflow itself (validation, build and run errors) are
// reported in the Result; the returned error is reserved for harness
// failures such as an unusable store.
func (h *Harness) Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	result := NewResult()
	logger := h.logger.With("scenario", scenario.Name)

	runErr := h.execute(ctx, st, scenario, result, logger)
	if runErr != nil {
		code := ErrorCode(runErr)
		if code == "" {
			return nil, runErr
		}
		result.ErrorCode = code
		logger.Debug("scenario run failed", "code", code, "error", runErr)
	}

	checkExpect(result, scenario.Expect, runErr)

	actx := &AssertionContext{Store: st, Ctx: context.Background()}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}

	logger.Info("scenario finished", "pass", result.Pass, "events", len(result.Trace))
	return result, nil
}

// execute loads, compiles and runs the scenario's workflow. The trace is
// read back from the store even when the run fails.
func (h *Harness) execute(ctx context.Context, st *store.Store, scenario *Scenario, result *Result, logger *slog.Logger) error {
	ld := loader.New(h.table, loader.WithLogger(logger))
	res, errs := ld.LoadFile(scenario.Workflow)
	if len(errs) > 0 {
		return errs[0]
	}

	f, err := compiler.Build(res.Workflow, compiler.WithLogger(logger))
	if err != nil {
		return err
	}

	runID := scenario.RunID
	if runID == "" {
		runID = testutil.DefaultRunID
	}
	maxValues := engine.DefaultMaxValues
	if scenario.MaxValues > 0 {
		maxValues = scenario.MaxValues
	}

	run, runErr := engine.Run(ctx, f,
		engine.WithStore(st),
		engine.WithRunIDs(testutil.NewFixedRunIDGenerator(runID)),
		engine.WithClock(testutil.NewDeterministicClock()),
		engine.WithMaxValues(maxValues),
		engine.WithWorkflow(scenario.Name),
		engine.WithLogger(logger),
	)
	if run == nil {
		return runErr
	}
	result.RunID = run.RunID
	result.Status = string(run.Status)

	ns, err := st.ReadNotifications(context.Background(), run.RunID)
	if err != nil {
		return fmt.Errorf("read trace: %w", err)
	}
	for _, n := range ns {
		result.AddNotification(n)
	}
	return runErr
}

// ErrorCode returns the code of a workflow failure: the loader's error
// code, the code of the innermost build error, or the engine's runtime
// code. It returns "" for errors that carry none.
func ErrorCode(err error) string {
	var ve loader.ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	var le *loader.LoadError
	if errors.As(err, &le) {
		return le.Code
	}
	if be := expr.RootCause(err); be != nil {
		return string(be.Code)
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return string(re.Code)
	}
	return ""
}

// checkExpect compares the run against the scenario's expected outcome.
// Without an Expect clause any workflow error fails the scenario.
func checkExpect(result *Result, expect *Expect, runErr error) {
	if expect == nil || expect.Error == "" {
		if runErr != nil && (expect == nil || store.Status(expect.Status) != store.StatusFailed) {
			result.AddError(fmt.Sprintf("unexpected error: %v", runErr))
		}
	} else if result.ErrorCode != expect.Error {
		result.AddError(fmt.Sprintf("expected error %s, got %q", expect.Error, result.ErrorCode))
	}
	if expect == nil {
		return
	}

	if expect.Status != "" && result.Status != expect.Status {
		result.AddError(fmt.Sprintf("expected status %s, got %q", expect.Status, result.Status))
	}

	if expect.Values != nil {
		want := encodeAll(expect.Values)
		got := result.Values()
		if !slices.Equal(want, got) {
			result.AddError(fmt.Sprintf("expected values %v, got %v", want, got))
		}
	}
}

func encodeAll(vs []any) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = store.EncodeValue(v)
	}
	return out
}
