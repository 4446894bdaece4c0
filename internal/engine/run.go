package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/store"
	"github.com/roach88/rxflow/internal/stream"
)

// Event is one stamped notification of a run's trace.
type Event struct {
	Seq   int64
	Kind  store.Kind
	Value any
	Err   error
}

// Result is the outcome of one run.
type Result struct {
	RunID  string
	Status store.Status
	Trace  []Event
	Err    error
}

// Values returns the values of the trace's next notifications in order.
func (r *Result) Values() []any {
	values := []any{}
	for _, ev := range r.Trace {
		if ev.Kind == store.KindNext {
			values = append(values, ev.Value)
		}
	}
	return values
}

// Notifications converts the trace to its stored form.
func (r *Result) Notifications() []store.Notification {
	ns := make([]store.Notification, len(r.Trace))
	for i, ev := range r.Trace {
		ns[i] = toNotification(r.RunID, ev)
	}
	return ns
}

func toNotification(runID string, ev Event) store.Notification {
	n := store.Notification{RunID: runID, Seq: ev.Seq, Kind: ev.Kind, Value: "null"}
	switch ev.Kind {
	case store.KindNext:
		n.Value = store.EncodeValue(ev.Value)
	case store.KindError:
		n.Error = ev.Err.Error()
	}
	return n
}

// Option configures Run.
type Option func(*runner)

// WithStore persists the run and its trace.
func WithStore(s *store.Store) Option {
	return func(r *runner) { r.store = s }
}

// WithRunIDs sets the run ID generator. Default: UUIDv7Generator.
func WithRunIDs(gen RunIDGenerator) Option {
	return func(r *runner) { r.ids = gen }
}

// WithClock sets the logical clock. Default: a fresh clock starting at 0.
func WithClock(c Sequencer) Option {
	return func(r *runner) { r.clock = c }
}

// WithMaxValues sets the value quota. Default: DefaultMaxValues. Zero
// disables the quota.
func WithMaxValues(n int) Option {
	return func(r *runner) { r.maxValues = n }
}

// WithWorkflow names the document the fragment was compiled from; it is
// recorded on the stored run.
func WithWorkflow(name string) Option {
	return func(r *runner) { r.workflow = name }
}

// WithLogger sets the logger. Default: discard.
func WithLogger(l *slog.Logger) Option {
	return func(r *runner) { r.logger = l }
}

type runner struct {
	store     *store.Store
	ids       RunIDGenerator
	clock     Sequencer
	maxValues int
	workflow  string
	logger    *slog.Logger
}

// Run instantiates f, subscribes to it and records every notification
// until the pipeline terminates, the value quota is exceeded or ctx is
// done. The subscription is disposed before Run returns.
//
// The returned error is nil only when the pipeline completed. A pipeline
// error is returned as ErrCodeStreamFailed wrapping the original error;
// the Result is non-nil whenever the run was started.
func Run(ctx context.Context, f ir.Fragment, opts ...Option) (*Result, error) {
	r := &runner{
		ids:       UUIDv7Generator{},
		maxValues: DefaultMaxValues,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.clock == nil {
		r.clock = NewClock()
	}

	source, err := Instantiate(f)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: r.ids.Generate(), Status: store.StatusRunning}
	logger := r.logger.With("run_id", res.RunID)

	if r.store != nil {
		hash, err := ir.Hash(f)
		if err != nil {
			return nil, fmt.Errorf("hash fragment: %w", err)
		}
		run := store.Run{
			ID:            res.RunID,
			Workflow:      r.workflow,
			FragmentHash:  hash,
			EngineVersion: ir.EngineVersion,
		}
		if err := r.store.WriteRun(ctx, run); err != nil {
			return nil, &RuntimeError{Code: ErrCodeStore, Message: "record run", RunID: res.RunID, Err: err}
		}
	}

	logger.Info("run started", "workflow", r.workflow)
	runErr := r.loop(ctx, source, res, logger)
	if r.store != nil {
		if err := r.persist(res); err != nil && runErr == nil {
			runErr = err
		}
	}
	logger.Info("run finished", "status", res.Status, "events", len(res.Trace))
	return res, runErr
}

// loop is the single writer: notifications are pushed by the pipeline
// and stamped here in arrival order.
func (r *runner) loop(ctx context.Context, source stream.Observable, res *Result, logger *slog.Logger) error {
	queue := newEventQueue()
	defer queue.close()

	sub := source.Subscribe(stream.Guard(stream.ObserverFuncs{
		Next:      func(v any) { queue.push(event{kind: store.KindNext, value: v}) },
		Error:     func(err error) { queue.push(event{kind: store.KindError, err: err}) },
		Completed: func() { queue.push(event{kind: store.KindCompleted}) },
	}))
	defer sub.Dispose()

	quota := NewQuotaEnforcer(r.maxValues)
	var batch []event
	for {
		batch = queue.drain(batch)
		for _, ev := range batch {
			if done, err := r.record(ev, quota, res, logger); done {
				return err
			}
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-ctx.Done():
			res.Status = store.StatusCancelled
			res.Err = ctx.Err()
			logger.Warn("run cancelled", "error", ctx.Err())
			return &RuntimeError{Code: ErrCodeCancelled, Message: "run cancelled", RunID: res.RunID, Err: ctx.Err()}
		case <-queue.wait():
		}
	}
}

// record stamps ev into the trace. It reports whether the run is over.
func (r *runner) record(ev event, quota *QuotaEnforcer, res *Result, logger *slog.Logger) (bool, error) {
	if ev.kind == store.KindNext {
		if err := quota.Check(res.RunID); err != nil {
			res.Status = store.StatusFailed
			res.Err = err
			logger.Warn("run exceeded quota", "max_values", quota.MaxValues())
			qe := NewQuotaError(res.RunID, quota.Current(), quota.MaxValues())
			qe.Err = err
			return true, qe
		}
	}

	stamped := Event{Seq: r.clock.Next(), Kind: ev.kind, Value: ev.value, Err: ev.err}
	res.Trace = append(res.Trace, stamped)
	logger.Debug("notification", "seq", stamped.Seq, "kind", stamped.Kind)

	switch ev.kind {
	case store.KindCompleted:
		res.Status = store.StatusCompleted
		return true, nil
	case store.KindError:
		res.Status = store.StatusFailed
		res.Err = ev.err
		return true, &RuntimeError{Code: ErrCodeStreamFailed, Message: "pipeline failed", RunID: res.RunID, Err: ev.err}
	}
	return false, nil
}

// persist writes the trace and the terminal status. It uses a fresh
// context so a cancelled run is still recorded.
func (r *runner) persist(res *Result) error {
	ctx := context.Background()
	if err := r.store.WriteTrace(ctx, res.Notifications()); err != nil {
		return &RuntimeError{Code: ErrCodeStore, Message: "record trace", RunID: res.RunID, Err: err}
	}
	var lastSeq int64
	if n := len(res.Trace); n > 0 {
		lastSeq = res.Trace[n-1].Seq
	}
	msg := ""
	if res.Err != nil {
		msg = res.Err.Error()
	}
	if err := r.store.FinishRun(ctx, res.RunID, res.Status, msg, lastSeq); err != nil {
		return &RuntimeError{Code: ErrCodeStore, Message: "record run status", RunID: res.RunID, Err: err}
	}
	return nil
}

// Collect runs f without recording and returns its values. It is the
// shortest path from a compiled fragment to its output.
func Collect(ctx context.Context, f ir.Fragment) ([]any, error) {
	source, err := Instantiate(f)
	if err != nil {
		return nil, err
	}
	return stream.Collect(ctx, source)
}

// Unwrap returns the pipeline error carried by a stream failure, or err.
func Unwrap(err error) error {
	var re *RuntimeError
	if errors.As(err, &re) && re.Code == ErrCodeStreamFailed && re.Err != nil {
		return re.Err
	}
	return err
}
