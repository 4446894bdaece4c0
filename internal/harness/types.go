package harness

import (
	"github.com/roach88/rxflow/internal/store"
)

// TraceEvent is one stored notification of a scenario run. Value is the
// canonical JSON encoding of the emitted value.
type TraceEvent struct {
	Seq   int64  `json:"seq"`
	Kind  string `json:"kind"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// RunID and Status describe the engine run; both are empty when the
	// workflow failed to build.
	RunID  string `json:"run_id,omitempty"`
	Status string `json:"status,omitempty"`

	// ErrorCode is the build or run error code, if any.
	ErrorCode string `json:"error_code,omitempty"`

	// Trace is the run's notifications in seq order.
	Trace []TraceEvent `json:"trace"`

	// Errors lists the failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result with an empty trace.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddNotification appends a stored notification to the trace.
func (r *Result) AddNotification(n store.Notification) {
	ev := TraceEvent{Seq: n.Seq, Kind: string(n.Kind), Error: n.Error}
	if n.Kind == store.KindNext {
		ev.Value = n.Value
	}
	r.Trace = append(r.Trace, ev)
}

// Values returns the encoded values of the next notifications.
func (r *Result) Values() []string {
	values := []string{}
	for _, ev := range r.Trace {
		if ev.Kind == string(store.KindNext) {
			values = append(values, ev.Value)
		}
	}
	return values
}
