package compiler

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/rxflow/internal/channel"
	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/graph"
)

// cycleError converts a sort failure into a CYCLE build error naming the
// nodes of one cycle.
func cycleError(err error) error {
	var ce *graph.CycleError[expr.Builder]
	if !errors.As(err, &ce) || len(ce.Path) == 0 {
		return &expr.BuildError{Code: expr.CodeCycle, Message: "the workflow contains unspecified cyclical build dependencies", Err: err}
	}
	return &expr.BuildError{
		Code:    expr.CodeCycle,
		Message: "the workflow contains cyclical build dependencies: " + pathString(ce.Path),
		Node:    ce.Path[0].Value,
	}
}

func pathString(path []*expr.Node) string {
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = expr.Describe(n.Value)
	}
	return strings.Join(parts, " → ")
}

// Diagnostic is a non-fatal finding about a workflow.
type Diagnostic struct {
	Path    []string `json:"path,omitempty"`
	Message string   `json:"message"`
	Level   string   `json:"level"` // "warning" or "info"
}

// Analyze inspects w without building it. Cycles are reported as
// warnings with their node path; channel subscriptions without a
// publisher are reported as info, since they compile to no-ops.
//
// An error is returned only when the channel scan itself fails.
func Analyze(w *expr.Workflow) ([]Diagnostic, error) {
	diags := []Diagnostic{}

	release, err := channel.Apply(w)
	defer release()
	if err != nil {
		return nil, err
	}

	if path := w.FindCycle(); path != nil {
		d := Diagnostic{Level: "warning", Path: describeNodes(path)}
		if cerr := channel.FindCycle(w); cerr != nil {
			d.Message = expr.RootCause(cerr).Message
			d.Path = nil
			for _, b := range expr.CallStack(cerr) {
				d.Path = append(d.Path, expr.Describe(b))
			}
		} else {
			d.Message = fmt.Sprintf("cycle detected: %s", pathString(path))
		}
		diags = append(diags, d)
	}

	links, err := channel.FindLinks(w)
	if err != nil {
		return nil, err
	}
	for _, l := range links {
		if l.Resolved() {
			continue
		}
		diags = append(diags, Diagnostic{
			Level:   "info",
			Message: fmt.Sprintf("channel '%s' has no publisher; its subscriber compiles to a no-op", l.Name),
			Path:    describeNodes(l.Subscriber.Chain()),
		})
	}
	return diags, nil
}

func describeNodes(nodes []*expr.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = expr.Describe(n.Value)
	}
	return out
}
