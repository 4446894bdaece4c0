package channel

import (
	"fmt"

	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/graph"
)

type dependency struct {
	workflow *expr.Workflow
	from     *expr.Node
	edge     graph.Edge[expr.Builder]
}

// Apply adds an ordering edge from each resolved publisher to its
// subscriber so publishers are built first. The returned release func
// removes every added edge and must always be called; on error nothing is
// left applied.
func Apply(w *expr.Workflow) (release func(), err error) {
	links, err := FindLinks(w)
	if err != nil {
		return func() {}, err
	}
	var added []dependency
	release = func() {
		for i := len(added) - 1; i >= 0; i-- {
			d := added[i]
			d.workflow.RemoveEdge(d.from, d.edge)
		}
		added = nil
	}
	for _, l := range links {
		if !l.Resolved() {
			continue
		}
		e, err := l.Workflow.Depend(l.Publisher.Node, l.Subscriber.Node)
		if err != nil {
			release()
			return func() {}, fmt.Errorf("link channel %q: %w", l.Name, err)
		}
		added = append(added, dependency{workflow: l.Workflow, from: l.Publisher.Node, edge: e})
	}
	return release, nil
}
