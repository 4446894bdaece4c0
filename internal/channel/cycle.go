package channel

import (
	"fmt"

	"github.com/roach88/rxflow/internal/expr"
)

// FindCycle looks for a channel link whose subscriber transitively feeds
// its own publisher, so that the ordering edge from publisher to
// subscriber closes a cycle. Subscribers escalated out of nested hosts are
// checked at the host. It returns a CHANNEL_CYCLE error attributed to the
// chain of nodes leading to the subscriber, or nil when no link closes a
// cycle; other cycles are left to the caller.
func FindCycle(w *expr.Workflow) error {
	links, err := FindLinks(w)
	if err != nil {
		return err
	}
	for _, l := range links {
		if !l.Resolved() {
			continue
		}
		if l.Workflow.Reachable(l.Subscriber.Node, l.Publisher.Node) {
			return cycleError(l.Name, l.Subscriber)
		}
	}
	return nil
}

func cycleError(name string, e *Element) error {
	msg := fmt.Sprintf("channel '%s' is defined in terms of itself", name)
	chain := e.Chain()
	var err error
	for i := len(chain) - 1; i >= 0; i-- {
		err = &expr.BuildError{Code: expr.CodeChannelCycle, Message: msg, Node: chain[i].Value, Err: err}
	}
	return err
}
