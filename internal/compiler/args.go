package compiler

import (
	"slices"

	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/ir"
)

// argList collects the fragments routed to one node, keyed by slot.
type argList struct {
	slots map[int][]ir.Fragment
	// empty records that a no-op fragment was routed here.
	empty bool
}

func (l *argList) add(target *expr.Node, index int, f ir.Fragment) error {
	if l.slots == nil {
		l.slots = make(map[int][]ir.Fragment)
	}
	if _, taken := l.slots[index]; taken && !expr.IsDisabled(target.Value) {
		return expr.Errorf(expr.CodeDuplicateSlot, target.Value, "input slot %d is assigned more than once", index)
	}
	l.slots[index] = append(l.slots[index], f)
	return nil
}

// flatten returns the arguments in slot order with disabled bundles
// expanded in place.
func (l *argList) flatten() []ir.Fragment {
	if l == nil || len(l.slots) == 0 {
		return nil
	}
	indices := make([]int, 0, len(l.slots))
	for i := range l.slots {
		indices = append(indices, i)
	}
	slices.Sort(indices)
	var out []ir.Fragment
	for _, i := range indices {
		for _, f := range l.slots[i] {
			if d, ok := f.(*ir.Disabled); ok {
				out = append(out, d.Arguments...)
				continue
			}
			out = append(out, f)
		}
	}
	return out
}

// combine merges a terminal output with the dangling outputs of a graph.
// It returns nil when there is nothing to merge.
func combine(output ir.Fragment, connections []ir.Fragment) ir.Fragment {
	switch {
	case output == nil && len(connections) == 0:
		return nil
	case output == nil && len(connections) == 1:
		return connections[0]
	case len(connections) == 0:
		return output
	}
	return &ir.Output{Output: output, Connections: connections}
}
