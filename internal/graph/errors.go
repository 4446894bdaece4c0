package graph

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNodeNotFound is returned when a node does not belong to the graph.
var ErrNodeNotFound = errors.New("node not found in graph")

// ErrCycle is matched by every CycleError.
var ErrCycle = errors.New("graph contains a cycle")

// CycleError reports a cycle found while ordering a graph. Path lists the
// nodes of one cycle in edge order, starting and ending with the same node.
type CycleError[V any] struct {
	Path []*Node[V]
}

// Error implements the error interface.
func (e *CycleError[V]) Error() string {
	parts := make([]string, len(e.Path))
	for i, n := range e.Path {
		parts[i] = fmt.Sprint(n.Value)
	}
	return fmt.Sprintf("graph contains a cycle: %s", strings.Join(parts, " → "))
}

// Is makes errors.Is(err, ErrCycle) match.
func (e *CycleError[V]) Is(target error) bool {
	return target == ErrCycle
}
