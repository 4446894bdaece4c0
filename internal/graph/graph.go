package graph

import (
	"cmp"
	"slices"
)

// Edge is an outgoing connection from a node.
type Edge[V any] struct {
	// Target is the successor node.
	Target *Node[V]
	// Index is the argument slot of Target this edge feeds.
	Index int
	// Dependency marks an ordering-only edge that carries no data.
	Dependency bool
}

// Node is a vertex holding a value and its outgoing edges.
type Node[V any] struct {
	Value      V
	Successors []Edge[V]

	graph *Graph[V]
	order int
}

// Order returns the node's instance number: its insertion position unless
// it was added with AddWithInstance.
func (n *Node[V]) Order() int { return n.order }

// Decorator is implemented by node values that wrap another value.
type Decorator interface {
	// DecoratorDepth counts the wrappers around the innermost value.
	DecoratorDepth() int
}

// Identity orders nodes deterministically. It never decides behavior.
type Identity struct {
	Instance int
	Depth    int
}

// Compare orders by instance number, then by decorator depth with the
// shallower node first.
func (a Identity) Compare(b Identity) int {
	if c := cmp.Compare(a.Instance, b.Instance); c != 0 {
		return c
	}
	return cmp.Compare(a.Depth, b.Depth)
}

// Identity returns the node's instance number and the decorator depth of
// its value.
func (n *Node[V]) Identity() Identity {
	id := Identity{Instance: n.order}
	if d, ok := any(n.Value).(Decorator); ok {
		id.Depth = d.DecoratorDepth()
	}
	return id
}

func compareNodes[V any](a, b *Node[V]) int {
	return a.Identity().Compare(b.Identity())
}

// Graph is a directed graph with insertion-ordered nodes.
type Graph[V any] struct {
	nodes []*Node[V]
	next  int
}

// New returns an empty graph.
func New[V any]() *Graph[V] {
	return &Graph[V]{}
}

// Add appends a node holding value.
func (g *Graph[V]) Add(value V) *Node[V] {
	n := &Node[V]{Value: value, graph: g, order: g.next}
	g.next++
	g.nodes = append(g.nodes, n)
	return n
}

// AddWithInstance appends a node holding value under the given instance
// number, such as the number of the node it copies from another graph.
// Later Add calls number past it.
func (g *Graph[V]) AddWithInstance(value V, instance int) *Node[V] {
	n := &Node[V]{Value: value, graph: g, order: instance}
	g.next = max(g.next, instance+1)
	g.nodes = append(g.nodes, n)
	return n
}

// Nodes returns the nodes in insertion order.
func (g *Graph[V]) Nodes() []*Node[V] {
	return slices.Clone(g.nodes)
}

// Len returns the number of nodes.
func (g *Graph[V]) Len() int { return len(g.nodes) }

// Contains reports whether n belongs to g.
func (g *Graph[V]) Contains(n *Node[V]) bool {
	return n != nil && n.graph == g
}

// Find returns the first node whose value satisfies match.
func (g *Graph[V]) Find(match func(V) bool) (*Node[V], bool) {
	for _, n := range g.nodes {
		if match(n.Value) {
			return n, true
		}
	}
	return nil, false
}

// Connect adds a data edge from -> to feeding argument slot index.
func (g *Graph[V]) Connect(from, to *Node[V], index int) (Edge[V], error) {
	return g.addEdge(from, Edge[V]{Target: to, Index: index})
}

// Depend adds an ordering-only edge from -> to.
func (g *Graph[V]) Depend(from, to *Node[V]) (Edge[V], error) {
	return g.addEdge(from, Edge[V]{Target: to, Dependency: true})
}

func (g *Graph[V]) addEdge(from *Node[V], e Edge[V]) (Edge[V], error) {
	if !g.Contains(from) || !g.Contains(e.Target) {
		return Edge[V]{}, ErrNodeNotFound
	}
	from.Successors = append(from.Successors, e)
	return e, nil
}

// RemoveEdge removes the last edge from -> e.Target matching e. It reports
// whether an edge was removed.
func (g *Graph[V]) RemoveEdge(from *Node[V], e Edge[V]) bool {
	if !g.Contains(from) {
		return false
	}
	for i := len(from.Successors) - 1; i >= 0; i-- {
		s := from.Successors[i]
		if s.Target == e.Target && s.Index == e.Index && s.Dependency == e.Dependency {
			from.Successors = slices.Delete(from.Successors, i, i+1)
			return true
		}
	}
	return false
}

// Remove deletes n and every edge that touches it.
func (g *Graph[V]) Remove(n *Node[V]) bool {
	idx := slices.Index(g.nodes, n)
	if idx < 0 {
		return false
	}
	g.nodes = slices.Delete(g.nodes, idx, idx+1)
	for _, other := range g.nodes {
		other.Successors = slices.DeleteFunc(other.Successors, func(e Edge[V]) bool {
			return e.Target == n
		})
	}
	n.graph = nil
	return true
}

// Predecessors returns the edges entering n, each paired with its source,
// in node insertion order.
func (g *Graph[V]) Predecessors(n *Node[V]) []Incoming[V] {
	var out []Incoming[V]
	for _, src := range g.nodes {
		for _, e := range src.Successors {
			if e.Target == n {
				out = append(out, Incoming[V]{Source: src, Edge: e})
			}
		}
	}
	return out
}

// Incoming pairs an edge with the node it leaves.
type Incoming[V any] struct {
	Source *Node[V]
	Edge   Edge[V]
}

// Reachable reports whether to can be reached from from by following
// successor edges. A node reaches itself only through a cycle.
func (g *Graph[V]) Reachable(from, to *Node[V]) bool {
	visited := make(map[*Node[V]]bool)
	stack := make([]*Node[V], 0, len(from.Successors))
	for _, e := range from.Successors {
		stack = append(stack, e.Target)
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == to {
			return true
		}
		if visited[n] {
			continue
		}
		visited[n] = true
		for _, e := range n.Successors {
			stack = append(stack, e.Target)
		}
	}
	return false
}

// Descendants returns every node reachable from n, in depth-first
// pre-order.
func (g *Graph[V]) Descendants(n *Node[V]) []*Node[V] {
	var out []*Node[V]
	visited := map[*Node[V]]bool{n: true}
	var visit func(*Node[V])
	visit = func(x *Node[V]) {
		for _, e := range x.Successors {
			if !visited[e.Target] {
				visited[e.Target] = true
				out = append(out, e.Target)
				visit(e.Target)
			}
		}
	}
	visit(n)
	return out
}
