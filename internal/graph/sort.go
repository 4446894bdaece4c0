package graph

import (
	"slices"
)

// Components partitions the graph into weakly connected components. Nodes
// within a component and the components themselves are ordered by
// Identity.
func (g *Graph[V]) Components() [][]*Node[V] {
	nodes := slices.SortedStableFunc(slices.Values(g.nodes), compareNodes[V])
	parent := make(map[*Node[V]]*Node[V], len(g.nodes))
	var find func(*Node[V]) *Node[V]
	find = func(n *Node[V]) *Node[V] {
		for parent[n] != n {
			parent[n] = parent[parent[n]]
			n = parent[n]
		}
		return n
	}
	union := func(a, b *Node[V]) {
		ra, rb := find(a), find(b)
		if ra == rb {
			return
		}
		if compareNodes(rb, ra) < 0 {
			ra, rb = rb, ra
		}
		parent[rb] = ra
	}
	for _, n := range nodes {
		parent[n] = n
	}
	for _, n := range nodes {
		for _, e := range n.Successors {
			if _, ok := parent[e.Target]; ok {
				union(n, e.Target)
			}
		}
	}

	byRoot := make(map[*Node[V]]int)
	var out [][]*Node[V]
	for _, n := range nodes {
		root := find(n)
		idx, ok := byRoot[root]
		if !ok {
			idx = len(out)
			byRoot[root] = idx
			out = append(out, nil)
		}
		out[idx] = append(out[idx], n)
	}
	return out
}

// TopologicalSort orders every weakly connected component so that each
// node follows all of its predecessors. Among nodes that are ready at the
// same time, the one with the least Identity goes first.
//
// If the graph has a cycle, a *CycleError describing one cycle is returned.
func (g *Graph[V]) TopologicalSort() ([][]*Node[V], error) {
	components := g.Components()
	out := make([][]*Node[V], 0, len(components))
	for _, component := range components {
		order, err := sortComponent(component)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	return out, nil
}

func sortComponent[V any](component []*Node[V]) ([]*Node[V], error) {
	indeg := make(map[*Node[V]]int, len(component))
	for _, n := range component {
		indeg[n] += 0
		for _, e := range n.Successors {
			indeg[e.Target]++
		}
	}

	var ready []*Node[V]
	for _, n := range component {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}

	order := make([]*Node[V], 0, len(component))
	for len(ready) > 0 {
		n := ready[0]
		ready = ready[1:]
		order = append(order, n)
		for _, e := range n.Successors {
			indeg[e.Target]--
			if indeg[e.Target] == 0 {
				pos, _ := slices.BinarySearchFunc(ready, e.Target, compareNodes[V])
				ready = slices.Insert(ready, pos, e.Target)
			}
		}
	}

	if len(order) != len(component) {
		return nil, &CycleError[V]{Path: findCycle(component)}
	}
	return order, nil
}

// FindCycle returns one cycle of the graph as a closed path, or nil if the
// graph is acyclic.
func (g *Graph[V]) FindCycle() []*Node[V] {
	return findCycle(g.nodes)
}

// findCycle runs Tarjan's strongly connected components algorithm over
// nodes and reconstructs a path through the first non-trivial component.
func findCycle[V any](nodes []*Node[V]) []*Node[V] {
	var (
		index   = 0
		stack   []*Node[V]
		indices = make(map[*Node[V]]int)
		lowlink = make(map[*Node[V]]int)
		onStack = make(map[*Node[V]]bool)
		found   []*Node[V]
	)

	var strongConnect func(*Node[V])
	strongConnect = func(v *Node[V]) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, e := range v.Successors {
			w := e.Target
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []*Node[V]
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			if found == nil && (len(scc) > 1 || hasSelfLoop(scc[0])) {
				found = cyclePath(scc)
			}
		}
	}

	for _, n := range nodes {
		if _, visited := indices[n]; !visited {
			strongConnect(n)
		}
	}
	return found
}

func hasSelfLoop[V any](n *Node[V]) bool {
	for _, e := range n.Successors {
		if e.Target == n {
			return true
		}
	}
	return false
}

// cyclePath walks from the member of scc with the least Identity along edges
// that stay inside scc until it returns to the start.
func cyclePath[V any](scc []*Node[V]) []*Node[V] {
	members := make(map[*Node[V]]bool, len(scc))
	start := scc[0]
	for _, n := range scc {
		members[n] = true
		if compareNodes(n, start) < 0 {
			start = n
		}
	}
	if len(scc) == 1 {
		return []*Node[V]{start, start}
	}

	// Breadth-first search for the shortest path back to start.
	prev := map[*Node[V]]*Node[V]{}
	queue := []*Node[V]{start}
	visited := map[*Node[V]]bool{start: true}
	var last *Node[V]
	for len(queue) > 0 && last == nil {
		n := queue[0]
		queue = queue[1:]
		for _, e := range n.Successors {
			w := e.Target
			if !members[w] {
				continue
			}
			if w == start {
				last = n
				break
			}
			if !visited[w] {
				visited[w] = true
				prev[w] = n
				queue = append(queue, w)
			}
		}
	}

	path := []*Node[V]{start}
	for n := last; n != nil && n != start; n = prev[n] {
		path = append(path, n)
	}
	slices.Reverse(path[1:])
	return append(path, start)
}
