// Package graph provides the directed graph that workflows are built on.
//
// Graph is generic over the node value so that the same structure carries
// node descriptors in the compiler and plain values in tests. Nodes keep
// their insertion order; every traversal and the topological sort derive
// their ordering from it, so results are deterministic for a given
// construction sequence.
//
// Edges carry the argument slot they feed and whether they are an extra
// build-ordering dependency (added temporarily for named channels) rather
// than a data edge.
package graph
