// Package engine instantiates and runs compiled pipelines.
//
// Instantiate turns an ir.Fragment tree into a stream.Observable. The tree
// is checked eagerly (every placeholder must be bound by an enclosing
// Multicast, every channel reference by an enclosing ScopeBlock) and built
// lazily: multicast bodies and scope bodies are instantiated once per
// subscription, so each subscription owns its own shared subjects and
// channel variables.
//
// Run subscribes to an instantiated pipeline and records a trace:
//
//  1. Notifications are pushed from whatever goroutine emits them
//  2. A single loop drains them in batches, in arrival order
//  3. Each is stamped with the next seq from a logical Clock
//  4. The trace is optionally written to a store.Store
//
// Ordering uses the logical clock, never wall time, so the same pipeline
// over the same sources yields the same trace on every run.
package engine
