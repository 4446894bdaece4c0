// Package store provides SQLite-backed durable storage for pipeline run
// traces.
//
// The store is an append-only log with two tables:
//   - runs: one row per execution of a compiled fragment
//   - notifications: every OnNext/OnError/OnCompleted the run observed
//
// # Ordering
//
// Notifications are ordered by the engine's logical clock (seq INTEGER),
// never by wall time. Every read orders by seq ASC, so a trace read back
// from the store compares equal to the trace the engine recorded.
//
// Runs are keyed by UUIDv7, which sorts by creation time; ListRuns orders
// by id COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Values are stored as canonical JSON text (see EncodeValue) so identical
// runs produce byte-identical rows.
package store
