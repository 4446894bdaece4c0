// Package scope implements the compilation scope chain.
//
// Scopes live in an arena (Chain) and refer to their parent by index, so a
// child never owns its parent. Each scope kind decides where named channel
// variables are declared:
//
//   - Root and Target scopes own their variables. A Target scope is a root
//     that captures a build target for a partial build.
//   - Nested scopes (sub-graph hosts with their own namespace) own their
//     variables; lookups fall through to the parent.
//   - Group and Include scopes are transparent: declarations go to the
//     nearest owning ancestor, so channels published inside a group are
//     visible next to it.
//
// Close wraps a fragment in a ScopeBlock that creates the owned variables
// per subscription and releases them in declaration order on the first
// termination. Closing is idempotent within a compile pass.
package scope
