// Package expr defines node descriptors: the units a workflow graph is made
// of and the contract the build driver compiles them through.
//
// Every descriptor implements Builder: an accepted input-arity Range and a
// Build operation that turns already-built input fragments into a new
// fragment. Optional behaviour is discovered by type assertion on the
// unwrapped descriptor:
//
//   - ChannelPublisher / ChannelSubscriber: named-channel participants
//   - SubGraphHost: descriptors that own a nested Workflow
//   - ArgumentTransformer: descriptors that route their output to
//     successors as build dependencies (property mappings)
//   - TerminalOutput: the workflow output marker
//   - ContextConsumer: descriptors that need the compilation scope
//
// Inspect and Disable are decorators. Unwrap strips Inspect layers only, so
// a disabled descriptor loses its capabilities; Element strips both.
//
// Errors raised while building are *BuildError values attributed to the
// node that raised them and re-wrapped by every enclosing sub-graph host.
package expr
