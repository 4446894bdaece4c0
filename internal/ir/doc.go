// Package ir defines the fragment IR that graphs compile into, together with
// the data-driven type model used for element types and operation
// signatures.
//
// A Fragment is one node of an immutable pipeline tree. The kinds are closed:
// sources and applications carry the runtime operator that instantiates
// them, while the structural kinds (Placeholder/Multicast, Variable*,
// ScopeBlock, Dependent, Output) describe sharing, named channels, scoped
// resources and side connections. Empty, Disconnect and Disabled are marker
// fragments the build driver routes specially; they are "irreducible".
//
// Types are values of *Type: named types with base chains and interface
// sets, generic definitions and instances, arrays, pointers and generic
// parameters. Implicit conversion rules (assignability, covariance and the
// numeric widening table) live here so that both the call resolution engine
// and the runtime coercion agree.
//
// Key design constraints:
//   - ir imports only the stream runtime package; everything else imports ir
//   - fragments are never mutated after construction; Rewrite copies
//   - Describe and MarshalCanonical give a deterministic structural view for
//     hashing and golden dumps
package ir
