// Package overload resolves a call against a set of candidate signatures.
//
// Signatures are data: parameter and result shapes over the ir type model,
// with generic parameters expressed as ir.Param placeholders. Operations
// register their signatures once in a Table; nothing is discovered by
// reflection.
//
// Resolution runs in four stages:
//
//  1. Count filter: exact parameter count, or for variadic signatures at
//     least the fixed parameters.
//  2. Inference: each candidate's generic parameters are bound by matching
//     parameter shapes against argument types (element types, same generic
//     definition, then the base chain and interfaces of the argument). Every
//     binding of one parameter must agree and every parameter must be
//     bound, otherwise the candidate is discarded.
//  3. Applicability: every argument must convert implicitly to its
//     instantiated parameter type; variadic tails are expanded element-wise.
//  4. Ranking: a candidate wins when it beats every other applicable
//     candidate, comparing per-argument conversions first and breaking ties
//     by non-generic over generic, non-variadic over variadic and finally
//     the more specialised parameter shape.
//
// The winning call carries coerced arguments: numeric element conversions
// are inserted as ir.Convert fragments.
package overload
