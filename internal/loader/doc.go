// Package loader reads workflow documents and turns them into expression
// graphs the compiler can build.
//
// A document lists nodes by ID and the edges between them:
//
//	name: doubled
//	nodes:
//	  - {id: src, kind: op, op: range, props: {count: 3}}
//	  - {id: twice, kind: op, op: zip}
//	  - {id: out, kind: output}
//	edges:
//	  - {from: src, to: twice}
//	  - {from: src, to: twice}
//	  - {from: twice, to: out}
//
// Documents are YAML (.yaml, .yml) or CUE (.cue). A CUE document is the
// value of its top-level workflow field, or the whole file when that field
// is absent, so constraints and references are resolved before decoding.
//
// Node kinds:
//
//	constant        emits value once
//	values          emits items in order
//	op              calls a builtin operation with props
//	pass            forwards its input
//	select          projects member of each value
//	input           reads the workflow argument at index
//	output          marks the workflow output
//	subject         publishes into channel (subject: broadcast|behavior|replay)
//	source_subject  declares channel of type without an input
//	subscribe       reads channel
//	multicast       pushes its input into an existing channel
//	mapping         assigns value members to successor props
//	nested          hosts workflow in its own channel namespace
//	group           hosts workflow in the enclosing namespace
//	include         hosts the document at path, relative to this one
//
// Any node may set disabled or inspect.
//
// Documents are validated before any graph is built. Validation reports
// every problem it finds with an E1xx code and, where known, the source
// line.
package loader
