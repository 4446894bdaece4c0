package expr

import (
	"errors"
	"fmt"

	"github.com/roach88/rxflow/internal/overload"
)

// Code categorizes build errors.
type Code string

const (
	// CodeArity indicates an input count outside the accepted range.
	CodeArity Code = "ARITY"
	// CodeDuplicateSlot indicates two edges feeding the same input slot.
	CodeDuplicateSlot Code = "DUPLICATE_SLOT"
	// CodeMultipleOutputs indicates more than one workflow output node.
	CodeMultipleOutputs Code = "MULTIPLE_OUTPUTS"
	// CodeOutputNotTerminal indicates a workflow output with successors.
	CodeOutputNotTerminal Code = "OUTPUT_NOT_TERMINAL"
	// CodeCycle indicates a cycle in the graph.
	CodeCycle Code = "CYCLE"
	// CodeChannelCycle indicates a named channel defined in terms of itself.
	CodeChannelCycle Code = "CHANNEL_CYCLE"
	// CodeNoApplicable indicates no overload accepts the inputs.
	CodeNoApplicable = Code(overload.CodeNoApplicable)
	// CodeAmbiguous indicates an ambiguous overload call.
	CodeAmbiguous = Code(overload.CodeAmbiguous)
	// CodeUnresolvedGeneric indicates failed generic inference.
	CodeUnresolvedGeneric = Code(overload.CodeUnresolvedGeneric)
	// CodeMissingContext indicates a node built without its scope.
	CodeMissingContext Code = "MISSING_CONTEXT"
	// CodeUnnamedChannel indicates a publisher without a channel name.
	CodeUnnamedChannel Code = "UNNAMED_CHANNEL"
	// CodeDuplicateChannel indicates a channel declared twice in a scope.
	CodeDuplicateChannel Code = "DUPLICATE_CHANNEL"
	// CodeIncludeRecursion indicates an include of itself.
	CodeIncludeRecursion Code = "INCLUDE_RECURSION"
	// CodeSubgraph wraps an error raised inside a sub-graph host.
	CodeSubgraph Code = "SUBGRAPH"
	// CodeBuildFailed is any other failure raised by a node.
	CodeBuildFailed Code = "BUILD_FAILED"
)

// BuildError is a compile-time failure attributed to a node.
type BuildError struct {
	Code    Code
	Message string
	// Node is the descriptor the error is attributed to. It may be nil for
	// graph-level errors.
	Node Builder
	// Err is the wrapped cause, possibly another *BuildError raised inside
	// a sub-graph.
	Err error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Node != nil {
		msg += fmt.Sprintf(" (node=%s)", Describe(e.Node))
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *BuildError) Unwrap() error { return e.Err }

// Errorf creates a BuildError for node.
func Errorf(code Code, node Builder, format string, args ...any) *BuildError {
	return &BuildError{Code: code, Message: fmt.Sprintf(format, args...), Node: node}
}

// Attribute ensures err is a *BuildError attributed to node. Errors that
// already carry a node are returned unchanged; resolution errors keep
// their code.
func Attribute(err error, node Builder) error {
	if err == nil {
		return nil
	}
	var be *BuildError
	if errors.As(err, &be) {
		if be.Node == nil {
			cp := *be
			cp.Node = node
			return &cp
		}
		return err
	}
	var oe *overload.Error
	if errors.As(err, &oe) {
		return &BuildError{Code: Code(oe.Code), Message: oe.Message, Node: node, Err: err}
	}
	return &BuildError{Code: CodeBuildFailed, Message: err.Error(), Node: node}
}

// WrapHost re-wraps an error escaping a sub-graph with the host node.
func WrapHost(err error, host Builder) error {
	if err == nil {
		return nil
	}
	return &BuildError{Code: CodeSubgraph, Message: "error building sub-graph", Node: host, Err: Attribute(err, nil)}
}

// IsCode reports whether any BuildError in err's chain has code.
func IsCode(err error, code Code) bool {
	for err != nil {
		var be *BuildError
		if !errors.As(err, &be) {
			return false
		}
		if be.Code == code {
			return true
		}
		err = be.Err
	}
	return false
}

// RootCause returns the innermost BuildError in err's chain.
func RootCause(err error) *BuildError {
	var last *BuildError
	for err != nil {
		var be *BuildError
		if !errors.As(err, &be) {
			break
		}
		last = be
		err = be.Err
	}
	return last
}

// CallStack returns the nodes err is attributed to, outermost host first.
func CallStack(err error) []Builder {
	var stack []Builder
	for err != nil {
		var be *BuildError
		if !errors.As(err, &be) {
			break
		}
		if be.Node != nil {
			stack = append(stack, be.Node)
		}
		err = be.Err
	}
	return stack
}
