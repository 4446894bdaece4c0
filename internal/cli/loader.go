package cli

import (
	"errors"

	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/loader"
	"github.com/roach88/rxflow/internal/ops"
)

// Error codes raised by the CLI itself. Loader codes (E00x, E1xx), build
// codes (CYCLE, ARITY, ...) and runtime codes (STREAM_FAILED, ...) are
// reported unchanged.
const (
	ErrCodeGeneric     = loader.ErrCodeGeneric
	ErrCodeWriteFailed = "E007" // File write error
	ErrCodeStore       = "E008" // Run store could not be opened or read
	ErrCodeRunNotFound = "E009" // No run with the requested ID
)

// loadWorkflow reads, validates and builds the workflow document at path
// against the builtin operator table.
func loadWorkflow(opts *RootOptions, path string, mode loader.LoadMode) (*loader.Result, []error) {
	l := loader.New(ops.Default(), loader.WithMode(mode), loader.WithLogger(opts.logger()))
	return l.LoadFile(path)
}

// describeError extracts the code, message and location of a workflow
// error for output. Build errors raised inside nested workflows carry
// the chain of host nodes in Details.
func describeError(err error) CLIError {
	var ve loader.ValidationError
	if errors.As(err, &ve) {
		return CLIError{Code: ve.Code, Message: ve.Field + ": " + ve.Message, Line: ve.Line}
	}
	var le *loader.LoadError
	if errors.As(err, &le) {
		return CLIError{Code: le.Code, Message: le.Message, Line: le.Line}
	}
	if be := expr.RootCause(err); be != nil {
		ce := CLIError{Code: string(be.Code), Message: be.Message}
		stack := expr.CallStack(err)
		if len(stack) > 0 {
			nodes := make([]string, len(stack))
			for i, b := range stack {
				nodes[i] = expr.Describe(b)
			}
			ce.Details = nodes
		}
		return ce
	}
	var re *engine.RuntimeError
	if errors.As(err, &re) {
		return CLIError{Code: string(re.Code), Message: re.Error()}
	}
	return CLIError{Code: ErrCodeGeneric, Message: err.Error()}
}

func describeErrors(errs []error) []CLIError {
	out := make([]CLIError, len(errs))
	for i, err := range errs {
		out[i] = describeError(err)
	}
	return out
}
