package overload

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/rxflow/internal/ir"
)

// Code categorizes resolution failures.
type Code string

const (
	// CodeNoApplicable indicates no candidate accepts the arguments.
	CodeNoApplicable Code = "NO_APPLICABLE_OVERLOAD"

	// CodeAmbiguous indicates no single candidate beats all others.
	CodeAmbiguous Code = "AMBIGUOUS_OVERLOAD"

	// CodeUnresolvedGeneric indicates every candidate of the right arity
	// failed generic inference.
	CodeUnresolvedGeneric Code = "UNRESOLVED_GENERIC"
)

// Error reports a failed resolution.
type Error struct {
	Code      Code
	Message   string
	Operation string
	Arguments []*ir.Type
	// Candidates lists the tied candidates of an ambiguous call.
	Candidates []*Signature
}

// Error implements the error interface.
func (e *Error) Error() string {
	args := make([]string, len(e.Arguments))
	for i, a := range e.Arguments {
		args[i] = a.String()
	}
	msg := fmt.Sprintf("%s: %s (%s(%s))", e.Code, e.Message, e.Operation, strings.Join(args, ", "))
	if len(e.Candidates) > 0 {
		names := make([]string, len(e.Candidates))
		for i, c := range e.Candidates {
			names[i] = c.String()
		}
		msg += " candidates: " + strings.Join(names, "; ")
	}
	return msg
}

func codeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// IsNoApplicable reports whether err is a no-applicable-overload error.
func IsNoApplicable(err error) bool {
	c, ok := codeOf(err)
	return ok && c == CodeNoApplicable
}

// IsAmbiguous reports whether err is an ambiguous-overload error.
func IsAmbiguous(err error) bool {
	c, ok := codeOf(err)
	return ok && c == CodeAmbiguous
}

// IsUnresolvedGeneric reports whether err is a generic inference error.
func IsUnresolvedGeneric(err error) bool {
	c, ok := codeOf(err)
	return ok && c == CodeUnresolvedGeneric
}
