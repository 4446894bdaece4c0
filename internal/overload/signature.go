package overload

import (
	"fmt"
	"strings"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/stream"
)

// Unbounded is the maximum argument count of a variadic operation.
const Unbounded = -1

// Invocation is what an implementation receives at instantiation time.
type Invocation struct {
	// Receiver is the operation instance the call was resolved for.
	Receiver any
	// Signature is the chosen candidate.
	Signature *Signature
	// Bindings holds the inferred generic arguments by parameter index.
	Bindings []*ir.Type
	// Inputs are the instantiated fixed arguments.
	Inputs []stream.Observable
	// Rest are the instantiated variadic elements.
	Rest []stream.Observable
}

// Impl instantiates a resolved call.
type Impl func(inv *Invocation) (stream.Observable, error)

// Signature is one overload of an operation.
type Signature struct {
	// TypeParams names the generic parameters; ir.Param(i, ...) refers to
	// TypeParams[i].
	TypeParams []string
	// Params are the parameter shapes. When Variadic is set, the last
	// parameter is an array whose element shape each variadic argument
	// must match.
	Params   []*ir.Type
	Variadic bool
	// Result is the result shape, normally Observable<...>.
	Result *ir.Type
	Impl   Impl

	name string
}

// Name returns the owning operation name.
func (s *Signature) Name() string { return s.name }

// IsGeneric reports whether the signature declares generic parameters.
func (s *Signature) IsGeneric() bool { return len(s.TypeParams) > 0 }

// fixed returns the number of non-variadic parameters.
func (s *Signature) fixed() int {
	if s.Variadic {
		return len(s.Params) - 1
	}
	return len(s.Params)
}

// String renders the signature as name<T>(params) result.
func (s *Signature) String() string {
	var b strings.Builder
	b.WriteString(s.name)
	if s.IsGeneric() {
		b.WriteString("<" + strings.Join(s.TypeParams, ",") + ">")
	}
	params := make([]string, len(s.Params))
	for i, p := range s.Params {
		params[i] = p.String()
		if s.Variadic && i == len(s.Params)-1 {
			params[i] = "..." + params[i]
		}
	}
	fmt.Fprintf(&b, "(%s) %s", strings.Join(params, ", "), s.Result)
	return b.String()
}

func (s *Signature) validate() error {
	if s.Impl == nil {
		return fmt.Errorf("%s: missing implementation", s)
	}
	if s.Result == nil {
		return fmt.Errorf("%s: missing result type", s)
	}
	if s.Variadic && (len(s.Params) == 0 || s.Params[len(s.Params)-1].Kind != ir.KindArray) {
		return fmt.Errorf("%s: variadic signature must end with an array parameter", s)
	}
	var check func(t *ir.Type) error
	check = func(t *ir.Type) error {
		if t == nil {
			return nil
		}
		if t.Kind == ir.KindParam && t.Index >= len(s.TypeParams) {
			return fmt.Errorf("%s: generic parameter %d is not declared", s, t.Index)
		}
		if err := check(t.Elem); err != nil {
			return err
		}
		if t.Kind == ir.KindGeneric && t.Def != nil {
			for _, a := range t.Args {
				if err := check(a); err != nil {
					return err
				}
			}
		}
		return nil
	}
	for _, p := range append(append([]*ir.Type(nil), s.Params...), s.Result) {
		if err := check(p); err != nil {
			return err
		}
	}
	return nil
}

// Operation is a named set of overloads.
type Operation struct {
	Name       string
	Signatures []*Signature
}

// ArgumentRange returns the minimum and maximum argument counts accepted by
// any overload. The maximum is Unbounded if any overload is variadic.
func (o *Operation) ArgumentRange() (lo, hi int) {
	lo = -1
	for _, s := range o.Signatures {
		n := s.fixed()
		if lo < 0 || n < lo {
			lo = n
		}
		switch {
		case s.Variadic:
			hi = Unbounded
		case hi != Unbounded && len(s.Params) > hi:
			hi = len(s.Params)
		}
	}
	if lo < 0 {
		lo = 0
	}
	return lo, hi
}

// Resolve resolves a call of o for receiver with the given arguments.
func (o *Operation) Resolve(receiver any, args []ir.Fragment) (*Call, error) {
	return Resolve(receiver, o.Signatures, args)
}
