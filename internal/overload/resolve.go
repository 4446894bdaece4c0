package overload

import (
	"fmt"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/stream"
)

// candidate is a signature instantiated for one argument list.
type candidate struct {
	sig      *Signature
	bindings []*ir.Type
	params   []*ir.Type
	expanded bool
}

// paramFor returns the instantiated parameter type argument i binds to.
func (c *candidate) paramFor(i int) *ir.Type {
	if c.expanded && i >= c.sig.fixed() {
		return c.params[len(c.params)-1].Elem
	}
	return c.params[i]
}

// Call is a resolved invocation with coerced arguments.
type Call struct {
	Receiver  any
	Signature *Signature
	Bindings  []*ir.Type
	// Params are the instantiated parameter types.
	Params []*ir.Type
	// Arguments are the coerced fixed arguments.
	Arguments []ir.Fragment
	// Rest are the coerced variadic elements of an expanded call.
	Rest []ir.Fragment
	// Result is the instantiated result type.
	Result *ir.Type
}

// Elem returns the element type of the call's result sequence.
func (c *Call) Elem() *ir.Type {
	return elemOf(c.Result)
}

// Fragment returns the application fragment for the call.
func (c *Call) Fragment(attrs map[string]any) ir.Fragment {
	fixed := len(c.Arguments)
	args := make([]ir.Fragment, 0, fixed+len(c.Rest))
	args = append(args, c.Arguments...)
	args = append(args, c.Rest...)
	return &ir.Apply{
		Name:  c.Signature.Name(),
		Elem:  c.Elem(),
		Attrs: attrs,
		Args:  args,
		Op: func(inputs []stream.Observable) (stream.Observable, error) {
			return c.Signature.Impl(&Invocation{
				Receiver:  c.Receiver,
				Signature: c.Signature,
				Bindings:  c.Bindings,
				Inputs:    inputs[:fixed:fixed],
				Rest:      inputs[fixed:],
			})
		},
	}
}

// Resolve selects the best candidate for args and returns the call with
// coerced arguments. Argument types are the sequence types of the
// fragments, Observable<elem>.
func Resolve(receiver any, candidates []*Signature, args []ir.Fragment) (*Call, error) {
	argTypes := make([]*ir.Type, len(args))
	for i, a := range args {
		argTypes[i] = ir.ObservableOf(a.Type())
	}
	name := ""
	if len(candidates) > 0 {
		name = candidates[0].Name()
	}
	fail := func(code Code, msg string, tied []*Signature) error {
		return &Error{Code: code, Message: msg, Operation: name, Arguments: argTypes, Candidates: tied}
	}

	var (
		applicable   []*candidate
		countMatched int
		inferFailed  int
	)
	for _, sig := range candidates {
		if !countMatches(sig, len(args)) {
			continue
		}
		countMatched++
		c, inferred := instantiate(sig, argTypes)
		if !inferred {
			inferFailed++
			continue
		}
		if c != nil && applicableTo(c, argTypes) {
			applicable = append(applicable, c)
		}
	}

	if len(applicable) == 0 {
		if countMatched > 0 && inferFailed == countMatched {
			return nil, fail(CodeUnresolvedGeneric, "the generic arguments could not be inferred from the given arguments", nil)
		}
		return nil, fail(CodeNoApplicable, "no method overload found for the given arguments", nil)
	}

	best := pick(applicable, argTypes)
	if best == nil {
		tied := make([]*Signature, len(applicable))
		for i, c := range applicable {
			tied[i] = c.sig
		}
		return nil, fail(CodeAmbiguous, "the method overload call is ambiguous", tied)
	}
	return best.call(receiver, args, argTypes)
}

func countMatches(sig *Signature, n int) bool {
	if sig.Variadic {
		return n >= sig.fixed()
	}
	return n == len(sig.Params)
}

// expansionRequired reports whether the variadic tail must be expanded:
// anything but exactly one argument that already is a matching array.
func expansionRequired(sig *Signature, args []*ir.Type) bool {
	if !sig.Variadic {
		return false
	}
	if len(args) != len(sig.Params) {
		return true
	}
	last := args[len(args)-1]
	return last.Kind != ir.KindArray || !ir.HasImplicitConversion(last, sig.Params[len(sig.Params)-1])
}

// instantiate binds the generic parameters of sig. The second result is
// false when inference failed.
func instantiate(sig *Signature, args []*ir.Type) (*candidate, bool) {
	c := &candidate{sig: sig, expanded: expansionRequired(sig, args)}
	if !sig.IsGeneric() {
		c.params = sig.Params
		return c, true
	}
	b := bindings{}
	for i, a := range args {
		param := sig.Params[min(i, len(sig.Params)-1)]
		if c.expanded && i >= sig.fixed() {
			param = param.Elem
		}
		if !match(param, a, b) {
			return nil, false
		}
	}
	bound, ok := b.resolve(len(sig.TypeParams))
	if !ok {
		return nil, false
	}
	c.bindings = bound
	c.params = make([]*ir.Type, len(sig.Params))
	for i, p := range sig.Params {
		c.params[i] = ir.Substitute(p, bound)
	}
	return c, true
}

func applicableTo(c *candidate, args []*ir.Type) bool {
	for i, a := range args {
		if !ir.HasImplicitConversion(a, c.paramFor(i)) {
			return false
		}
	}
	return true
}

// pick returns the candidate that beats every other one, or nil.
func pick(applicable []*candidate, args []*ir.Type) *candidate {
	for i, c := range applicable {
		wins := true
		for j, other := range applicable {
			if i != j && compare(c, other, args) >= 0 {
				wins = false
				break
			}
		}
		if wins {
			return c
		}
	}
	return nil
}

func (c *candidate) call(receiver any, args []ir.Fragment, argTypes []*ir.Type) (*Call, error) {
	coerced := make([]ir.Fragment, len(args))
	for i, a := range args {
		f, err := coerce(a, argTypes[i], c.paramFor(i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		coerced[i] = f
	}
	call := &Call{
		Receiver:  receiver,
		Signature: c.sig,
		Bindings:  c.bindings,
		Params:    c.params,
		Result:    ir.Substitute(c.sig.Result, c.bindings),
	}
	if c.expanded {
		call.Arguments = coerced[:c.sig.fixed()]
		call.Rest = coerced[c.sig.fixed():]
	} else {
		call.Arguments = coerced
	}
	return call, nil
}

// coerce inserts an element conversion when the parameter element type is
// a different numeric primitive than the argument's.
func coerce(arg ir.Fragment, argType, param *ir.Type) (ir.Fragment, error) {
	if ir.Equal(argType, param) {
		return arg, nil
	}
	from, to := elemOf(argType), elemOf(param)
	if ir.IsNumeric(to) && !ir.Equal(from, to) {
		if !ir.HasNumericConversion(from, to) {
			return nil, fmt.Errorf("no implicit conversion from %s to %s", from, to)
		}
		return &ir.Convert{Source: arg, To: to}, nil
	}
	return arg, nil
}
