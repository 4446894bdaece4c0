package overload

import (
	"github.com/roach88/rxflow/internal/ir"
)

// bindings accumulates candidate types per generic parameter index.
type bindings map[int][]*ir.Type

// match binds the generic parameters occurring in param against arg. It
// reports false when the shapes cannot correspond at all. A param without
// generic parameters always matches here; applicability is checked later.
func match(param, arg *ir.Type, out bindings) bool {
	if param == nil || arg == nil {
		return false
	}
	if param.Kind == ir.KindParam {
		out[param.Index] = append(out[param.Index], arg)
		return true
	}
	if !param.ContainsParams() {
		return true
	}
	switch param.Kind {
	case ir.KindArray, ir.KindPointer:
		if arg.Kind != param.Kind {
			return false
		}
		return match(param.Elem, arg.Elem, out)
	case ir.KindGeneric:
		if !param.IsGenericInstance() {
			return false
		}
		if arg.IsInstanceOf(param.Def) {
			return matchArgs(param, arg, out)
		}
		for base := ir.BaseOf(arg); base != nil; base = ir.BaseOf(base) {
			if base.IsInstanceOf(param.Def) {
				return matchArgs(param, base, out)
			}
		}
		for _, iface := range ir.AllInterfaces(arg) {
			if iface.IsInstanceOf(param.Def) {
				return matchArgs(param, iface, out)
			}
		}
	}
	return false
}

func matchArgs(param, arg *ir.Type, out bindings) bool {
	for i := range param.Args {
		if !match(param.Args[i], arg.Args[i], out) {
			return false
		}
	}
	return true
}

// resolve collapses the accumulated bindings into one type per parameter.
// It fails when a parameter is unbound or bound to different types.
func (b bindings) resolve(n int) ([]*ir.Type, bool) {
	out := make([]*ir.Type, n)
	for i := 0; i < n; i++ {
		candidates := b[i]
		if len(candidates) == 0 {
			return nil, false
		}
		for _, c := range candidates[1:] {
			if !ir.Equal(c, candidates[0]) {
				return nil, false
			}
		}
		out[i] = candidates[0]
	}
	return out, true
}

// instantiates reports whether the generic shape general can be turned into
// specific by binding general's parameters; specific's own parameters are
// treated as opaque types.
func instantiates(general, specific []*ir.Type, typeParams int) bool {
	if len(general) != len(specific) {
		return false
	}
	b := bindings{}
	for i := range general {
		if !match(general[i], specific[i], b) {
			return false
		}
	}
	bound := make([]*ir.Type, typeParams)
	for i := 0; i < typeParams; i++ {
		candidates := b[i]
		if len(candidates) == 0 {
			continue
		}
		for _, c := range candidates[1:] {
			if !ir.Equal(c, candidates[0]) {
				return false
			}
		}
		bound[i] = candidates[0]
	}
	for i := range general {
		if !ir.Equal(ir.Substitute(general[i], bound), specific[i]) {
			return false
		}
	}
	return true
}
