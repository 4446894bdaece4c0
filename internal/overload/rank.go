package overload

import (
	"github.com/roach88/rxflow/internal/ir"
)

// signedOverUnsigned lists, per signed type, the unsigned types it is
// preferred over when neither converts to the other.
var signedOverUnsigned = map[string][]string{
	"int8":  {"uint8", "uint16", "uint32", "uint64"},
	"int16": {"uint16", "uint32", "uint64"},
	"int32": {"uint32", "uint64"},
	"int64": {"uint64"},
}

func elemOf(t *ir.Type) *ir.Type {
	if t.IsInstanceOf(ir.ObservableDef) {
		return t.Args[0]
	}
	return t
}

func signedBeats(a, b *ir.Type) bool {
	if a.Kind != ir.KindNamed || b.Kind != ir.KindNamed {
		return false
	}
	for _, u := range signedOverUnsigned[a.Name] {
		if u == b.Name {
			return true
		}
	}
	return false
}

// compareConversion decides which of the target types t1 and t2 is the
// better conversion from source type s. It returns -1 when t1 is better,
// 1 when t2 is better and 0 when neither is.
func compareConversion(t1, t2, s *ir.Type) int {
	if ir.Equal(t1, t2) {
		return 0
	}
	if ir.Equal(s, t1) {
		return -1
	}
	if ir.Equal(s, t2) {
		return 1
	}
	c12 := ir.HasImplicitConversion(t1, t2)
	c21 := ir.HasImplicitConversion(t2, t1)
	if c12 && !c21 {
		return -1
	}
	if c21 && !c12 {
		return 1
	}
	e1, e2 := elemOf(t1), elemOf(t2)
	if signedBeats(e1, e2) {
		return -1
	}
	if signedBeats(e2, e1) {
		return 1
	}
	return 0
}

// compareMembers compares two applicable candidates argument by argument.
// A candidate is better when it is better for at least one argument and
// worse for none.
func compareMembers(a, b *candidate, args []*ir.Type) int {
	aBetter, bBetter := false, false
	for i, s := range args {
		switch compareConversion(a.paramFor(i), b.paramFor(i), s) {
		case -1:
			aBetter = true
		case 1:
			bBetter = true
		}
	}
	switch {
	case aBetter && !bBetter:
		return -1
	case bBetter && !aBetter:
		return 1
	}
	return 0
}

// compare orders two applicable candidates, applying the tie-breakers in
// sequence: conversions, non-generic, non-variadic, specialisation.
func compare(a, b *candidate, args []*ir.Type) int {
	if c := compareMembers(a, b, args); c != 0 {
		return c
	}
	ag, bg := a.sig.IsGeneric(), b.sig.IsGeneric()
	if !ag && bg {
		return -1
	}
	if ag && !bg {
		return 1
	}
	if !a.expanded && b.expanded {
		return -1
	}
	if a.expanded && !b.expanded {
		return 1
	}
	aSpecific := instantiates(b.sig.Params, a.sig.Params, len(b.sig.TypeParams))
	bSpecific := instantiates(a.sig.Params, b.sig.Params, len(a.sig.TypeParams))
	if aSpecific && !bSpecific {
		return -1
	}
	if bSpecific && !aSpecific {
		return 1
	}
	return 0
}
