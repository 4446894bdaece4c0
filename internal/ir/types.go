package ir

import (
	"strings"
)

// Kind classifies a Type.
type Kind uint8

const (
	// KindVoid is the type of fragments that produce no sequence.
	KindVoid Kind = iota
	// KindNamed is a nominal type: a primitive or a user type with an
	// optional base type and interface set.
	KindNamed
	// KindParam is a generic parameter, identified by its position.
	KindParam
	// KindArray is a single-dimension array of Elem.
	KindArray
	// KindPointer is a pointer to Elem.
	KindPointer
	// KindGeneric is a generic definition (Def == nil, Args are its
	// parameters) or an instantiation of one (Def != nil).
	KindGeneric
)

// Type is the data-driven type model used for fragment element types and
// operation signatures.
//
// Named types and generic definitions are singletons compared by name.
// Arrays, pointers and generic instances are structural.
type Type struct {
	Kind Kind
	Name string

	// Elem is the element type of arrays and pointers.
	Elem *Type

	// Def is the generic definition of an instance.
	Def *Type

	// Args holds the type arguments of an instance, or the parameters of a
	// definition.
	Args []*Type

	// Index is the position of a generic parameter.
	Index int

	// Base is the base type of a named type or generic definition. Generic
	// definitions may refer to their own parameters here.
	Base *Type

	// Interfaces lists the interfaces implemented by a named type or
	// generic definition.
	Interfaces []*Type

	// Interface marks interface types.
	Interface bool

	// Covariant marks generic definitions whose instances convert when
	// their arguments convert.
	Covariant bool
}

func named(name string) *Type {
	return &Type{Kind: KindNamed, Name: name}
}

// Predefined types.
var (
	Void    = &Type{Kind: KindVoid, Name: "void"}
	Object  = named("object")
	Int8    = named("int8")
	Uint8   = named("uint8")
	Int16   = named("int16")
	Uint16  = named("uint16")
	Int32   = named("int32")
	Uint32  = named("uint32")
	Int64   = named("int64")
	Uint64  = named("uint64")
	Float32 = named("float32")
	Float64 = named("float64")
	String  = named("string")
	Bool    = named("bool")
	Unit    = named("unit")
	Time    = named("time")
)

// Generic definitions.
var (
	// ObservableDef is the sequence type every fragment produces.
	ObservableDef = NewGeneric("Observable", []string{"T"}, func(d *Type) { d.Interface, d.Covariant = true, true })
	// ListDef is the read-only list interface implemented by arrays.
	ListDef = NewGeneric("List", []string{"T"}, func(d *Type) { d.Interface, d.Covariant = true, true })
	// TupleDef pairs two values.
	TupleDef = NewGeneric("Tuple", []string{"T1", "T2"}, nil)
	// TimestampedDef pairs a value with its observation time.
	TimestampedDef = NewGeneric("Timestamped", []string{"T"}, nil)
)

var primitives = map[string]*Type{}

func init() {
	for _, t := range []*Type{Object, Int8, Uint8, Int16, Uint16, Int32, Uint32, Int64, Uint64, Float32, Float64, String, Bool, Unit, Time} {
		primitives[t.Name] = t
	}
	for _, def := range []*Type{ObservableDef, ListDef, TupleDef, TimestampedDef} {
		primitives[def.Name] = def
	}
}

// Lookup returns the predefined type or generic definition with the given
// name.
func Lookup(name string) (*Type, bool) {
	t, ok := primitives[name]
	return t, ok
}

// NewNamed declares a nominal type with an optional base and interfaces.
func NewNamed(name string, base *Type, interfaces ...*Type) *Type {
	return &Type{Kind: KindNamed, Name: name, Base: base, Interfaces: interfaces}
}

// NewInterface declares a nominal interface type.
func NewInterface(name string, interfaces ...*Type) *Type {
	return &Type{Kind: KindNamed, Name: name, Interfaces: interfaces, Interface: true}
}

// NewGeneric declares a generic definition with the given parameter names.
// configure may set Base, Interfaces and flags in terms of d.Args.
func NewGeneric(name string, params []string, configure func(d *Type)) *Type {
	d := &Type{Kind: KindGeneric, Name: name}
	for i, p := range params {
		d.Args = append(d.Args, Param(i, p))
	}
	if configure != nil {
		configure(d)
	}
	return d
}

// Param returns a generic parameter placeholder.
func Param(index int, name string) *Type {
	return &Type{Kind: KindParam, Name: name, Index: index}
}

// ArrayOf returns the array type with element type elem.
func ArrayOf(elem *Type) *Type {
	return &Type{Kind: KindArray, Elem: elem}
}

// PointerTo returns the pointer type to elem.
func PointerTo(elem *Type) *Type {
	return &Type{Kind: KindPointer, Elem: elem}
}

// Instantiate applies args to the generic definition def.
func Instantiate(def *Type, args ...*Type) *Type {
	return &Type{Kind: KindGeneric, Name: def.Name, Def: def, Args: args}
}

// ObservableOf returns Observable<elem>.
func ObservableOf(elem *Type) *Type {
	return Instantiate(ObservableDef, elem)
}

// ListOf returns List<elem>.
func ListOf(elem *Type) *Type {
	return Instantiate(ListDef, elem)
}

// TupleOf returns Tuple<a, b>.
func TupleOf(a, b *Type) *Type {
	return Instantiate(TupleDef, a, b)
}

// TimestampedOf returns Timestamped<elem>.
func TimestampedOf(elem *Type) *Type {
	return Instantiate(TimestampedDef, elem)
}

// IsGenericInstance reports whether t instantiates a generic definition.
func (t *Type) IsGenericInstance() bool {
	return t != nil && t.Kind == KindGeneric && t.Def != nil
}

// IsInstanceOf reports whether t instantiates def.
func (t *Type) IsInstanceOf(def *Type) bool {
	return t.IsGenericInstance() && t.Def.Name == def.Name
}

// ContainsParams reports whether any generic parameter occurs in t.
func (t *Type) ContainsParams() bool {
	if t == nil {
		return false
	}
	switch t.Kind {
	case KindParam:
		return true
	case KindArray, KindPointer:
		return t.Elem.ContainsParams()
	case KindGeneric:
		for _, a := range t.Args {
			if a.ContainsParams() {
				return true
			}
		}
	}
	return false
}

// String renders t in a compact readable form.
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindArray:
		return t.Elem.String() + "[]"
	case KindPointer:
		return t.Elem.String() + "*"
	case KindGeneric:
		args := make([]string, len(t.Args))
		for i, a := range t.Args {
			args[i] = a.String()
		}
		return t.Name + "<" + strings.Join(args, ",") + ">"
	default:
		return t.Name
	}
}

// Equal reports structural type identity.
func Equal(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindVoid:
		return true
	case KindNamed:
		return a.Name == b.Name
	case KindParam:
		return a.Index == b.Index
	case KindArray, KindPointer:
		return Equal(a.Elem, b.Elem)
	case KindGeneric:
		if a.Name != b.Name || len(a.Args) != len(b.Args) || (a.Def == nil) != (b.Def == nil) {
			return false
		}
		for i := range a.Args {
			if !Equal(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Substitute replaces generic parameters in t with bindings[index].
// Parameters without a binding are left in place.
func Substitute(t *Type, bindings []*Type) *Type {
	if t == nil || !t.ContainsParams() {
		return t
	}
	switch t.Kind {
	case KindParam:
		if t.Index < len(bindings) && bindings[t.Index] != nil {
			return bindings[t.Index]
		}
		return t
	case KindArray:
		return ArrayOf(Substitute(t.Elem, bindings))
	case KindPointer:
		return PointerTo(Substitute(t.Elem, bindings))
	case KindGeneric:
		args := make([]*Type, len(t.Args))
		for i, a := range t.Args {
			args[i] = Substitute(a, bindings)
		}
		if t.Def == nil {
			return &Type{Kind: KindGeneric, Name: t.Name, Def: t, Args: args}
		}
		return Instantiate(t.Def, args...)
	}
	return t
}

// BaseOf returns the base type of t, with generic parameters of an
// instance's definition substituted. Arrays have base Object; named types
// without a base (other than Object itself and interfaces) also have base
// Object.
func BaseOf(t *Type) *Type {
	switch t.Kind {
	case KindNamed:
		if t.Base != nil {
			return t.Base
		}
		if t.Interface || t.Name == Object.Name {
			return nil
		}
		return Object
	case KindArray:
		return Object
	case KindGeneric:
		if t.Def == nil {
			return nil
		}
		if t.Def.Base != nil {
			return Substitute(t.Def.Base, t.Args)
		}
		if t.Def.Interface {
			return nil
		}
		return Object
	}
	return nil
}

// InterfacesOf returns the interfaces t declares directly.
func InterfacesOf(t *Type) []*Type {
	switch t.Kind {
	case KindNamed:
		return t.Interfaces
	case KindArray:
		return []*Type{ListOf(t.Elem)}
	case KindGeneric:
		if t.Def == nil {
			return nil
		}
		out := make([]*Type, len(t.Def.Interfaces))
		for i, iface := range t.Def.Interfaces {
			out[i] = Substitute(iface, t.Args)
		}
		return out
	}
	return nil
}

// AllInterfaces returns every interface implemented by t, its bases and
// their interfaces, in a stable order without duplicates.
func AllInterfaces(t *Type) []*Type {
	var out []*Type
	seen := func(x *Type) bool {
		for _, o := range out {
			if Equal(o, x) {
				return true
			}
		}
		return false
	}
	var visit func(x *Type)
	visit = func(x *Type) {
		for _, iface := range InterfacesOf(x) {
			if !seen(iface) {
				out = append(out, iface)
				visit(iface)
			}
		}
	}
	for cur := t; cur != nil; cur = BaseOf(cur) {
		visit(cur)
	}
	return out
}
