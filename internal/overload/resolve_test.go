package overload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/stream"
)

var (
	tT = ir.Param(0, "T")
)

func obs(t *ir.Type) *ir.Type { return ir.ObservableOf(t) }

func nopImpl(inv *Invocation) (stream.Observable, error) {
	return stream.Empty(), nil
}

func sig(params []*ir.Type, result *ir.Type, typeParams ...string) *Signature {
	return &Signature{TypeParams: typeParams, Params: params, Result: result, Impl: nopImpl}
}

func variadic(params []*ir.Type, result *ir.Type, typeParams ...string) *Signature {
	s := sig(params, result, typeParams...)
	s.Variadic = true
	return s
}

func arg(elem *ir.Type) ir.Fragment {
	return &ir.Source{Name: "arg", Elem: elem, New: stream.Empty}
}

func operation(t *testing.T, sigs ...*Signature) *Operation {
	t.Helper()
	op := &Operation{Name: "process", Signatures: sigs}
	_, err := NewTable(op)
	require.NoError(t, err)
	return op
}

func resolve(t *testing.T, op *Operation, args ...ir.Fragment) (*Call, error) {
	t.Helper()
	return op.Resolve(nil, args)
}

func TestResolve_FloatOverloadPreferredForInt(t *testing.T) {
	floatSig := sig([]*ir.Type{obs(ir.Float32)}, obs(ir.Float32))
	doubleSig := sig([]*ir.Type{obs(ir.Float64)}, obs(ir.Float64))
	op := operation(t, doubleSig, floatSig)

	call, err := resolve(t, op, arg(ir.Int32))
	require.NoError(t, err)
	assert.Same(t, floatSig, call.Signature)
	assert.Equal(t, ir.Float32, call.Elem())

	conv, ok := call.Arguments[0].(*ir.Convert)
	require.True(t, ok, "int argument is converted")
	assert.Equal(t, ir.Float32, conv.To)
}

func TestResolve_ExactMatchWins(t *testing.T) {
	floatSig := sig([]*ir.Type{obs(ir.Float32)}, obs(ir.Float32))
	doubleSig := sig([]*ir.Type{obs(ir.Float64)}, obs(ir.Float64))
	op := operation(t, floatSig, doubleSig)

	call, err := resolve(t, op, arg(ir.Float64))
	require.NoError(t, err)
	assert.Same(t, doubleSig, call.Signature)
	_, converted := call.Arguments[0].(*ir.Convert)
	assert.False(t, converted)
}

func TestResolve_VariadicFloatPreferredForInt(t *testing.T) {
	floatSig := variadic([]*ir.Type{ir.ArrayOf(obs(ir.Float32))}, obs(ir.Float32))
	doubleSig := variadic([]*ir.Type{ir.ArrayOf(obs(ir.Float64))}, obs(ir.Float64))
	op := operation(t, doubleSig, floatSig)

	call, err := resolve(t, op, arg(ir.Int32), arg(ir.Int32), arg(ir.Int32))
	require.NoError(t, err)
	assert.Same(t, floatSig, call.Signature)
	assert.Empty(t, call.Arguments)
	assert.Len(t, call.Rest, 3)
}

func TestResolve_NonGenericPreferredOnTie(t *testing.T) {
	generic := sig([]*ir.Type{obs(tT)}, obs(tT), "T")
	floatSig := sig([]*ir.Type{obs(ir.Float32)}, obs(ir.Float32))
	op := operation(t, generic, floatSig)

	call, err := resolve(t, op, arg(ir.Float32))
	require.NoError(t, err)
	assert.Same(t, floatSig, call.Signature)
}

func TestResolve_GenericExactBeatsConversion(t *testing.T) {
	generic := sig([]*ir.Type{obs(tT)}, obs(tT), "T")
	floatSig := sig([]*ir.Type{obs(ir.Float32)}, obs(ir.Float32))
	op := operation(t, floatSig, generic)

	call, err := resolve(t, op, arg(ir.Int32))
	require.NoError(t, err)
	assert.Same(t, generic, call.Signature)
	assert.Equal(t, ir.Int32, call.Elem())
	assert.Equal(t, []*ir.Type{ir.Int32}, call.Bindings)
}

func TestResolve_NonVariadicPreferredOnTie(t *testing.T) {
	fixed := sig([]*ir.Type{obs(ir.Int32)}, obs(ir.Int32))
	rest := variadic([]*ir.Type{ir.ArrayOf(obs(ir.Int32))}, obs(ir.Int32))
	op := operation(t, rest, fixed)

	call, err := resolve(t, op, arg(ir.Int32))
	require.NoError(t, err)
	assert.Same(t, fixed, call.Signature)
}

func TestResolve_ListBindsThroughArrayInterface(t *testing.T) {
	list := sig([]*ir.Type{obs(ir.ListOf(tT))}, obs(tT), "T")
	tuple := sig([]*ir.Type{obs(ir.TupleOf(tT, tT))}, obs(tT), "T")
	op := operation(t, tuple, list)

	call, err := resolve(t, op, arg(ir.ArrayOf(ir.Int64)))
	require.NoError(t, err)
	assert.Same(t, list, call.Signature)
	assert.Equal(t, ir.Int64, call.Elem())

	call, err = resolve(t, op, arg(ir.TupleOf(ir.String, ir.String)))
	require.NoError(t, err)
	assert.Same(t, tuple, call.Signature)
	assert.Equal(t, ir.String, call.Elem())
}

func TestResolve_AmbiguousCall(t *testing.T) {
	a := sig([]*ir.Type{obs(ir.Int32), obs(ir.Float64)}, obs(ir.Object))
	b := sig([]*ir.Type{obs(ir.Float64), obs(ir.Int32)}, obs(ir.Object))
	c := sig([]*ir.Type{obs(ir.Object), obs(ir.Object)}, obs(ir.Object))
	op := operation(t, a, b, c)

	_, err := resolve(t, op, arg(ir.Int32), arg(ir.Int32))
	require.Error(t, err)
	assert.True(t, IsAmbiguous(err))

	var re *Error
	require.ErrorAs(t, err, &re)
	assert.Len(t, re.Candidates, 3)
	assert.Equal(t, "process", re.Operation)
}

func TestResolve_AmbiguityIsDeterministic(t *testing.T) {
	a := sig([]*ir.Type{obs(ir.Int32), obs(ir.Float64)}, obs(ir.Object))
	b := sig([]*ir.Type{obs(ir.Float64), obs(ir.Int32)}, obs(ir.Object))
	for i := 0; i < 10; i++ {
		_, err := Resolve(nil, []*Signature{a, b}, []ir.Fragment{arg(ir.Int32), arg(ir.Int32)})
		assert.True(t, IsAmbiguous(err))
	}
}

func TestResolve_SpecializedGenericPreferred(t *testing.T) {
	plain := sig([]*ir.Type{obs(tT)}, obs(tT), "T")
	stamped := sig([]*ir.Type{obs(ir.TimestampedOf(tT))}, obs(tT), "T")
	op := operation(t, plain, stamped)

	call, err := resolve(t, op, arg(ir.TimestampedOf(ir.Float64)))
	require.NoError(t, err)
	assert.Same(t, stamped, call.Signature)
	assert.Equal(t, ir.Float64, call.Elem())

	call, err = resolve(t, op, arg(ir.Float64))
	require.NoError(t, err)
	assert.Same(t, plain, call.Signature)
}

func TestResolve_SignedPreferredOverUnsigned(t *testing.T) {
	signed := sig([]*ir.Type{obs(ir.Int32)}, obs(ir.Int32))
	unsigned := sig([]*ir.Type{obs(ir.Uint32)}, obs(ir.Uint32))
	op := operation(t, unsigned, signed)

	call, err := resolve(t, op, arg(ir.Uint8))
	require.NoError(t, err)
	assert.Same(t, signed, call.Signature)
}

func TestResolve_NoApplicableOverload(t *testing.T) {
	op := operation(t, sig([]*ir.Type{obs(ir.Int32)}, obs(ir.Int32)))

	_, err := resolve(t, op, arg(ir.Float64))
	assert.True(t, IsNoApplicable(err))

	_, err = resolve(t, op, arg(ir.Int32), arg(ir.Int32))
	assert.True(t, IsNoApplicable(err))
	assert.Contains(t, err.Error(), "process(Observable<int32>, Observable<int32>)")
}

func TestResolve_ConflictingGenericBindings(t *testing.T) {
	pair := sig([]*ir.Type{obs(tT), obs(tT)}, obs(tT), "T")
	op := operation(t, pair)

	_, err := resolve(t, op, arg(ir.Int32), arg(ir.String))
	assert.True(t, IsUnresolvedGeneric(err))
}

func TestResolve_VariadicGenericBindsAllElements(t *testing.T) {
	merge := variadic([]*ir.Type{ir.ArrayOf(obs(tT))}, obs(tT), "T")
	op := operation(t, merge)

	call, err := resolve(t, op, arg(ir.String), arg(ir.String))
	require.NoError(t, err)
	assert.Equal(t, ir.String, call.Elem())
	assert.Len(t, call.Rest, 2)

	_, err = resolve(t, op, arg(ir.String), arg(ir.Int32))
	assert.True(t, IsUnresolvedGeneric(err))
}

func TestResolve_FixedAndVariadicSplit(t *testing.T) {
	s := variadic([]*ir.Type{obs(ir.String), ir.ArrayOf(obs(ir.Int64))}, obs(ir.String))
	op := operation(t, s)

	call, err := resolve(t, op, arg(ir.String), arg(ir.Int32), arg(ir.Int64))
	require.NoError(t, err)
	require.Len(t, call.Arguments, 1)
	require.Len(t, call.Rest, 2)
	_, converted := call.Rest[0].(*ir.Convert)
	assert.True(t, converted)

	frag, ok := call.Fragment(nil).(*ir.Apply)
	require.True(t, ok)
	assert.Len(t, frag.Args, 3)
	assert.Equal(t, "process", frag.Name)
}

func TestResolve_CovariantArgumentNotConverted(t *testing.T) {
	shape := ir.NewInterface("Shape")
	circle := ir.NewNamed("Circle", nil, shape)
	op := operation(t, sig([]*ir.Type{obs(shape)}, obs(shape)))

	in := arg(circle)
	call, err := resolve(t, op, in)
	require.NoError(t, err)
	assert.Same(t, in, call.Arguments[0])
}

func TestCall_FragmentInvokesImplWithSplitInputs(t *testing.T) {
	var got *Invocation
	s := variadic([]*ir.Type{obs(ir.String), ir.ArrayOf(obs(ir.String))}, obs(ir.String))
	s.Impl = func(inv *Invocation) (stream.Observable, error) {
		got = inv
		return stream.Empty(), nil
	}
	op := operation(t, s)

	call, err := op.Resolve("receiver", []ir.Fragment{arg(ir.String), arg(ir.String), arg(ir.String)})
	require.NoError(t, err)
	frag := call.Fragment(nil).(*ir.Apply)
	_, err = frag.Op([]stream.Observable{stream.Empty(), stream.Empty(), stream.Empty()})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "receiver", got.Receiver)
	assert.Len(t, got.Inputs, 1)
	assert.Len(t, got.Rest, 2)
}
