package overload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/ir"
)

func TestNewTable_Validation(t *testing.T) {
	tests := []struct {
		name string
		op   *Operation
	}{
		{"missing name", &Operation{Signatures: []*Signature{sig(nil, obs(ir.Int32))}}},
		{"no signatures", &Operation{Name: "x"}},
		{"missing impl", &Operation{Name: "x", Signatures: []*Signature{{Result: obs(ir.Int32)}}}},
		{"undeclared generic", &Operation{Name: "x", Signatures: []*Signature{sig([]*ir.Type{obs(tT)}, obs(tT))}}},
		{"variadic without array", &Operation{Name: "x", Signatures: []*Signature{variadic([]*ir.Type{obs(ir.Int32)}, obs(ir.Int32))}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.op)
			assert.Error(t, err)
		})
	}
}

func TestNewTable_DuplicateOperation(t *testing.T) {
	_, err := NewTable(
		&Operation{Name: "x", Signatures: []*Signature{sig(nil, obs(ir.Int32))}},
		&Operation{Name: "x", Signatures: []*Signature{sig(nil, obs(ir.Int32))}},
	)
	assert.ErrorContains(t, err, "duplicate operation")
}

func TestTable_LookupAndNames(t *testing.T) {
	table, err := NewTable(
		&Operation{Name: "zip", Signatures: []*Signature{sig(nil, obs(ir.Int32))}},
		&Operation{Name: "merge", Signatures: []*Signature{sig(nil, obs(ir.Int32))}},
	)
	require.NoError(t, err)

	op, ok := table.Lookup("zip")
	require.True(t, ok)
	assert.Equal(t, "zip", op.Signatures[0].Name())
	assert.Equal(t, []string{"merge", "zip"}, table.Names())

	_, ok = table.Lookup("missing")
	assert.False(t, ok)
}

func TestOperation_ArgumentRange(t *testing.T) {
	op := &Operation{Name: "x", Signatures: []*Signature{
		sig([]*ir.Type{obs(ir.Int32)}, obs(ir.Int32)),
		sig([]*ir.Type{obs(ir.Int32), obs(ir.Int32)}, obs(ir.Int32)),
	}}
	lo, hi := op.ArgumentRange()
	assert.Equal(t, 1, lo)
	assert.Equal(t, 2, hi)

	op.Signatures = append(op.Signatures, variadic([]*ir.Type{ir.ArrayOf(obs(ir.Int32))}, obs(ir.Int32)))
	lo, hi = op.ArgumentRange()
	assert.Equal(t, 0, lo)
	assert.Equal(t, Unbounded, hi)
}

func TestSignature_String(t *testing.T) {
	s := variadic([]*ir.Type{obs(ir.String), ir.ArrayOf(obs(tT))}, obs(tT), "T")
	s.name = "concat"
	assert.Equal(t, "concat<T>(Observable<string>, ...Observable<T>[]) Observable<T>", s.String())
}
