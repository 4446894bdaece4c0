package overload

import (
	"fmt"
	"slices"
)

// Table is the registry of operations available to combinator nodes. It is
// built once and read concurrently afterwards.
type Table struct {
	ops   map[string]*Operation
	names []string
}

// NewTable validates and indexes ops. Operation names must be unique.
func NewTable(ops ...*Operation) (*Table, error) {
	t := &Table{ops: make(map[string]*Operation, len(ops))}
	for _, op := range ops {
		if op.Name == "" {
			return nil, fmt.Errorf("operation name is required")
		}
		if _, exists := t.ops[op.Name]; exists {
			return nil, fmt.Errorf("duplicate operation: %q", op.Name)
		}
		if len(op.Signatures) == 0 {
			return nil, fmt.Errorf("operation %q has no signatures", op.Name)
		}
		for _, sig := range op.Signatures {
			sig.name = op.Name
			if err := sig.validate(); err != nil {
				return nil, err
			}
		}
		t.ops[op.Name] = op
		t.names = append(t.names, op.Name)
	}
	slices.Sort(t.names)
	return t, nil
}

// Lookup returns the operation registered under name.
func (t *Table) Lookup(name string) (*Operation, bool) {
	op, ok := t.ops[name]
	return op, ok
}

// Names returns the registered operation names in sorted order.
func (t *Table) Names() []string {
	return slices.Clone(t.names)
}
