package expr

import (
	"fmt"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/stream"
)

// Constant emits Value once and completes.
type Constant struct {
	Value any
	// Elem overrides the element type inferred from Value.
	Elem *ir.Type
}

func (c *Constant) ArgumentRange() Range { return Exactly(0) }

func (c *Constant) Build(*BuildContext, []ir.Fragment) (ir.Fragment, error) {
	elem := c.Elem
	if elem == nil {
		elem = ir.TypeOf(c.Value)
	}
	v, err := ir.ConvertValue(c.Value, elem)
	if err != nil {
		return nil, err
	}
	return &ir.Source{
		Name:  "return",
		Elem:  elem,
		Attrs: map[string]any{"value": v},
		New:   func() stream.Observable { return stream.Return(v) },
	}, nil
}

func (c *Constant) String() string { return fmt.Sprintf("Constant(%v)", c.Value) }

// Values emits each element of Items in order and completes.
type Values struct {
	Items []any
	Elem  *ir.Type
}

func (v *Values) ArgumentRange() Range { return Exactly(0) }

func (v *Values) Build(*BuildContext, []ir.Fragment) (ir.Fragment, error) {
	elem := v.Elem
	if elem == nil {
		elem = ir.Object
		if len(v.Items) > 0 {
			elem = ir.TypeOf(v.Items[0])
		}
	}
	items := make([]any, len(v.Items))
	for i, item := range v.Items {
		c, err := ir.ConvertValue(item, elem)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		items[i] = c
	}
	return &ir.Source{
		Name:  "values",
		Elem:  elem,
		Attrs: map[string]any{"count": len(items)},
		New:   func() stream.Observable { return stream.FromSlice(items) },
	}, nil
}

func (v *Values) String() string { return fmt.Sprintf("Values(%d)", len(v.Items)) }

// Generator is a zero-input node backed by an arbitrary observable factory.
type Generator struct {
	Name string
	Elem *ir.Type
	New  func() stream.Observable
}

func (g *Generator) ArgumentRange() Range { return Exactly(0) }

func (g *Generator) Build(*BuildContext, []ir.Fragment) (ir.Fragment, error) {
	if g.New == nil {
		return nil, fmt.Errorf("generator %q has no factory", g.Name)
	}
	elem := g.Elem
	if elem == nil {
		elem = ir.Object
	}
	return &ir.Source{Name: g.Name, Elem: elem, New: g.New}, nil
}

func (g *Generator) String() string { return g.Name }

// Pass forwards its single input.
type Pass struct{}

func (*Pass) ArgumentRange() Range { return Exactly(1) }

func (*Pass) Build(_ *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	return args[0], nil
}

func (*Pass) String() string { return "Pass" }

// Select projects each element of its input through Fn.
type Select struct {
	Name string
	// Elem is the result element type. Nil keeps the input type.
	Elem *ir.Type
	Fn   func(any) (any, error)
}

func (s *Select) ArgumentRange() Range { return Exactly(1) }

func (s *Select) Build(_ *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	elem := s.Elem
	if elem == nil {
		elem = args[0].Type()
	}
	fn := s.Fn
	return &ir.Apply{
		Name: "select",
		Elem: elem,
		Attrs: map[string]any{
			"name": s.Name,
		},
		Args: args,
		Op: func(in []stream.Observable) (stream.Observable, error) {
			if fn == nil {
				return in[0], nil
			}
			return stream.Map(in[0], fn), nil
		},
	}, nil
}

func (s *Select) String() string { return "Select(" + s.Name + ")" }

// WorkflowInput reads the Index-th argument passed to the enclosing
// sub-graph.
type WorkflowInput struct {
	Index int
}

func (*WorkflowInput) ArgumentRange() Range { return Exactly(0) }

// RequiresContext implements ContextConsumer.
func (*WorkflowInput) RequiresContext() {}

func (w *WorkflowInput) Build(ctx *BuildContext, _ []ir.Fragment) (ir.Fragment, error) {
	if ctx == nil || w.Index >= len(ctx.Inputs) || w.Index < 0 {
		return ir.Empty, nil
	}
	return ctx.Inputs[w.Index], nil
}

func (w *WorkflowInput) String() string { return fmt.Sprintf("WorkflowInput(%d)", w.Index) }

// WorkflowOutput is the terminal output of a workflow.
type WorkflowOutput struct{}

func (*WorkflowOutput) ArgumentRange() Range { return Exactly(1) }

func (*WorkflowOutput) Build(_ *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	return args[0], nil
}

// IsWorkflowOutput implements TerminalOutput.
func (*WorkflowOutput) IsWorkflowOutput() {}

func (*WorkflowOutput) String() string { return "WorkflowOutput" }
