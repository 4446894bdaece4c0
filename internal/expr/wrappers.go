package expr

import (
	"fmt"

	"github.com/roach88/rxflow/internal/graph"
	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/stream"
)

// Disable keeps a node in the graph without evaluating it. Its inputs are
// handed on unchanged to its successors.
type Disable struct {
	Builder Builder
}

func (d *Disable) ArgumentRange() Range {
	return Range{Min: 0, Max: d.Builder.ArgumentRange().Max}
}

func (d *Disable) Build(_ *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	if _, ok := Element(d.Builder).(ArgumentTransformer); ok {
		return ir.Disconnect, nil
	}
	if len(args) == 0 {
		return ir.Empty, nil
	}
	return &ir.Disabled{Arguments: args}, nil
}

// DecoratorDepth counts the wrappers around the innermost builder.
func (d *Disable) DecoratorDepth() int { return 1 + decoratorDepth(d.Builder) }

func (d *Disable) String() string { return "Disable(" + Describe(d.Builder) + ")" }

// InspectEvent is one notification observed by an Inspect wrapper.
type InspectEvent struct {
	Value     any
	Err       error
	Completed bool
}

// Inspect observes the output of the wrapped node. Observation never
// terminates the Output sequence, so it outlives individual runs.
type Inspect struct {
	Builder Builder
	output  *stream.PublishSubject
}

// NewInspect wraps b.
func NewInspect(b Builder) *Inspect {
	return &Inspect{Builder: b, output: stream.NewSubject()}
}

func (in *Inspect) ArgumentRange() Range { return in.Builder.ArgumentRange() }

func (in *Inspect) Build(ctx *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	f, err := in.Builder.Build(ctx, args)
	if err != nil || !ir.IsReducible(f) {
		return f, err
	}
	if in.output == nil {
		in.output = stream.NewSubject()
	}
	out := in.output
	return &ir.Apply{
		Name: "inspect",
		Elem: f.Type(),
		Args: []ir.Fragment{f},
		Op: func(inputs []stream.Observable) (stream.Observable, error) {
			return stream.Do(inputs[0], stream.ObserverFuncs{
				Next:      func(v any) { out.OnNext(InspectEvent{Value: v}) },
				Error:     func(err error) { out.OnNext(InspectEvent{Err: err}) },
				Completed: func() { out.OnNext(InspectEvent{Completed: true}) },
			}), nil
		},
	}, nil
}

// Output returns the sequence of InspectEvents observed so far onward.
func (in *Inspect) Output() stream.Observable {
	if in.output == nil {
		in.output = stream.NewSubject()
	}
	return in.output
}

// DecoratorDepth counts the wrappers around the innermost builder.
func (in *Inspect) DecoratorDepth() int { return 1 + decoratorDepth(in.Builder) }

func decoratorDepth(b Builder) int {
	if d, ok := b.(graph.Decorator); ok {
		return d.DecoratorDepth()
	}
	return 0
}

func (in *Inspect) String() string { return Describe(in.Builder) }

// ToInspectable returns a copy of w whose nodes are all wrapped in Inspect,
// including the nodes of nested workflows. Data edges are preserved.
func ToInspectable(w *Workflow) (*Workflow, error) {
	return convert(w, func(b Builder) (Builder, error) {
		if in, ok := b.(*Inspect); ok {
			return in, nil
		}
		h, err := withWorkflow(b, ToInspectable)
		if err != nil {
			return nil, err
		}
		return NewInspect(h), nil
	})
}

// FromInspectable returns a copy of w with every Inspect wrapper removed.
func FromInspectable(w *Workflow) (*Workflow, error) {
	return convert(w, func(b Builder) (Builder, error) {
		b = Unwrap(b)
		if d, ok := b.(*Disable); ok {
			inner, err := withWorkflow(Unwrap(d.Builder), FromInspectable)
			if err != nil {
				return nil, err
			}
			return &Disable{Builder: inner}, nil
		}
		return withWorkflow(b, FromInspectable)
	})
}

// withWorkflow returns a copy of a workflow host whose workflow has been
// converted by fn. Other builders are returned unchanged.
func withWorkflow(b Builder, fn func(*Workflow) (*Workflow, error)) (Builder, error) {
	switch h := b.(type) {
	case *Nested:
		w, err := fn(h.Workflow)
		if err != nil {
			return nil, err
		}
		return &Nested{Name: h.Name, Workflow: w}, nil
	case *Group:
		w, err := fn(h.Workflow)
		if err != nil {
			return nil, err
		}
		return &Group{Name: h.Name, Workflow: w}, nil
	}
	return b, nil
}

// convert copies w, mapping every node value through fn. Each copy keeps
// the instance number of its original, so the copies sort like w.
func convert(w *Workflow, fn func(Builder) (Builder, error)) (*Workflow, error) {
	out := NewWorkflow()
	mapped := make(map[*Node]*Node, w.Len())
	for _, n := range w.Nodes() {
		v, err := fn(n.Value)
		if err != nil {
			return nil, err
		}
		mapped[n] = out.AddWithInstance(v, n.Order())
	}
	for _, n := range w.Nodes() {
		for _, e := range n.Successors {
			if e.Dependency {
				continue
			}
			if _, err := out.Connect(mapped[n], mapped[e.Target], e.Index); err != nil {
				return nil, fmt.Errorf("convert %s: %w", Describe(n.Value), err)
			}
		}
	}
	return out, nil
}
