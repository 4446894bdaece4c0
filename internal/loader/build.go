package loader

import (
	"fmt"

	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/ir"
)

var subjectKinds = map[string]ir.ChannelKind{
	"":          ir.ChannelBroadcast,
	"broadcast": ir.ChannelBroadcast,
	"behavior":  ir.ChannelBehavior,
	"replay":    ir.ChannelReplay,
}

// graphBuilder converts a validated document into a workflow.
type graphBuilder struct {
	loader *Loader
	dir    string
}

// build returns the workflow for doc and its nodes by ID.
func (b *graphBuilder) build(doc *Document) (*expr.Workflow, map[string]*expr.Node, error) {
	w := expr.NewWorkflow()
	nodes := make(map[string]*expr.Node, len(doc.Nodes))
	for _, spec := range doc.Nodes {
		node, err := b.node(spec)
		if err != nil {
			return nil, nil, fmt.Errorf("node %q: %w", spec.ID, err)
		}
		if spec.Disabled {
			node = &expr.Disable{Builder: node}
		}
		if spec.Inspect {
			node = expr.NewInspect(node)
		}
		nodes[spec.ID] = w.Add(node)
	}

	for i, slot := range doc.slots() {
		e := doc.Edges[i]
		if _, err := w.Connect(nodes[e.From], nodes[e.To], slot); err != nil {
			return nil, nil, fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	return w, nodes, nil
}

func (b *graphBuilder) elem(spec NodeSpec) (*ir.Type, error) {
	if spec.Type == "" {
		return nil, nil
	}
	return ParseType(spec.Type)
}

func (b *graphBuilder) node(spec NodeSpec) (expr.Builder, error) {
	elem, err := b.elem(spec)
	if err != nil {
		return nil, err
	}

	switch spec.Kind {
	case KindConstant:
		return &expr.Constant{Value: spec.Value, Elem: elem}, nil
	case KindValues:
		return &expr.Values{Items: spec.Items, Elem: elem}, nil
	case KindOp:
		op, ok := b.loader.table.Lookup(spec.Op)
		if !ok {
			return nil, fmt.Errorf("unknown operation %q", spec.Op)
		}
		return expr.NewCombinator(op, spec.Props), nil
	case KindPass:
		return &expr.Pass{}, nil
	case KindSelect:
		sel := &expr.Select{Name: spec.ID, Elem: elem}
		if path := spec.Member; path != "" {
			sel.Fn = func(v any) (any, error) { return expr.Member(v, path) }
		}
		return sel, nil
	case KindInput:
		return &expr.WorkflowInput{Index: spec.Index}, nil
	case KindOutput:
		return &expr.WorkflowOutput{}, nil
	case KindSubject:
		return &expr.Subject{Name: spec.Channel, Kind: subjectKinds[spec.Subject], Capacity: spec.Capacity}, nil
	case KindSourceSubject:
		return &expr.SourceSubject{Name: spec.Channel, Elem: elem, Kind: subjectKinds[spec.Subject]}, nil
	case KindSubscribe:
		return &expr.SubscribeSubject{Name: spec.Channel}, nil
	case KindMulticast:
		return &expr.MulticastSubject{Name: spec.Channel}, nil
	case KindMapping:
		m := &expr.PropertyMapping{}
		for _, ms := range spec.Mappings {
			m.Mappings = append(m.Mappings, expr.Mapping{Name: ms.Property, Selector: ms.Select})
		}
		return m, nil
	case KindNested, KindGroup:
		w, _, err := b.build(spec.Workflow)
		if err != nil {
			return nil, err
		}
		if spec.Kind == KindGroup {
			return &expr.Group{Name: spec.ID, Workflow: w}, nil
		}
		return &expr.Nested{Name: spec.ID, Workflow: w}, nil
	case KindInclude:
		return &expr.Include{Path: b.loader.resolvePath(b.dir, spec.Path), Resolver: b.loader}, nil
	}
	return nil, fmt.Errorf("unknown node kind %q", spec.Kind)
}
