package expr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/scope"
)

// parameterRange accepts up to one input per workflow input node.
func parameterRange(w *Workflow) Range {
	n := 0
	if w != nil {
		for _, node := range w.Nodes() {
			if _, ok := Unwrap(node.Value).(*WorkflowInput); ok {
				n++
			}
		}
	}
	return Range{Min: 0, Max: n}
}

func compileIn(ctx *BuildContext, host Builder, w *Workflow, sc *scope.Context, args []ir.Fragment) (ir.Fragment, error) {
	f, err := ctx.Compile(w, sc, args)
	if err != nil {
		return nil, WrapHost(err, host)
	}
	return f, nil
}

func requireCompiler(ctx *BuildContext, host Builder) error {
	if ctx == nil || ctx.Scope == nil || ctx.Compile == nil {
		return Errorf(CodeMissingContext, host, "no compilation context is available for this sub-graph")
	}
	return nil
}

// Nested hosts a workflow with its own channel namespace.
type Nested struct {
	Name     string
	Workflow *Workflow
}

func (n *Nested) ArgumentRange() Range { return parameterRange(n.Workflow) }

// RequiresContext implements ContextConsumer.
func (*Nested) RequiresContext() {}

// SubGraph implements SubGraphHost.
func (n *Nested) SubGraph() (*Workflow, error) { return n.Workflow, nil }

// Transparent implements SubGraphHost.
func (*Nested) Transparent() bool { return false }

func (n *Nested) Build(ctx *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	if err := requireCompiler(ctx, n); err != nil {
		return nil, err
	}
	return compileIn(ctx, n, n.Workflow, ctx.Scope.Open(scope.KindNested), args)
}

func (n *Nested) String() string { return "Nested(" + n.Name + ")" }

// Group hosts a workflow that shares the enclosing channel namespace.
type Group struct {
	Name     string
	Workflow *Workflow
}

func (g *Group) ArgumentRange() Range { return parameterRange(g.Workflow) }

// RequiresContext implements ContextConsumer.
func (*Group) RequiresContext() {}

// SubGraph implements SubGraphHost.
func (g *Group) SubGraph() (*Workflow, error) { return g.Workflow, nil }

// Transparent implements SubGraphHost.
func (*Group) Transparent() bool { return true }

func (g *Group) Build(ctx *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	if err := requireCompiler(ctx, g); err != nil {
		return nil, err
	}
	return compileIn(ctx, g, g.Workflow, ctx.Scope.Open(scope.KindGroup), args)
}

func (g *Group) String() string { return "Group(" + g.Name + ")" }

// IncludeResolver loads the workflow stored at path.
type IncludeResolver interface {
	ResolveInclude(path string) (*Workflow, error)
}

// IncludeResolverFunc adapts a function to IncludeResolver.
type IncludeResolverFunc func(path string) (*Workflow, error)

// ResolveInclude implements IncludeResolver.
func (f IncludeResolverFunc) ResolveInclude(path string) (*Workflow, error) { return f(path) }

// Include hosts a workflow loaded by path. Its channels live in the
// enclosing namespace; a workflow including itself is rejected.
type Include struct {
	Path     string
	Resolver IncludeResolver

	once     sync.Once
	workflow *Workflow
	err      error
}

// SubGraph implements SubGraphHost. The workflow is loaded once.
func (in *Include) SubGraph() (*Workflow, error) {
	if in.Path == "" {
		return nil, nil
	}
	in.once.Do(func() {
		if in.Resolver == nil {
			in.err = fmt.Errorf("no resolver for include %q", in.Path)
			return
		}
		in.workflow, in.err = in.Resolver.ResolveInclude(in.Path)
	})
	return in.workflow, in.err
}

// Transparent implements SubGraphHost.
func (*Include) Transparent() bool { return true }

// RequiresContext implements ContextConsumer.
func (*Include) RequiresContext() {}

func (in *Include) ArgumentRange() Range {
	w, err := in.SubGraph()
	if err != nil || w == nil {
		return Range{Min: 0, Max: 1}
	}
	return parameterRange(w)
}

func (in *Include) Build(ctx *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	w, err := in.SubGraph()
	if err != nil {
		return nil, err
	}
	if w == nil {
		if len(args) > 0 {
			return args[0], nil
		}
		return ir.Empty, nil
	}
	if err := requireCompiler(ctx, in); err != nil {
		return nil, err
	}
	sc, err := ctx.Scope.OpenInclude(in.Path)
	if err != nil {
		if errors.Is(err, scope.ErrIncludeRecursion) {
			return nil, &BuildError{Code: CodeIncludeRecursion, Message: fmt.Sprintf("include workflow %q cannot include itself", in.Path), Node: in, Err: err}
		}
		return nil, err
	}
	return compileIn(ctx, in, w, sc, args)
}

func (in *Include) String() string { return "Include(" + in.Path + ")" }
