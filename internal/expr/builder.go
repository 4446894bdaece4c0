package expr

import (
	"fmt"
	"log/slog"

	"github.com/roach88/rxflow/internal/graph"
	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/scope"
)

// Unbounded marks a Range without an upper limit.
const Unbounded = -1

// Range is an accepted input-arity interval. Max may be Unbounded.
type Range struct {
	Min int
	Max int
}

// Exactly returns the range [n, n].
func Exactly(n int) Range { return Range{Min: n, Max: n} }

// Contains reports whether n is inside the range.
func (r Range) Contains(n int) bool {
	return n >= r.Min && (r.Max == Unbounded || n <= r.Max)
}

func (r Range) String() string {
	if r.Max == Unbounded {
		return fmt.Sprintf("[%d, ∞)", r.Min)
	}
	return fmt.Sprintf("[%d, %d]", r.Min, r.Max)
}

// Builder is a node descriptor.
type Builder interface {
	// ArgumentRange returns the accepted number of inputs.
	ArgumentRange() Range
	// Build produces the node's fragment from its ordered inputs.
	Build(ctx *BuildContext, args []ir.Fragment) (ir.Fragment, error)
}

// Workflow is a graph of node descriptors.
type Workflow = graph.Graph[Builder]

// Node is a vertex of a Workflow.
type Node = graph.Node[Builder]

// NewWorkflow returns an empty workflow.
func NewWorkflow() *Workflow {
	return graph.New[Builder]()
}

// CompileFunc builds a nested workflow inside the given scope with the
// given inputs.
type CompileFunc func(w *Workflow, sc *scope.Context, inputs []ir.Fragment) (ir.Fragment, error)

// BuildContext is passed to every Build call. Scope and Inputs are only
// populated for descriptors implementing ContextConsumer.
type BuildContext struct {
	// Scope is the active compilation scope.
	Scope *scope.Context
	// Inputs are the arguments the host passed to the workflow being built.
	Inputs []ir.Fragment
	// Compile builds nested workflows.
	Compile CompileFunc
	// Logger receives build diagnostics.
	Logger *slog.Logger
}

func (c *BuildContext) logger() *slog.Logger {
	if c != nil && c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// ContextConsumer marks descriptors that need the compilation scope.
type ContextConsumer interface {
	Builder
	RequiresContext()
}

// ChannelPublisher declares a named channel.
type ChannelPublisher interface {
	Builder
	ChannelName() string
}

// ChannelSubscriber refers to a named channel declared elsewhere.
type ChannelSubscriber interface {
	Builder
	SubscribedChannel() string
}

// SubGraphHost owns a nested workflow.
type SubGraphHost interface {
	Builder
	// SubGraph returns the nested workflow, loading it if necessary.
	SubGraph() (*Workflow, error)
	// Transparent reports whether the host shares its enclosing channel
	// namespace.
	Transparent() bool
}

// ArgumentTransformer routes its built fragment to each successor itself.
type ArgumentTransformer interface {
	Builder
	// BuildArgument returns what successor receives from source on slot
	// index, and whether it is a build dependency rather than an input.
	BuildArgument(source ir.Fragment, successor Builder, index int) (arg ir.Fragment, dependency bool, err error)
}

// TerminalOutput marks the workflow output node.
type TerminalOutput interface {
	Builder
	IsWorkflowOutput()
}

// Unwrap strips Inspect decorators.
func Unwrap(b Builder) Builder {
	for {
		in, ok := b.(*Inspect)
		if !ok {
			return b
		}
		b = in.Builder
	}
}

// Element strips both Inspect and Disable decorators.
func Element(b Builder) Builder {
	for {
		switch x := b.(type) {
		case *Inspect:
			b = x.Builder
		case *Disable:
			b = x.Builder
		default:
			return b
		}
	}
}

// IsDisabled reports whether b is disabled under any Inspect layers.
func IsDisabled(b Builder) bool {
	_, ok := Unwrap(b).(*Disable)
	return ok
}

// Describe returns a short label for b.
func Describe(b Builder) string {
	if b == nil {
		return "<nil>"
	}
	if s, ok := b.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", b)
}

// CheckArity validates the number of inputs of b.
func CheckArity(b Builder, args []ir.Fragment) error {
	r := b.ArgumentRange()
	if r.Contains(len(args)) {
		return nil
	}
	if len(args) < r.Min {
		return Errorf(CodeArity, b, "unsupported number of arguments: this node requires at least %d input(s), got %d", r.Min, len(args))
	}
	return Errorf(CodeArity, b, "unsupported number of arguments: this node accepts at most %d input(s), got %d", r.Max, len(args))
}
