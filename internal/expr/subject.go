package expr

import (
	"errors"
	"fmt"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/scope"
)

func requireScope(ctx *BuildContext, b Builder) (*scope.Context, error) {
	if ctx == nil || ctx.Scope == nil {
		return nil, Errorf(CodeMissingContext, b, "no compilation scope is available for this node")
	}
	return ctx.Scope, nil
}

func declare(ctx *BuildContext, b Builder, v *ir.Variable) error {
	sc, err := requireScope(ctx, b)
	if err != nil {
		return err
	}
	if v.Name == "" {
		return Errorf(CodeUnnamedChannel, b, "a valid channel name must be specified")
	}
	if err := sc.AddVariable(v); err != nil {
		if errors.Is(err, scope.ErrDuplicateVariable) {
			return &BuildError{Code: CodeDuplicateChannel, Message: fmt.Sprintf("channel %q is already declared in this scope", v.Name), Node: b, Err: err}
		}
		return err
	}
	ctx.logger().Debug("channel declared", "channel", v.Name, "kind", v.Kind.String(), "type", v.Elem.String())
	return nil
}

// Subject publishes its input into a named channel and forwards it.
type Subject struct {
	Name string
	Kind ir.ChannelKind
	// Capacity bounds the history of a replay channel. Zero is unbounded.
	Capacity int
}

// NewBehaviorSubject returns a publisher whose channel replays its latest
// value to late subscribers.
func NewBehaviorSubject(name string) *Subject {
	return &Subject{Name: name, Kind: ir.ChannelBehavior}
}

// NewReplaySubject returns a publisher whose channel replays up to
// capacity values.
func NewReplaySubject(name string, capacity int) *Subject {
	return &Subject{Name: name, Kind: ir.ChannelReplay, Capacity: capacity}
}

func (*Subject) ArgumentRange() Range { return Exactly(1) }

// RequiresContext implements ContextConsumer.
func (*Subject) RequiresContext() {}

// ChannelName implements ChannelPublisher.
func (s *Subject) ChannelName() string { return s.Name }

func (s *Subject) Build(ctx *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	v := &ir.Variable{Name: s.Name, Elem: args[0].Type(), Kind: s.Kind, Capacity: s.Capacity}
	if err := declare(ctx, s, v); err != nil {
		return nil, err
	}
	return &ir.VariableWrite{Source: args[0], Var: v}, nil
}

func (s *Subject) String() string { return fmt.Sprintf("Subject(%s)", s.Name) }

// SourceSubject declares a typed channel without an input and emits what
// other nodes multicast into it.
type SourceSubject struct {
	Name string
	Elem *ir.Type
	Kind ir.ChannelKind
}

func (*SourceSubject) ArgumentRange() Range { return Exactly(0) }

// RequiresContext implements ContextConsumer.
func (*SourceSubject) RequiresContext() {}

// ChannelName implements ChannelPublisher.
func (s *SourceSubject) ChannelName() string { return s.Name }

func (s *SourceSubject) Build(ctx *BuildContext, _ []ir.Fragment) (ir.Fragment, error) {
	elem := s.Elem
	if elem == nil {
		elem = ir.Object
	}
	v := &ir.Variable{Name: s.Name, Elem: elem, Kind: s.Kind}
	if err := declare(ctx, s, v); err != nil {
		return nil, err
	}
	return &ir.VariableRef{Var: v}, nil
}

func (s *SourceSubject) String() string { return fmt.Sprintf("SourceSubject(%s)", s.Name) }

// SubscribeSubject emits the values published to a named channel. A
// reference to a channel declared nowhere in scope compiles to ir.Empty.
type SubscribeSubject struct {
	Name string
}

func (*SubscribeSubject) ArgumentRange() Range { return Exactly(0) }

// RequiresContext implements ContextConsumer.
func (*SubscribeSubject) RequiresContext() {}

// SubscribedChannel implements ChannelSubscriber.
func (s *SubscribeSubject) SubscribedChannel() string { return s.Name }

func (s *SubscribeSubject) Build(ctx *BuildContext, _ []ir.Fragment) (ir.Fragment, error) {
	sc, err := requireScope(ctx, s)
	if err != nil {
		return nil, err
	}
	if s.Name == "" {
		return ir.Empty, nil
	}
	v, err := sc.Variable(s.Name)
	if err != nil {
		ctx.logger().Debug("channel unresolved", "channel", s.Name)
		return ir.Empty, nil
	}
	return &ir.VariableRef{Var: v}, nil
}

func (s *SubscribeSubject) String() string { return fmt.Sprintf("SubscribeSubject(%s)", s.Name) }

// MulticastSubject pushes its input into an existing named channel and
// forwards it. Without a matching channel the input passes through.
type MulticastSubject struct {
	Name string
}

func (*MulticastSubject) ArgumentRange() Range { return Exactly(1) }

// RequiresContext implements ContextConsumer.
func (*MulticastSubject) RequiresContext() {}

// SubscribedChannel implements ChannelSubscriber.
func (m *MulticastSubject) SubscribedChannel() string { return m.Name }

func (m *MulticastSubject) Build(ctx *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	sc, err := requireScope(ctx, m)
	if err != nil {
		return nil, err
	}
	source := args[0]
	if m.Name == "" {
		return source, nil
	}
	v, err := sc.Variable(m.Name)
	if err != nil {
		ctx.logger().Debug("channel unresolved", "channel", m.Name)
		return source, nil
	}
	from := source.Type()
	if !ir.Equal(from, v.Elem) {
		switch {
		case ir.HasNumericConversion(from, v.Elem):
			source = &ir.Convert{Source: source, To: v.Elem}
		case ir.IsAssignable(from, v.Elem):
		default:
			return nil, fmt.Errorf("cannot multicast %s values into channel %q of type %s", from, m.Name, v.Elem)
		}
	}
	return &ir.VariableWrite{Source: source, Var: v}, nil
}

func (m *MulticastSubject) String() string { return fmt.Sprintf("MulticastSubject(%s)", m.Name) }
