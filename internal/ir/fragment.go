package ir

import (
	"github.com/roach88/rxflow/internal/stream"
)

// Fragment is one node of the compiled pipeline. Fragments form an immutable
// tree; the element type of the sequence a fragment produces is Type().
//
// The set of fragment kinds is closed: Empty, Disconnect, Disabled, Source,
// Apply, Convert, Placeholder, Multicast, VariableRef, VariableWrite,
// ScopeBlock, Dependent and Output.
type Fragment interface {
	// Type returns the element type of the produced sequence.
	Type() *Type
	// Children returns the direct sub-fragments in evaluation order.
	Children() []Fragment
	// WithChildren returns a copy of the fragment with its children
	// replaced. len(children) must equal len(Children()).
	WithChildren(children []Fragment) Fragment

	fragment()
}

// Operator instantiates an operation over its instantiated inputs.
type Operator func(inputs []stream.Observable) (stream.Observable, error)

// ShareStrategy selects how a shared sub-pipeline is multicast.
type ShareStrategy uint8

const (
	// FanOut shares one upstream subscription without caching.
	FanOut ShareStrategy = iota
	// ReplayLatest caches the latest value for late subscribers.
	ReplayLatest
)

func (s ShareStrategy) String() string {
	if s == ReplayLatest {
		return "replay-latest"
	}
	return "fan-out"
}

// ChannelKind selects the subject backing a named channel.
type ChannelKind uint8

const (
	// ChannelBroadcast delivers to current observers only.
	ChannelBroadcast ChannelKind = iota
	// ChannelBehavior replays the latest value to new observers.
	ChannelBehavior
	// ChannelReplay replays a bounded history to new observers.
	ChannelReplay
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelBehavior:
		return "behavior"
	case ChannelReplay:
		return "replay"
	}
	return "broadcast"
}

type sentinel struct{ name string }

func (*sentinel) Type() *Type { return Void }
func (*sentinel) Children() []Fragment { return nil }
func (s *sentinel) WithChildren([]Fragment) Fragment { return s }
func (*sentinel) fragment() {}
func (s *sentinel) String() string { return s.name }

var (
	// Empty marks a node that produced nothing: it is not routed to
	// outputs and evaluates to an immediately completing sequence.
	Empty Fragment = &sentinel{name: "empty"}

	// Disconnect marks an argument transformer whose inputs must be kept
	// alive as side connections instead of flowing to the successor.
	Disconnect Fragment = &sentinel{name: "disconnect"}
)

// Disabled is the bundle returned by a disabled node. Its arguments are
// flattened in place into the successor's argument list.
type Disabled struct {
	Arguments []Fragment
}

func (d *Disabled) Type() *Type { return Void }
func (d *Disabled) Children() []Fragment { return d.Arguments }
func (d *Disabled) WithChildren(c []Fragment) Fragment {
	return &Disabled{Arguments: c}
}
func (*Disabled) fragment() {}

// IsReducible reports whether f is an ordinary sequence fragment rather
// than one of the marker fragments.
func IsReducible(f Fragment) bool {
	switch f.(type) {
	case *Disabled:
		return false
	}
	return f != Empty && f != Disconnect
}

// Source produces a sequence without inputs.
type Source struct {
	Name  string
	Elem  *Type
	Attrs map[string]any
	New   func() stream.Observable
}

func (s *Source) Type() *Type { return s.Elem }
func (s *Source) Children() []Fragment { return nil }
func (s *Source) WithChildren([]Fragment) Fragment { return s }
func (*Source) fragment() {}

// Apply combines its argument sequences with Op.
type Apply struct {
	Name  string
	Elem  *Type
	Attrs map[string]any
	Args  []Fragment
	Op    Operator
}

func (a *Apply) Type() *Type { return a.Elem }
func (a *Apply) Children() []Fragment { return a.Args }
func (a *Apply) WithChildren(c []Fragment) Fragment {
	cp := *a
	cp.Args = c
	return &cp
}
func (*Apply) fragment() {}

// Convert coerces each element of Source to To.
type Convert struct {
	Source Fragment
	To     *Type
}

func (c *Convert) Type() *Type { return c.To }
func (c *Convert) Children() []Fragment { return []Fragment{c.Source} }
func (c *Convert) WithChildren(ch []Fragment) Fragment {
	return &Convert{Source: ch[0], To: c.To}
}
func (*Convert) fragment() {}

// Placeholder stands for the shared output of a sharing scope inside the
// scope's body. It is a leaf; the shared source lives on the Multicast
// that binds it.
type Placeholder struct {
	ID       int
	Elem     *Type
	Strategy ShareStrategy
}

func (p *Placeholder) Type() *Type { return p.Elem }
func (p *Placeholder) Children() []Fragment { return nil }
func (p *Placeholder) WithChildren([]Fragment) Fragment { return p }
func (*Placeholder) fragment() {}

// Multicast evaluates Source once per subscription and makes it available
// to Body through Placeholder.
type Multicast struct {
	Source      Fragment
	Placeholder *Placeholder
	Body        Fragment
}

func (m *Multicast) Type() *Type { return m.Body.Type() }
func (m *Multicast) Children() []Fragment { return []Fragment{m.Source, m.Body} }
func (m *Multicast) WithChildren(c []Fragment) Fragment {
	return &Multicast{Source: c[0], Placeholder: m.Placeholder, Body: c[1]}
}
func (*Multicast) fragment() {}

// Variable is a named channel owned by a compilation scope.
type Variable struct {
	Name     string
	Elem     *Type
	Kind     ChannelKind
	Capacity int
}

// VariableRef subscribes to a named channel.
type VariableRef struct {
	Var *Variable
}

func (v *VariableRef) Type() *Type { return v.Var.Elem }
func (v *VariableRef) Children() []Fragment { return nil }
func (v *VariableRef) WithChildren([]Fragment) Fragment { return v }
func (*VariableRef) fragment() {}

// VariableWrite forwards every notification of Source into a named channel
// and passes it through unchanged.
type VariableWrite struct {
	Source Fragment
	Var    *Variable
}

func (w *VariableWrite) Type() *Type { return w.Source.Type() }
func (w *VariableWrite) Children() []Fragment { return []Fragment{w.Source} }
func (w *VariableWrite) WithChildren(c []Fragment) Fragment {
	return &VariableWrite{Source: c[0], Var: w.Var}
}
func (*VariableWrite) fragment() {}

// ScopeBlock creates Variables for each subscription to Body and releases
// them, in declaration order, exactly once on the first termination or
// disposal.
type ScopeBlock struct {
	Variables []*Variable
	Body      Fragment
}

func (s *ScopeBlock) Type() *Type { return s.Body.Type() }
func (s *ScopeBlock) Children() []Fragment { return []Fragment{s.Body} }
func (s *ScopeBlock) WithChildren(c []Fragment) Fragment {
	return &ScopeBlock{Variables: s.Variables, Body: c[0]}
}
func (*ScopeBlock) fragment() {}

// Dependent subscribes Dependencies before Output. Dependency values are
// discarded and their errors are forwarded; the element type is Output's.
type Dependent struct {
	Output       Fragment
	Dependencies []Fragment
}

func (d *Dependent) Type() *Type { return d.Output.Type() }
func (d *Dependent) Children() []Fragment {
	return append(append([]Fragment(nil), d.Dependencies...), d.Output)
}
func (d *Dependent) WithChildren(c []Fragment) Fragment {
	n := len(c) - 1
	return &Dependent{Output: c[n], Dependencies: c[:n:n]}
}
func (*Dependent) fragment() {}

// Output merges the terminal output of a graph with its dangling
// connections. Output may be nil when the graph has no terminal node.
type Output struct {
	Output      Fragment
	Connections []Fragment
}

func (o *Output) Type() *Type {
	if o.Output == nil {
		return Unit
	}
	return o.Output.Type()
}

func (o *Output) Children() []Fragment {
	if o.Output == nil {
		return o.Connections
	}
	return append([]Fragment{o.Output}, o.Connections...)
}

func (o *Output) WithChildren(c []Fragment) Fragment {
	if o.Output == nil {
		return &Output{Connections: c}
	}
	return &Output{Output: c[0], Connections: c[1:]}
}
func (*Output) fragment() {}
