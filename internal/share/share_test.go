package share

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/ir"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func source(name string) ir.Fragment {
	return &ir.Source{Name: name, Elem: ir.Int64}
}

func apply(name string, args ...ir.Fragment) ir.Fragment {
	return &ir.Apply{Name: name, Elem: ir.Int64, Args: args}
}

func nodes(n int) []*expr.Node {
	w := expr.NewWorkflow()
	out := make([]*expr.Node, n)
	for i := range out {
		out[i] = w.Add(&expr.Pass{})
	}
	return out
}

func TestScope_CloseDependsOnOccurrences(t *testing.T) {
	src := source("a")
	p := &ir.Placeholder{ID: 1, Elem: ir.Int64}
	s := &Scope{Source: src, Placeholder: p}

	body := apply("zip", p, p)
	closed, ok := s.Close(body).(*ir.Multicast)
	require.True(t, ok)
	assert.Same(t, src, closed.Source)
	assert.Same(t, body, closed.Body)

	single := apply("take", p)
	cancelled := s.Close(single).(*ir.Apply)
	assert.Same(t, src, cancelled.Args[0])

	none := source("b")
	assert.Same(t, none, s.Close(none))
}

func TestManager_FanOutClosesAtJoin(t *testing.T) {
	// a -> b, a -> c, b -> d, c -> d
	n := nodes(4)
	b, c, d := n[1], n[2], n[3]
	m := NewManager(discard())

	src := source("a")
	p := m.Open(src, FanOut, []*expr.Node{b, c})
	assert.Equal(t, FanOut, p.Strategy)

	fb := m.Visit(b, apply("b", p), []*expr.Node{d})
	fc := m.Visit(c, apply("c", p), []*expr.Node{d})
	assert.Equal(t, 1, m.Len())

	fd := m.Visit(d, apply("merge", fb, fc), nil)
	assert.Equal(t, 0, m.Len())
	mc, ok := fd.(*ir.Multicast)
	require.True(t, ok)
	assert.Same(t, p, mc.Placeholder)
	assert.Same(t, src, mc.Source)
}

func TestManager_DanglingConsumersCloseAtEnd(t *testing.T) {
	n := nodes(3)
	b, c := n[1], n[2]
	m := NewManager(discard())

	p := m.Open(source("a"), FanOut, []*expr.Node{b, c})
	fb := m.Visit(b, apply("b", p), nil)
	fc := m.Visit(c, apply("c", p), nil)
	assert.Equal(t, 1, m.Len())

	out := m.CloseAll(&ir.Output{Connections: []ir.Fragment{fb, fc}})
	assert.IsType(t, &ir.Multicast{}, out)
	assert.Equal(t, 0, m.Len())
}

func TestManager_SingleSurvivorCancels(t *testing.T) {
	n := nodes(3)
	b, c := n[1], n[2]
	m := NewManager(discard())

	src := source("a")
	p := m.Open(src, ReplayLatest, []*expr.Node{b, c})
	m.Visit(b, ir.Empty, nil)
	fc := m.Visit(c, apply("c", p), nil)

	out := m.CloseAll(fc).(*ir.Apply)
	assert.Same(t, src, out.Args[0])
}

func TestManager_DisabledBundleForwardsReferences(t *testing.T) {
	// a -> b (disabled), a -> c; b -> d, c -> d
	n := nodes(4)
	b, c, d := n[1], n[2], n[3]
	m := NewManager(discard())

	p := m.Open(source("a"), FanOut, []*expr.Node{b, c})
	bundle := m.Visit(b, &ir.Disabled{Arguments: []ir.Fragment{p}}, []*expr.Node{d})
	assert.IsType(t, &ir.Disabled{}, bundle)

	fc := m.Visit(c, apply("c", p), []*expr.Node{d})
	fd := m.Visit(d, apply("zip", p, fc), nil)
	assert.IsType(t, &ir.Multicast{}, fd)
	assert.Equal(t, 0, m.Len())
}

func TestManager_DisconnectKeepsScopeOpen(t *testing.T) {
	n := nodes(3)
	b, c := n[1], n[2]
	m := NewManager(discard())

	p := m.Open(source("a"), ReplayLatest, []*expr.Node{b, c})
	m.Visit(b, ir.Disconnect, []*expr.Node{c})
	m.Visit(c, apply("c", p), nil)
	assert.Equal(t, 1, m.Len())
}
