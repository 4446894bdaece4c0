package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/stream"
)

func source(name string) *Source {
	return &Source{Name: name, Elem: Int64, New: stream.Empty}
}

func apply(name string, args ...Fragment) *Apply {
	return &Apply{Name: name, Elem: Int64, Args: args}
}

func TestIsReducible(t *testing.T) {
	assert.False(t, IsReducible(Empty))
	assert.False(t, IsReducible(Disconnect))
	assert.False(t, IsReducible(&Disabled{}))
	assert.True(t, IsReducible(source("a")))
	assert.True(t, IsReducible(&Placeholder{ID: 1, Elem: Int64}))
}

func TestCount_CountsEveryPath(t *testing.T) {
	p := &Placeholder{ID: 1, Elem: Int64}
	body := apply("zip", p, apply("select", p))
	assert.Equal(t, 2, Count(body, p))
	assert.Equal(t, 0, Count(source("a"), p))
}

func TestReplace_PreservesUnchangedSubtrees(t *testing.T) {
	p := &Placeholder{ID: 1, Elem: Int64}
	a := source("a")
	untouched := apply("other", source("b"))
	body := apply("zip", apply("select", p), untouched)

	got := Replace(body, p, a)

	require.IsType(t, &Apply{}, got)
	zip := got.(*Apply)
	assert.NotSame(t, body, zip)
	assert.Same(t, untouched, zip.Args[1])
	assert.Same(t, a, zip.Args[0].Children()[0])
	assert.Equal(t, 1, Count(body, p), "original is not mutated")
}

func TestReplace_NoMatchReturnsSameFragment(t *testing.T) {
	body := apply("zip", source("a"))
	assert.Same(t, body, Replace(body, Empty, source("b")))
}

func TestDependent_ChildrenOrder(t *testing.T) {
	out := source("out")
	dep := source("dep")
	d := &Dependent{Output: out, Dependencies: []Fragment{dep}}
	assert.Equal(t, []Fragment{dep, out}, d.Children())

	rebuilt := d.WithChildren([]Fragment{source("dep2"), out}).(*Dependent)
	assert.Same(t, out, rebuilt.Output)
	assert.Len(t, rebuilt.Dependencies, 1)
}

func TestOutput_TypeWithoutTerminal(t *testing.T) {
	o := &Output{Connections: []Fragment{source("a")}}
	assert.Equal(t, Unit, o.Type())
	assert.Len(t, o.Children(), 1)
}

func TestFormat_RendersTree(t *testing.T) {
	p := &Placeholder{ID: 1, Elem: Int64}
	v := &Variable{Name: "x", Elem: Int64}
	f := &ScopeBlock{
		Variables: []*Variable{v},
		Body: &Multicast{
			Source:      &VariableWrite{Source: source("a"), Var: v},
			Placeholder: p,
			Body:        apply("zip", p, p),
		},
	}
	want := "scope [x:broadcast]\n" +
		"  multicast share#1 (fan-out)\n" +
		"    publish \"x\"\n" +
		"      source a : int64\n" +
		"    apply zip : int64\n" +
		"      share#1 : int64\n" +
		"      share#1 : int64\n"
	assert.Equal(t, want, Format(f))
}
