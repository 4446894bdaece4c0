package compiler

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/engine"
	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/ops"
	"github.com/roach88/rxflow/internal/stream"
	"github.com/roach88/rxflow/internal/testutil"
)

func connect(t *testing.T, w *expr.Workflow, from, to *expr.Node, index int) {
	t.Helper()
	_, err := w.Connect(from, to, index)
	require.NoError(t, err)
}

func combinator(t *testing.T, name string, props map[string]any) *expr.Combinator {
	t.Helper()
	op, ok := ops.Default().Lookup(name)
	require.True(t, ok, "operation %q", name)
	return expr.NewCombinator(op, props)
}

func build(t *testing.T, w *expr.Workflow, opts ...Option) ir.Fragment {
	t.Helper()
	f, err := Build(w, opts...)
	require.NoError(t, err)
	return f
}

func collect(t *testing.T, f ir.Fragment) []any {
	t.Helper()
	got, err := engine.Collect(context.Background(), f)
	require.NoError(t, err)
	return got
}

func times(k int64) func(any) (any, error) {
	return func(v any) (any, error) { return v.(int64) * k, nil }
}

func TestBuild_Identity(t *testing.T) {
	w := expr.NewWorkflow()
	src := w.Add(&expr.Values{Items: []any{1, 2, 3}})
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, src, out, 0)

	f := build(t, w)
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, collect(t, f))
}

func TestBuild_EmptyWorkflow(t *testing.T) {
	f := build(t, expr.NewWorkflow())
	assert.Equal(t, ir.Empty, f)
	assert.Empty(t, collect(t, f))
}

// A -> B, A -> C: A is shared and subscribed once.
func TestBuild_FanOutSubscribesOnce(t *testing.T) {
	n := testutil.NewCountingSource(ir.Int64, int64(1), int64(2))
	w := expr.NewWorkflow()
	a := w.Add(n)
	b := w.Add(&expr.Select{Name: "b", Fn: times(10)})
	c := w.Add(&expr.Select{Name: "c", Fn: times(100)})
	m := w.Add(combinator(t, "merge", nil))
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, a, b, 0)
	connect(t, w, a, c, 0)
	connect(t, w, b, m, 0)
	connect(t, w, c, m, 1)
	connect(t, w, m, out, 0)

	f := build(t, w)
	mc, ok := f.(*ir.Multicast)
	require.True(t, ok, "fan-out should compile to a multicast, got %T", f)
	assert.Equal(t, ir.FanOut, mc.Placeholder.Strategy)
	assert.Equal(t, 2, ir.Count(f, mc.Placeholder))

	got := collect(t, f)
	assert.Equal(t, 1, n.Subscriptions())
	assert.ElementsMatch(t, []any{int64(10), int64(20), int64(100), int64(200)}, got)
}

// Dangling consumers still share their source; the result only completes.
func TestBuild_FanOutDangling(t *testing.T) {
	n := testutil.NewCountingSource(ir.Int64, int64(1))
	w := expr.NewWorkflow()
	a := w.Add(n)
	b := w.Add(&expr.Select{Name: "b"})
	c := w.Add(&expr.Select{Name: "c"})
	connect(t, w, a, b, 0)
	connect(t, w, a, c, 0)

	f := build(t, w)
	assert.Empty(t, collect(t, f))
	assert.Equal(t, 1, n.Subscriptions())
}

func TestBuild_FanOutGolden(t *testing.T) {
	w := expr.NewWorkflow()
	a := w.Add(&expr.Values{Items: []any{1, 2}})
	b := w.Add(&expr.Select{Name: "b"})
	c := w.Add(&expr.Select{Name: "c"})
	connect(t, w, a, b, 0)
	connect(t, w, a, c, 0)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "fanout", []byte(ir.Format(build(t, w))))
}

// mappedRanges builds Values{3} -> PropertyMapping(count) -> two ranges
// joined by combine.
func mappedRanges(t *testing.T, combine string) *expr.Workflow {
	t.Helper()
	w := expr.NewWorkflow()
	src := w.Add(&expr.Values{Items: []any{3}})
	mapping := w.Add(&expr.PropertyMapping{Mappings: []expr.Mapping{{Name: "count"}}})
	r1 := w.Add(combinator(t, "range", map[string]any{"start": 0, "count": 1}))
	r2 := w.Add(combinator(t, "range", map[string]any{"start": 10, "count": 1}))
	m := w.Add(combinator(t, combine, nil))
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, src, mapping, 0)
	connect(t, w, mapping, r1, 0)
	connect(t, w, mapping, r2, 0)
	connect(t, w, r1, m, 0)
	connect(t, w, r2, m, 1)
	connect(t, w, m, out, 0)
	return w
}

// A property mapping feeding two nodes shares its source with replay-latest.
func TestBuild_ReplayLatestForTransformers(t *testing.T) {
	f := build(t, mappedRanges(t, "merge"))
	var strategies []ir.ShareStrategy
	ir.Walk(f, func(x ir.Fragment) bool {
		if mc, ok := x.(*ir.Multicast); ok {
			strategies = append(strategies, mc.Placeholder.Strategy)
		}
		return true
	})
	assert.Equal(t, []ir.ShareStrategy{ir.ReplayLatest}, strategies)
	assert.ElementsMatch(t, []any{int64(0), int64(1), int64(2), int64(10), int64(11), int64(12)}, collect(t, f))
}

// The second range subscribes only after the first completes and still
// reads the mapped count.
func TestBuild_ReplayLatestLateSubscriber(t *testing.T) {
	f := build(t, mappedRanges(t, "concat"))
	assert.Equal(t, []any{int64(0), int64(1), int64(2), int64(10), int64(11), int64(12)}, collect(t, f))
}

func TestBuild_PropertyMapping(t *testing.T) {
	w := expr.NewWorkflow()
	src := w.Add(&expr.Values{Items: []any{3}})
	mapping := w.Add(&expr.PropertyMapping{Mappings: []expr.Mapping{{Name: "count"}}})
	r := w.Add(combinator(t, "range", map[string]any{"start": 0, "count": 1}))
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, src, mapping, 0)
	connect(t, w, mapping, r, 0)
	connect(t, w, r, out, 0)

	f := build(t, w)
	dep, ok := f.(*ir.Dependent)
	require.True(t, ok, "mapped node should carry a dependency, got %T", f)
	assert.Len(t, dep.Dependencies, 1)
	// The mapping runs before range reads its count.
	assert.Equal(t, []any{int64(0), int64(1), int64(2)}, collect(t, f))
}

func TestBuild_PropertyMappingUnknownProperty(t *testing.T) {
	w := expr.NewWorkflow()
	src := w.Add(&expr.Values{Items: []any{3}})
	mapping := w.Add(&expr.PropertyMapping{Mappings: []expr.Mapping{{Name: "missing"}}})
	r := w.Add(combinator(t, "range", map[string]any{"count": 1}))
	connect(t, w, src, mapping, 0)
	connect(t, w, mapping, r, 0)

	_, err := Build(w)
	require.Error(t, err)
	assert.True(t, expr.IsCode(err, expr.CodeBuildFailed))
	assert.Contains(t, err.Error(), `has no property "missing"`)
}

// P publishes "x"; S1 and S2 subscribe. Removing P turns both into no-ops.
func TestBuild_ChannelPublisherRemoval(t *testing.T) {
	w := expr.NewWorkflow()
	src := w.Add(&expr.Constant{Value: 7})
	p := w.Add(expr.NewBehaviorSubject("x"))
	s1 := w.Add(&expr.SubscribeSubject{Name: "x"})
	s2 := w.Add(&expr.SubscribeSubject{Name: "x"})
	m := w.Add(combinator(t, "merge", nil))
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, src, p, 0)
	connect(t, w, s1, m, 0)
	connect(t, w, s2, m, 1)
	connect(t, w, m, out, 0)

	f := build(t, w)
	block, ok := f.(*ir.ScopeBlock)
	require.True(t, ok, "declared channel should be scoped, got %T", f)
	require.Len(t, block.Variables, 1)
	assert.Equal(t, "x", block.Variables[0].Name)
	assert.Equal(t, []any{int64(7), int64(7)}, collect(t, f))

	require.True(t, w.Remove(p))
	f = build(t, w)
	assert.Equal(t, ir.Empty, f)
	assert.Empty(t, collect(t, f))
}

// An unresolved subscriber feeding a merge with a live input is dropped
// from the merge instead of failing it.
func TestBuild_UnresolvedChannelInMerge(t *testing.T) {
	w := expr.NewWorkflow()
	src := w.Add(&expr.Constant{Value: 1})
	ghost := w.Add(&expr.SubscribeSubject{Name: "ghost"})
	m := w.Add(combinator(t, "merge", nil))
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, src, m, 0)
	connect(t, w, ghost, m, 1)
	connect(t, w, m, out, 0)

	assert.Equal(t, []any{int64(1)}, collect(t, build(t, w)))
}

func TestBuild_Arity(t *testing.T) {
	t.Run("zero inputs", func(t *testing.T) {
		w := expr.NewWorkflow()
		pass := &expr.Pass{}
		w.Add(pass)

		_, err := Build(w)
		require.Error(t, err)
		assert.True(t, expr.IsCode(err, expr.CodeArity))
		assert.Contains(t, err.Error(), "requires at least 1 input(s), got 0")
		assert.Equal(t, []expr.Builder{pass}, expr.CallStack(err))
	})

	t.Run("two inputs", func(t *testing.T) {
		w := expr.NewWorkflow()
		pass := &expr.Pass{}
		n := w.Add(pass)
		connect(t, w, w.Add(&expr.Constant{Value: 1}), n, 0)
		connect(t, w, w.Add(&expr.Constant{Value: 2}), n, 1)

		_, err := Build(w)
		require.Error(t, err)
		assert.True(t, expr.IsCode(err, expr.CodeArity))
		assert.Contains(t, err.Error(), "accepts at most 1")
		assert.Equal(t, []expr.Builder{pass}, expr.CallStack(err))
	})
}

func TestBuild_DuplicateSlot(t *testing.T) {
	w := expr.NewWorkflow()
	m := w.Add(combinator(t, "merge", nil))
	connect(t, w, w.Add(&expr.Constant{Value: 1}), m, 0)
	connect(t, w, w.Add(&expr.Constant{Value: 2}), m, 0)

	_, err := Build(w)
	require.Error(t, err)
	assert.True(t, expr.IsCode(err, expr.CodeDuplicateSlot))
}

func TestBuild_Cycles(t *testing.T) {
	t.Run("data cycle", func(t *testing.T) {
		w := expr.NewWorkflow()
		a := w.Add(&expr.Select{Name: "a"})
		b := w.Add(&expr.Select{Name: "b"})
		connect(t, w, a, b, 0)
		connect(t, w, b, a, 0)

		_, err := Build(w)
		require.Error(t, err)
		assert.True(t, expr.IsCode(err, expr.CodeCycle))
		assert.False(t, expr.IsCode(err, expr.CodeChannelCycle))
	})

	t.Run("channel cycle", func(t *testing.T) {
		w := expr.NewWorkflow()
		sub := w.Add(&expr.SubscribeSubject{Name: "x"})
		pub := w.Add(&expr.Subject{Name: "x"})
		connect(t, w, sub, pub, 0)

		_, err := Build(w)
		require.Error(t, err)
		assert.True(t, expr.IsCode(err, expr.CodeChannelCycle))
		assert.Equal(t, "channel 'x' is defined in terms of itself", expr.RootCause(err).Message)
		// The temporary channel edges were removed.
		assert.Len(t, pub.Successors, 0)
	})

	t.Run("channel cycle through nested host", func(t *testing.T) {
		inner := expr.NewWorkflow()
		sub := inner.Add(&expr.SubscribeSubject{Name: "x"})
		innerOut := inner.Add(&expr.WorkflowOutput{})
		connect(t, inner, sub, innerOut, 0)

		w := expr.NewWorkflow()
		host := w.Add(&expr.Nested{Name: "n", Workflow: inner})
		pub := w.Add(&expr.Subject{Name: "x"})
		connect(t, w, host, pub, 0)

		_, err := Build(w)
		require.Error(t, err)
		assert.True(t, expr.IsCode(err, expr.CodeChannelCycle))
		assert.Equal(t, "channel 'x' is defined in terms of itself", expr.RootCause(err).Message)
	})

	t.Run("data cycle through subscriber group", func(t *testing.T) {
		group := expr.NewWorkflow()
		sub := group.Add(&expr.SubscribeSubject{Name: "x"})
		groupOut := group.Add(&expr.WorkflowOutput{})
		connect(t, group, sub, groupOut, 0)

		w := expr.NewWorkflow()
		src := w.Add(&expr.Values{Items: []any{1}})
		pub := w.Add(&expr.Subject{Name: "x"})
		connect(t, w, src, pub, 0)
		host := w.Add(&expr.Group{Name: "g", Workflow: group})
		a := w.Add(&expr.Select{Name: "a"})
		connect(t, w, host, a, 0)
		connect(t, w, a, host, 0)

		_, err := Build(w)
		require.Error(t, err)
		assert.True(t, expr.IsCode(err, expr.CodeCycle))
		assert.False(t, expr.IsCode(err, expr.CodeChannelCycle))
	})
}

func TestBuild_Outputs(t *testing.T) {
	t.Run("multiple outputs", func(t *testing.T) {
		w := expr.NewWorkflow()
		for i := 0; i < 2; i++ {
			out := w.Add(&expr.WorkflowOutput{})
			connect(t, w, w.Add(&expr.Constant{Value: i}), out, 0)
		}
		_, err := Build(w)
		require.Error(t, err)
		assert.True(t, expr.IsCode(err, expr.CodeMultipleOutputs))
	})

	t.Run("output not terminal", func(t *testing.T) {
		w := expr.NewWorkflow()
		out := w.Add(&expr.WorkflowOutput{})
		pass := w.Add(&expr.Pass{})
		connect(t, w, w.Add(&expr.Constant{Value: 1}), out, 0)
		connect(t, w, out, pass, 0)

		_, err := Build(w)
		require.Error(t, err)
		assert.True(t, expr.IsCode(err, expr.CodeOutputNotTerminal))
	})

	t.Run("output merges dangling branches", func(t *testing.T) {
		n := testutil.NewCountingSource(ir.Int64, int64(9))
		w := expr.NewWorkflow()
		out := w.Add(&expr.WorkflowOutput{})
		connect(t, w, w.Add(&expr.Constant{Value: 1}), out, 0)
		w.Add(n)

		f := build(t, w)
		assert.Equal(t, []any{int64(1)}, collect(t, f))
		assert.Equal(t, 1, n.Subscriptions())
	})
}

func TestBuild_Target(t *testing.T) {
	w := expr.NewWorkflow()
	src := w.Add(&expr.Values{Items: []any{1, 2}})
	double := &expr.Select{Name: "double", Fn: times(2)}
	sel := w.Add(double)
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, src, sel, 0)
	connect(t, w, sel, out, 0)

	f := build(t, w, WithTarget(double))
	apply, ok := f.(*ir.Apply)
	require.True(t, ok, "target fragment should be the select, got %T", f)
	assert.Equal(t, "select", apply.Name)
	assert.Equal(t, []any{int64(2), int64(4)}, collect(t, f))
}

func TestBuild_TargetNotInWorkflow(t *testing.T) {
	w := expr.NewWorkflow()
	w.Add(&expr.Constant{Value: 1})

	_, err := Build(w, WithTarget(&expr.Pass{}))
	require.Error(t, err)
	assert.True(t, expr.IsCode(err, expr.CodeBuildFailed))
}

func nestedIncrement() *expr.Workflow {
	inner := expr.NewWorkflow()
	in := inner.Add(&expr.WorkflowInput{Index: 0})
	inc := inner.Add(&expr.Select{Name: "inc", Fn: func(v any) (any, error) { return v.(int64) + 1, nil }})
	out := inner.Add(&expr.WorkflowOutput{})
	inner.Connect(in, inc, 0)
	inner.Connect(inc, out, 0)
	return inner
}

func TestBuild_Nested(t *testing.T) {
	w := expr.NewWorkflow()
	src := w.Add(&expr.Values{Items: []any{1, 2}})
	host := &expr.Nested{Name: "inc", Workflow: nestedIncrement()}
	n := w.Add(host)
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, src, n, 0)
	connect(t, w, n, out, 0)

	assert.Equal(t, expr.Range{Min: 0, Max: 1}, host.ArgumentRange())
	assert.Equal(t, []any{int64(2), int64(3)}, collect(t, build(t, w)))
}

func TestBuild_NestedTarget(t *testing.T) {
	inner := nestedIncrement()
	incNode, ok := inner.Find(func(b expr.Builder) bool {
		s, ok := b.(*expr.Select)
		return ok && s.Name == "inc"
	})
	require.True(t, ok)

	w := expr.NewWorkflow()
	src := w.Add(&expr.Values{Items: []any{5}})
	n := w.Add(&expr.Nested{Name: "inc", Workflow: inner})
	connect(t, w, src, n, 0)

	f := build(t, w, WithTarget(incNode.Value))
	assert.Equal(t, []any{int64(6)}, collect(t, f))
}

func TestBuild_NestedErrorCallStack(t *testing.T) {
	inner := expr.NewWorkflow()
	pass := &expr.Pass{}
	inner.Add(pass)
	host := &expr.Nested{Name: "broken", Workflow: inner}

	w := expr.NewWorkflow()
	w.Add(host)

	_, err := Build(w)
	require.Error(t, err)
	assert.True(t, expr.IsCode(err, expr.CodeSubgraph))
	assert.True(t, expr.IsCode(err, expr.CodeArity))
	assert.Equal(t, []expr.Builder{host, pass}, expr.CallStack(err))
}

// Channels declared inside a nested workflow are invisible to the parent.
func TestBuild_NestedChannelScope(t *testing.T) {
	inner := expr.NewWorkflow()
	c := inner.Add(&expr.Constant{Value: 1})
	pub := inner.Add(expr.NewBehaviorSubject("x"))
	inner.Connect(c, pub, 0)

	w := expr.NewWorkflow()
	w.Add(&expr.Nested{Name: "inner", Workflow: inner})
	sub := w.Add(&expr.SubscribeSubject{Name: "x"})
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, sub, out, 0)

	assert.Empty(t, collect(t, build(t, w)))
}

// A group is transparent: its channel is visible to the parent.
func TestBuild_GroupChannelScope(t *testing.T) {
	inner := expr.NewWorkflow()
	c := inner.Add(&expr.Constant{Value: 1})
	pub := inner.Add(expr.NewBehaviorSubject("x"))
	inner.Connect(c, pub, 0)

	w := expr.NewWorkflow()
	w.Add(&expr.Group{Name: "inner", Workflow: inner})
	sub := w.Add(&expr.SubscribeSubject{Name: "x"})
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, sub, out, 0)

	assert.Equal(t, []any{int64(1)}, collect(t, build(t, w)))
}

func TestBuild_MulticastSubjectCoerces(t *testing.T) {
	w := expr.NewWorkflow()
	decl := w.Add(&expr.SourceSubject{Name: "x", Elem: ir.Float64, Kind: ir.ChannelReplay})
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, decl, out, 0)
	src := w.Add(&expr.Constant{Value: int32(4)})
	push := w.Add(&expr.MulticastSubject{Name: "x"})
	connect(t, w, src, push, 0)

	f := build(t, w)
	var converts int
	ir.Walk(f, func(x ir.Fragment) bool {
		if _, ok := x.(*ir.Convert); ok {
			converts++
		}
		return true
	})
	assert.Equal(t, 1, converts)
	assert.Equal(t, []any{4.0}, collect(t, f))
}

func TestBuild_DisabledPassesArguments(t *testing.T) {
	w := expr.NewWorkflow()
	src := w.Add(&expr.Values{Items: []any{1}})
	off := w.Add(&expr.Disable{Builder: &expr.Select{Name: "x10", Fn: times(10)}})
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, src, off, 0)
	connect(t, w, off, out, 0)

	assert.Equal(t, []any{int64(1)}, collect(t, build(t, w)))
}

func TestBuild_InspectObservesOutput(t *testing.T) {
	w := expr.NewWorkflow()
	src := w.Add(&expr.Values{Items: []any{1, 2}})
	inspect := expr.NewInspect(&expr.Select{Name: "id"})
	n := w.Add(inspect)
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, src, n, 0)
	connect(t, w, n, out, 0)

	var seen []any
	inspect.Output().Subscribe(stream.ObserverFuncs{Next: func(v any) {
		if ev, ok := v.(expr.InspectEvent); ok && !ev.Completed && ev.Err == nil {
			seen = append(seen, ev.Value)
		}
	}})

	assert.Equal(t, []any{int64(1), int64(2)}, collect(t, build(t, w)))
	assert.Equal(t, []any{int64(1), int64(2)}, seen)
}

func TestBuild_WithInputs(t *testing.T) {
	w := nestedIncrement()
	input := &ir.Source{Name: "values", Elem: ir.Int64, New: func() stream.Observable {
		return stream.FromSlice([]any{int64(41)})
	}}

	f := build(t, w, WithInputs(input))
	assert.Equal(t, []any{int64(42)}, collect(t, f))
}

func TestBuild_DoesNotLeaveChannelEdges(t *testing.T) {
	w := expr.NewWorkflow()
	src := w.Add(&expr.Constant{Value: 1})
	pub := w.Add(&expr.Subject{Name: "x"})
	sub := w.Add(&expr.SubscribeSubject{Name: "x"})
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, src, pub, 0)
	connect(t, w, sub, out, 0)

	build(t, w)
	assert.Empty(t, pub.Successors)
}
