// Package ops is the builtin operation table used by combinator nodes.
//
// Operations read their properties from the invocation receiver when a
// subscription starts, so property mappings assigned earlier in the same
// run take effect.
package ops

import (
	"fmt"
	"time"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/overload"
	"github.com/roach88/rxflow/internal/stream"
)

// Options configures the builtin table.
type Options struct {
	// Now stamps values for the timestamp operation. Defaults to time.Now.
	Now func() time.Time
}

var (
	tT = ir.Param(0, "T")
	tU = ir.Param(1, "U")
)

func obs(t *ir.Type) *ir.Type { return ir.ObservableOf(t) }

func sig(params []*ir.Type, result *ir.Type, impl overload.Impl, typeParams ...string) *overload.Signature {
	return &overload.Signature{TypeParams: typeParams, Params: params, Result: result, Impl: impl}
}

func variadic(param, result *ir.Type, impl overload.Impl, typeParams ...string) *overload.Signature {
	s := sig([]*ir.Type{ir.ArrayOf(param)}, result, impl, typeParams...)
	s.Variadic = true
	return s
}

// New returns the builtin table.
func New(opts Options) (*overload.Table, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return overload.NewTable(
		&overload.Operation{Name: "range", Signatures: []*overload.Signature{
			sig(nil, obs(ir.Int64), rangeImpl),
		}},
		&overload.Operation{Name: "return", Signatures: []*overload.Signature{
			sig(nil, obs(ir.Object), returnImpl),
		}},
		&overload.Operation{Name: "take", Signatures: []*overload.Signature{
			sig([]*ir.Type{obs(tT)}, obs(tT), takeImpl, "T"),
		}},
		&overload.Operation{Name: "merge", Signatures: []*overload.Signature{
			variadic(obs(tT), obs(tT), mergeImpl, "T"),
		}},
		&overload.Operation{Name: "concat", Signatures: []*overload.Signature{
			variadic(obs(tT), obs(tT), concatImpl, "T"),
		}},
		&overload.Operation{Name: "zip", Signatures: []*overload.Signature{
			sig([]*ir.Type{obs(tT), obs(tU)}, obs(ir.TupleOf(tT, tU)), zipImpl, "T", "U"),
			variadic(obs(tT), obs(ir.ListOf(tT)), zipImpl, "T"),
		}},
		&overload.Operation{Name: "combine_latest", Signatures: []*overload.Signature{
			sig([]*ir.Type{obs(tT), obs(tU)}, obs(ir.TupleOf(tT, tU)), combineImpl, "T", "U"),
			variadic(obs(tT), obs(ir.ListOf(tT)), combineImpl, "T"),
		}},
		&overload.Operation{Name: "sum", Signatures: []*overload.Signature{
			sig([]*ir.Type{obs(ir.Int32)}, obs(ir.Int32), sumImpl(ir.Int32)),
			sig([]*ir.Type{obs(ir.Int64)}, obs(ir.Int64), sumImpl(ir.Int64)),
			sig([]*ir.Type{obs(ir.Float32)}, obs(ir.Float32), sumImpl(ir.Float32)),
			sig([]*ir.Type{obs(ir.Float64)}, obs(ir.Float64), sumImpl(ir.Float64)),
		}},
		&overload.Operation{Name: "count", Signatures: []*overload.Signature{
			sig([]*ir.Type{obs(tT)}, obs(ir.Int64), countImpl, "T"),
		}},
		&overload.Operation{Name: "timestamp", Signatures: []*overload.Signature{
			sig([]*ir.Type{obs(tT)}, obs(ir.TimestampedOf(tT)), timestampImpl(now), "T"),
		}},
		&overload.Operation{Name: "format", Signatures: []*overload.Signature{
			sig([]*ir.Type{obs(tT)}, obs(ir.String), formatImpl, "T"),
		}},
		&overload.Operation{Name: "values", Signatures: []*overload.Signature{
			sig(nil, obs(ir.Object), valuesImpl),
		}},
	)
}

// Default is the builtin table with the wall clock.
func Default() *overload.Table {
	t, err := New(Options{})
	if err != nil {
		panic(fmt.Sprintf("ops: builtin table is invalid: %v", err))
	}
	return t
}

func inputs(inv *overload.Invocation) []stream.Observable {
	return append(append([]stream.Observable(nil), inv.Inputs...), inv.Rest...)
}

func rangeImpl(inv *overload.Invocation) (stream.Observable, error) {
	return stream.Defer(func() (stream.Observable, error) {
		start, err := intProperty(inv, "start", 0)
		if err != nil {
			return nil, err
		}
		count, err := intProperty(inv, "count", 1)
		if err != nil {
			return nil, err
		}
		return stream.Range(start, count), nil
	}), nil
}

func returnImpl(inv *overload.Invocation) (stream.Observable, error) {
	return stream.Defer(func() (stream.Observable, error) {
		v, _ := property(inv, "value")
		return stream.Return(v), nil
	}), nil
}

func valuesImpl(inv *overload.Invocation) (stream.Observable, error) {
	return stream.Defer(func() (stream.Observable, error) {
		v, ok := property(inv, "items")
		if !ok {
			return stream.Empty(), nil
		}
		items, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("values: items must be a list, got %T", v)
		}
		return stream.FromSlice(items), nil
	}), nil
}

func takeImpl(inv *overload.Invocation) (stream.Observable, error) {
	source := inv.Inputs[0]
	return stream.Defer(func() (stream.Observable, error) {
		n, err := intProperty(inv, "count", 1)
		if err != nil {
			return nil, err
		}
		return stream.Take(source, n), nil
	}), nil
}

func mergeImpl(inv *overload.Invocation) (stream.Observable, error) {
	return stream.Merge(inputs(inv)...), nil
}

func concatImpl(inv *overload.Invocation) (stream.Observable, error) {
	return stream.Concat(inputs(inv)...), nil
}

func zipImpl(inv *overload.Invocation) (stream.Observable, error) {
	return stream.Zip(inputs(inv)...), nil
}

func combineImpl(inv *overload.Invocation) (stream.Observable, error) {
	return stream.CombineLatest(inputs(inv)...), nil
}

func sumImpl(t *ir.Type) overload.Impl {
	return func(inv *overload.Invocation) (stream.Observable, error) {
		zero, err := ir.ConvertValue(0, t)
		if err != nil {
			return nil, err
		}
		return stream.Aggregate(inv.Inputs[0], zero, func(acc, v any) (any, error) {
			return add(acc, v)
		}), nil
	}
}

func add(acc, v any) (any, error) {
	switch a := acc.(type) {
	case int32:
		return a + v.(int32), nil
	case int64:
		return a + v.(int64), nil
	case float32:
		return a + v.(float32), nil
	case float64:
		return a + v.(float64), nil
	}
	return nil, fmt.Errorf("sum: unsupported element %T", acc)
}

func countImpl(inv *overload.Invocation) (stream.Observable, error) {
	return stream.Aggregate(inv.Inputs[0], int64(0), func(acc, _ any) (any, error) {
		return acc.(int64) + 1, nil
	}), nil
}

func timestampImpl(now func() time.Time) overload.Impl {
	return func(inv *overload.Invocation) (stream.Observable, error) {
		return stream.Timestamp(inv.Inputs[0], now), nil
	}
}

func formatImpl(inv *overload.Invocation) (stream.Observable, error) {
	source := inv.Inputs[0]
	return stream.Defer(func() (stream.Observable, error) {
		pattern := "%v"
		if v, ok := property(inv, "pattern"); ok {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("format: pattern must be a string, got %T", v)
			}
			pattern = s
		}
		return stream.Map(source, func(v any) (any, error) {
			return fmt.Sprintf(pattern, v), nil
		}), nil
	}), nil
}

type propertySource interface {
	Property(name string) (any, bool)
}

func property(inv *overload.Invocation, name string) (any, bool) {
	p, ok := inv.Receiver.(propertySource)
	if !ok {
		return nil, false
	}
	return p.Property(name)
}

func intProperty(inv *overload.Invocation, name string, def int64) (int64, error) {
	v, ok := property(inv, name)
	if !ok || v == nil {
		return def, nil
	}
	c, err := ir.ConvertValue(v, ir.Int64)
	if err != nil {
		return 0, fmt.Errorf("%s: property %q: %w", inv.Signature.Name(), name, err)
	}
	return c.(int64), nil
}
