package engine

import (
	"fmt"
	"maps"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/stream"
)

// env binds the placeholders and channel variables visible at one point
// of the fragment tree. Bindings are per subscription.
type env struct {
	parent      *env
	placeholder *ir.Placeholder
	shared      stream.Observable
	vars        map[*ir.Variable]stream.Subject
}

func (e *env) withPlaceholder(p *ir.Placeholder, shared stream.Observable) *env {
	return &env{parent: e, placeholder: p, shared: shared}
}

func (e *env) withVariables(vars map[*ir.Variable]stream.Subject) *env {
	return &env{parent: e, vars: vars}
}

func (e *env) lookupPlaceholder(p *ir.Placeholder) (stream.Observable, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if cur.placeholder == p {
			return cur.shared, true
		}
	}
	return nil, false
}

func (e *env) lookupVariable(v *ir.Variable) (stream.Subject, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if s, ok := cur.vars[v]; ok {
			return s, true
		}
	}
	return nil, false
}

// Instantiate converts a compiled fragment into an Observable.
//
// The tree is validated first; a placeholder outside its Multicast body or
// a channel reference outside its ScopeBlock is an ErrCodeInvalidFragment
// error. Sub-pipelines under Multicast and ScopeBlock are built once per
// subscription.
func Instantiate(f ir.Fragment) (stream.Observable, error) {
	if f == nil {
		return nil, invalidFragment("nil fragment")
	}
	if err := check(f, nil, nil); err != nil {
		return nil, err
	}
	return instantiate(f, nil)
}

// check walks f and verifies every placeholder and variable is bound by an
// enclosing fragment.
func check(f ir.Fragment, placeholders map[*ir.Placeholder]bool, vars map[*ir.Variable]bool) error {
	switch x := f.(type) {
	case nil:
		return invalidFragment("nil child fragment")
	case *ir.Placeholder:
		if !placeholders[x] {
			return invalidFragment("placeholder %d is used outside its sharing scope", x.ID)
		}
		return nil
	case *ir.VariableRef:
		if !vars[x.Var] {
			return invalidFragment("channel '%s' is used outside its declaring scope", x.Var.Name)
		}
		return nil
	case *ir.VariableWrite:
		if !vars[x.Var] {
			return invalidFragment("channel '%s' is written outside its declaring scope", x.Var.Name)
		}
		return check(x.Source, placeholders, vars)
	case *ir.Multicast:
		if err := check(x.Source, placeholders, vars); err != nil {
			return err
		}
		inner := maps.Clone(placeholders)
		if inner == nil {
			inner = map[*ir.Placeholder]bool{}
		}
		inner[x.Placeholder] = true
		return check(x.Body, inner, vars)
	case *ir.ScopeBlock:
		inner := maps.Clone(vars)
		if inner == nil {
			inner = map[*ir.Variable]bool{}
		}
		for _, v := range x.Variables {
			inner[v] = true
		}
		return check(x.Body, placeholders, inner)
	case *ir.Output:
		// Output is the only fragment with an optional child.
		if x.Output != nil {
			if err := check(x.Output, placeholders, vars); err != nil {
				return err
			}
		}
		for _, c := range x.Connections {
			if err := check(c, placeholders, vars); err != nil {
				return err
			}
		}
		return nil
	}
	for _, c := range f.Children() {
		if err := check(c, placeholders, vars); err != nil {
			return err
		}
	}
	return nil
}

func instantiate(f ir.Fragment, e *env) (stream.Observable, error) {
	switch x := f.(type) {
	case *ir.Source:
		if x.New == nil {
			return nil, invalidFragment("source %q has no factory", x.Name)
		}
		return x.New(), nil

	case *ir.Apply:
		if x.Op == nil {
			return nil, invalidFragment("operation %q has no operator", x.Name)
		}
		inputs, err := instantiateAll(x.Args, e)
		if err != nil {
			return nil, err
		}
		obs, err := x.Op(inputs)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", x.Name, err)
		}
		return obs, nil

	case *ir.Convert:
		src, err := instantiate(x.Source, e)
		if err != nil {
			return nil, err
		}
		to := x.To
		return stream.Map(src, func(v any) (any, error) {
			return ir.ConvertValue(v, to)
		}), nil

	case *ir.Placeholder:
		shared, ok := e.lookupPlaceholder(x)
		if !ok {
			return nil, invalidFragment("placeholder %d is not bound", x.ID)
		}
		return shared, nil

	case *ir.Multicast:
		src, err := instantiate(x.Source, e)
		if err != nil {
			return nil, err
		}
		p, body := x.Placeholder, x.Body
		selector := func(shared stream.Observable) (stream.Observable, error) {
			return instantiate(body, e.withPlaceholder(p, shared))
		}
		if p.Strategy == ir.ReplayLatest {
			return stream.PublishLatest(src, selector), nil
		}
		return stream.Publish(src, func() stream.Subject { return stream.NewSubject() }, selector), nil

	case *ir.VariableRef:
		subject, ok := e.lookupVariable(x.Var)
		if !ok {
			return nil, invalidFragment("channel '%s' is not bound", x.Var.Name)
		}
		return subject, nil

	case *ir.VariableWrite:
		src, err := instantiate(x.Source, e)
		if err != nil {
			return nil, err
		}
		subject, ok := e.lookupVariable(x.Var)
		if !ok {
			return nil, invalidFragment("channel '%s' is not bound", x.Var.Name)
		}
		return stream.Do(src, subject), nil

	case *ir.ScopeBlock:
		return scopeBlock(x, e), nil

	case *ir.Dependent:
		deps, err := instantiateAll(x.Dependencies, e)
		if err != nil {
			return nil, err
		}
		out, err := instantiate(x.Output, e)
		if err != nil {
			return nil, err
		}
		return stream.MergeOutput(out, deps), nil

	case *ir.Output:
		var out stream.Observable
		if x.Output != nil {
			var err error
			if out, err = instantiate(x.Output, e); err != nil {
				return nil, err
			}
		}
		conns, err := instantiateAll(x.Connections, e)
		if err != nil {
			return nil, err
		}
		return stream.MergeOutput(out, conns), nil

	case *ir.Disabled:
		return stream.Empty(), nil
	}

	if f == ir.Empty || f == ir.Disconnect {
		return stream.Empty(), nil
	}
	return nil, invalidFragment("unsupported fragment %T", f)
}

func instantiateAll(fs []ir.Fragment, e *env) ([]stream.Observable, error) {
	out := make([]stream.Observable, len(fs))
	for i, f := range fs {
		obs, err := instantiate(f, e)
		if err != nil {
			return nil, err
		}
		out[i] = obs
	}
	return out, nil
}

func channelSubject(v *ir.Variable) stream.Subject {
	switch v.Kind {
	case ir.ChannelBehavior:
		return stream.NewBehaviorSubject()
	case ir.ChannelReplay:
		return stream.NewReplaySubject(v.Capacity)
	}
	return stream.NewSubject()
}

// scopeBlock creates the block's channel subjects for each subscription and
// disposes them in declaration order on the first termination or disposal.
func scopeBlock(x *ir.ScopeBlock, e *env) stream.Observable {
	return stream.Create(func(o stream.Observer) stream.Disposable {
		subjects := make([]stream.Subject, len(x.Variables))
		vars := make(map[*ir.Variable]stream.Subject, len(x.Variables))
		for i, v := range x.Variables {
			subjects[i] = channelSubject(v)
			vars[v] = subjects[i]
		}
		teardown := func() {
			for _, s := range subjects {
				s.Dispose()
			}
		}

		body, err := instantiate(x.Body, e.withVariables(vars))
		if err != nil {
			teardown()
			o.OnError(err)
			return stream.Nop
		}
		return stream.Finally(body, teardown).Subscribe(o)
	})
}
