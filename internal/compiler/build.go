// Package compiler turns a workflow of node descriptors into one fragment
// tree describing the whole stream pipeline.
package compiler

import (
	"io"
	"log/slog"

	"github.com/roach88/rxflow/internal/channel"
	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/graph"
	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/scope"
	"github.com/roach88/rxflow/internal/share"
)

// Build compiles w. With WithTarget it returns the fragment built for the
// target node instead of the whole pipeline.
//
// Channel dependency edges are added to w for the duration of the build
// and always removed before Build returns.
func Build(w *expr.Workflow, opts ...Option) (ir.Fragment, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	release, err := channel.Apply(w)
	defer release()
	if err != nil {
		return nil, err
	}

	var target any
	if o.target != nil {
		target = o.target
	}
	root := scope.NewChain().Root(target)
	c := &compiler{logger: o.logger}
	f, err := c.compile(w, root, o.inputs)
	if err != nil {
		o.logger.Debug("build failed", "error", err)
		return nil, err
	}
	if o.target != nil {
		result, ok := root.Result()
		if !ok {
			return nil, expr.Errorf(expr.CodeBuildFailed, o.target, "build target is not part of the workflow")
		}
		return result, nil
	}
	return f, nil
}

type compiler struct {
	logger *slog.Logger
}

// compile builds w inside sc. Nested hosts call back into it through the
// build context, so only the outermost Build applies channel edges.
func (c *compiler) compile(w *expr.Workflow, sc *scope.Context, inputs []ir.Fragment) (ir.Fragment, error) {
	order, err := w.TopologicalSort()
	if err != nil {
		if cerr := channel.FindCycle(w); cerr != nil {
			return nil, cerr
		}
		return nil, cycleError(err)
	}

	pruned := prunedBranches(order)
	args := make(map[*expr.Node]*argList)
	deps := make(map[*expr.Node][]ir.Fragment)
	argsOf := func(n *expr.Node) *argList {
		l, ok := args[n]
		if !ok {
			l = &argList{}
			args[n] = l
		}
		return l
	}

	var (
		output      ir.Fragment
		connections []ir.Fragment
	)
	for ci, component := range order {
		var (
			componentOutput      ir.Fragment
			componentConnections []ir.Fragment
		)
		shares := share.NewManager(c.logger)
		for _, node := range component {
			b := node.Value
			element := expr.Unwrap(b)
			list := args[node]
			inputsOf := list.flatten()

			var f ir.Fragment
			if len(inputsOf) == 0 && list != nil && list.empty {
				f = ir.Empty
			} else {
				if err := expr.CheckArity(b, inputsOf); err != nil {
					return nil, err
				}
				ctx := &expr.BuildContext{Compile: c.compile, Logger: c.logger}
				if _, ok := element.(expr.ContextConsumer); ok {
					ctx.Scope = sc
					ctx.Inputs = inputs
				}
				built, err := b.Build(ctx, inputsOf)
				if err != nil {
					return nil, expr.Attribute(err, b)
				}
				f = built
			}

			if d := deps[node]; len(d) > 0 && ir.IsReducible(f) {
				f = &ir.Dependent{Output: f, Dependencies: d}
			}
			if t := sc.BuildTarget(); t != nil && any(b) == t {
				sc.SetResult(f)
			}
			if result, ok := sc.Result(); ok {
				return result, nil
			}
			c.logger.Debug("node built", "node", expr.Describe(b), "component", ci)

			transformer, isTransformer := element.(expr.ArgumentTransformer)
			var successors []graph.Edge[expr.Builder]
			for _, e := range node.Successors {
				if e.Dependency {
					continue
				}
				if isTransformer && expr.IsDisabled(e.Target.Value) {
					continue
				}
				if !isTransformer && pruned[e.Target] {
					continue
				}
				successors = append(successors, e)
			}
			targets := make([]*expr.Node, len(successors))
			for i, e := range successors {
				targets[i] = e.Target
			}

			f = shares.Visit(node, f, targets)
			disabled, _ := f.(*ir.Disabled)
			switch f {
			case ir.Disconnect:
				componentConnections = append(componentConnections, inputsOf...)
				continue
			case ir.Empty:
				for _, t := range targets {
					argsOf(t).empty = true
				}
				continue
			}

			if _, ok := element.(expr.TerminalOutput); ok {
				if len(successors) > 0 {
					return nil, expr.Errorf(expr.CodeOutputNotTerminal, b, "the workflow output must be a terminal node")
				}
				if componentOutput != nil || output != nil {
					return nil, expr.Errorf(expr.CodeMultipleOutputs, b, "workflows cannot have more than one output")
				}
				componentOutput = f
				continue
			}

			if len(successors) > 1 && ir.IsReducible(f) {
				strategy := share.FanOut
				if isTransformer {
					strategy = share.ReplayLatest
				}
				f = shares.Open(f, strategy, targets)
			}

			for _, e := range successors {
				arg, dependency := f, false
				if isTransformer {
					var err error
					arg, dependency, err = transformer.BuildArgument(f, e.Target.Value, e.Index)
					if err != nil {
						return nil, expr.Attribute(err, b)
					}
				}
				if dependency {
					deps[e.Target] = append(deps[e.Target], arg)
					continue
				}
				if err := argsOf(e.Target).add(e.Target, e.Index, arg); err != nil {
					return nil, err
				}
			}

			if len(successors) == 0 {
				if disabled != nil {
					componentConnections = append(componentConnections, disabled.Arguments...)
				} else {
					componentConnections = append(componentConnections, f)
				}
			}
		}

		result := shares.CloseAll(combine(componentOutput, componentConnections))
		switch {
		case componentOutput != nil:
			output = result
		case result != nil:
			connections = append(connections, result)
		}
	}

	result := combine(output, connections)
	if result == nil {
		result = ir.Empty
	}
	return sc.Close(result), nil
}

// prunedBranches returns the disabled nodes whose successors are all
// pruned. Such branches never count as consumers.
func prunedBranches(order [][]*expr.Node) map[*expr.Node]bool {
	pruned := make(map[*expr.Node]bool)
	for _, component := range order {
		for i := len(component) - 1; i >= 0; i-- {
			n := component[i]
			if !expr.IsDisabled(n.Value) {
				continue
			}
			all := true
			for _, e := range n.Successors {
				if !e.Dependency && !pruned[e.Target] {
					all = false
					break
				}
			}
			if all {
				pruned[n] = true
			}
		}
	}
	return pruned
}
