package compiler

import (
	"log/slog"

	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/ir"
)

type options struct {
	target expr.Builder
	inputs []ir.Fragment
	logger *slog.Logger
}

// Option configures Build.
type Option func(*options)

// WithTarget stops the build at node and returns the fragment built for
// it. node may live inside a sub-graph and must be comparable.
func WithTarget(node expr.Builder) Option {
	return func(o *options) { o.target = node }
}

// WithInputs passes arguments to the workflow's input nodes.
func WithInputs(inputs ...ir.Fragment) Option {
	return func(o *options) { o.inputs = inputs }
}

// WithLogger sets the logger receiving build diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}
