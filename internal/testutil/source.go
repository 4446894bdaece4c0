package testutil

import (
	"sync/atomic"

	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/stream"
)

// CountingSource is a zero-input node that emits Items and counts how many
// times it was subscribed.
type CountingSource struct {
	*expr.Generator
	subscriptions atomic.Int32
}

// NewCountingSource returns a source of items with element type elem.
func NewCountingSource(elem *ir.Type, items ...any) *CountingSource {
	c := &CountingSource{}
	c.Generator = &expr.Generator{Name: "counting", Elem: elem, New: func() stream.Observable {
		return stream.Defer(func() (stream.Observable, error) {
			c.subscriptions.Add(1)
			return stream.FromSlice(items), nil
		})
	}}
	return c
}

// Subscriptions returns the number of subscriptions so far.
func (c *CountingSource) Subscriptions() int {
	return int(c.subscriptions.Load())
}
