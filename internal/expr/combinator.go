package expr

import (
	"fmt"
	"maps"
	"sync"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/overload"
)

// PropertyTarget is a descriptor whose properties can be assigned at run
// time by a PropertyMapping.
type PropertyTarget interface {
	Builder
	HasProperty(name string) bool
	SetProperty(name string, value any) error
}

// Combinator dispatches to an overloaded operation. Its properties are
// readable by the operation's implementations through the invocation
// receiver and may be reassigned while the pipeline runs.
type Combinator struct {
	Operation *overload.Operation

	mu    sync.RWMutex
	props map[string]any
	// declared lists the assignable property names. Nil accepts any name.
	declared map[string]bool
}

// NewCombinator returns a combinator for op with initial property values.
// Only the names in props can later be assigned by a mapping.
func NewCombinator(op *overload.Operation, props map[string]any) *Combinator {
	c := &Combinator{Operation: op, props: map[string]any{}, declared: map[string]bool{}}
	for k, v := range props {
		c.props[k] = v
		c.declared[k] = true
	}
	return c
}

func (c *Combinator) ArgumentRange() Range {
	lo, hi := c.Operation.ArgumentRange()
	if hi == overload.Unbounded {
		return Range{Min: lo, Max: Unbounded}
	}
	return Range{Min: lo, Max: hi}
}

func (c *Combinator) Build(_ *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	call, err := c.Operation.Resolve(c, args)
	if err != nil {
		return nil, err
	}
	return call.Fragment(c.Properties()), nil
}

// Property returns the current value of a property.
func (c *Combinator) Property(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.props[name]
	return v, ok
}

// Properties returns a snapshot of all property values.
func (c *Combinator) Properties() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.props) == 0 {
		return nil
	}
	return maps.Clone(c.props)
}

// HasProperty reports whether name is assignable.
func (c *Combinator) HasProperty(name string) bool {
	if c.declared == nil {
		return true
	}
	return c.declared[name]
}

// SetProperty assigns a property value.
func (c *Combinator) SetProperty(name string, value any) error {
	if !c.HasProperty(name) {
		return fmt.Errorf("%s has no property %q", c, name)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.props == nil {
		c.props = map[string]any{}
	}
	c.props[name] = value
	return nil
}

func (c *Combinator) String() string {
	if c.Operation == nil {
		return "Combinator"
	}
	return c.Operation.Name
}
