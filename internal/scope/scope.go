package scope

import (
	"errors"
	"fmt"

	"github.com/roach88/rxflow/internal/ir"
)

// Kind classifies a scope.
type Kind uint8

const (
	// KindRoot is the outermost scope of a full build.
	KindRoot Kind = iota
	// KindTarget is the outermost scope of a partial build.
	KindTarget
	// KindNested is a sub-graph scope with its own channel namespace.
	KindNested
	// KindGroup is a transparent sub-graph scope.
	KindGroup
	// KindInclude is a transparent scope for an included sub-graph.
	KindInclude
)

func (k Kind) String() string {
	switch k {
	case KindTarget:
		return "target"
	case KindNested:
		return "nested"
	case KindGroup:
		return "group"
	case KindInclude:
		return "include"
	}
	return "root"
}

// ID indexes a scope in its Chain.
type ID int

const none ID = -1

var (
	// ErrDuplicateVariable is returned when a name is declared twice in
	// the same owning scope.
	ErrDuplicateVariable = errors.New("variable already exists")

	// ErrVariableNotFound is returned when no scope in the chain declares
	// a name.
	ErrVariableNotFound = errors.New("variable not found in the current build context")

	// ErrIncludeRecursion is returned when an include scope would be
	// opened inside an include scope for the same path.
	ErrIncludeRecursion = errors.New("included workflow includes itself")
)

type frame struct {
	kind   Kind
	parent ID
	path   string
	target any

	vars   []*ir.Variable
	byName map[string]*ir.Variable
	closed bool

	result    ir.Fragment
	hasResult bool
}

// Chain is the arena holding every scope opened during one compile pass.
type Chain struct {
	frames []frame
}

// NewChain returns an empty chain.
func NewChain() *Chain {
	return &Chain{}
}

// Root opens the outermost scope. A non-nil target opens a KindTarget
// scope capturing it.
func (c *Chain) Root(target any) *Context {
	kind := KindRoot
	if target != nil {
		kind = KindTarget
	}
	return c.push(frame{kind: kind, parent: none, target: target})
}

// Len returns the number of scopes opened so far.
func (c *Chain) Len() int { return len(c.frames) }

func (c *Chain) push(f frame) *Context {
	c.frames = append(c.frames, f)
	return &Context{chain: c, id: ID(len(c.frames) - 1)}
}

func (c *Chain) frame(id ID) *frame {
	return &c.frames[id]
}

// Context is a handle to one scope in a Chain.
type Context struct {
	chain *Chain
	id    ID
}

// ID returns the scope's arena index.
func (s *Context) ID() ID { return s.id }

// Kind returns the scope kind.
func (s *Context) Kind() Kind { return s.chain.frame(s.id).kind }

// Path returns the include path of an include scope.
func (s *Context) Path() string { return s.chain.frame(s.id).path }

// Parent returns the enclosing scope, or nil for the outermost one.
func (s *Context) Parent() *Context {
	p := s.chain.frame(s.id).parent
	if p == none {
		return nil
	}
	return &Context{chain: s.chain, id: p}
}

// Depth returns the number of enclosing scopes.
func (s *Context) Depth() int {
	d := 0
	for p := s.Parent(); p != nil; p = p.Parent() {
		d++
	}
	return d
}

// Open pushes a child scope of the given kind. The build target is
// inherited from the parent.
func (s *Context) Open(kind Kind) *Context {
	return s.chain.push(frame{kind: kind, parent: s.id, target: s.BuildTarget()})
}

// OpenInclude pushes an include scope for path after checking that no
// enclosing include scope has the same path.
func (s *Context) OpenInclude(path string) (*Context, error) {
	for cur := s; cur != nil; cur = cur.Parent() {
		if cur.Kind() == KindInclude && cur.Path() == path {
			return nil, fmt.Errorf("%w: '%s'", ErrIncludeRecursion, path)
		}
	}
	child := s.Open(KindInclude)
	child.chain.frame(child.id).path = path
	return child, nil
}

// BuildTarget returns the node captured for a partial build, if any.
func (s *Context) BuildTarget() any {
	return s.chain.frame(s.id).target
}

// owner returns the nearest scope, starting at s, that owns declarations.
func (s *Context) owner() *Context {
	cur := s
	for cur.Kind() == KindGroup || cur.Kind() == KindInclude {
		p := cur.Parent()
		if p == nil {
			break
		}
		cur = p
	}
	return cur
}

// Owns reports whether s holds its own declarations.
func (s *Context) Owns() bool {
	return s.owner().id == s.id
}

// AddVariable declares v in the nearest owning scope.
func (s *Context) AddVariable(v *ir.Variable) error {
	f := s.chain.frame(s.owner().id)
	if v.Name != "" {
		if _, exists := f.byName[v.Name]; exists {
			return fmt.Errorf("%w: '%s'", ErrDuplicateVariable, v.Name)
		}
		if f.byName == nil {
			f.byName = make(map[string]*ir.Variable)
		}
		f.byName[v.Name] = v
	}
	f.vars = append(f.vars, v)
	return nil
}

// Variable resolves name in s or the nearest enclosing scope declaring it.
func (s *Context) Variable(name string) (*ir.Variable, error) {
	for cur := s; cur != nil; cur = cur.Parent() {
		if v, ok := cur.chain.frame(cur.id).byName[name]; ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: '%s'", ErrVariableNotFound, name)
}

// Variables returns the variables s declared itself, in declaration order.
func (s *Context) Variables() []*ir.Variable {
	return append([]*ir.Variable(nil), s.chain.frame(s.id).vars...)
}

// Close wraps f in a ScopeBlock releasing the variables s declared. It is a
// no-op for transparent scopes, for scopes without variables, and for a
// scope that was already closed.
func (s *Context) Close(f ir.Fragment) ir.Fragment {
	fr := s.chain.frame(s.id)
	if fr.closed {
		return f
	}
	fr.closed = true
	if len(fr.vars) == 0 || !ir.IsReducible(f) {
		return f
	}
	return &ir.ScopeBlock{Variables: append([]*ir.Variable(nil), fr.vars...), Body: f}
}

// Closed reports whether Close has been called.
func (s *Context) Closed() bool { return s.chain.frame(s.id).closed }

// SetResult records the fragment built for the captured target in s and
// every enclosing scope.
func (s *Context) SetResult(f ir.Fragment) {
	for cur := s; cur != nil; cur = cur.Parent() {
		fr := cur.chain.frame(cur.id)
		fr.result = f
		fr.hasResult = true
	}
}

// Result returns the fragment recorded by SetResult.
func (s *Context) Result() (ir.Fragment, bool) {
	fr := s.chain.frame(s.id)
	return fr.result, fr.hasResult
}
