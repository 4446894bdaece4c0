// Package share tracks sharing scopes while a workflow is built.
//
// When a node has more than one consumer its fragment is replaced by a
// placeholder and a scope is opened. As the build visits consumers the
// scope's reference list shrinks; when it empties, the fragment being built
// is rewritten so the placeholder reads from one multicast subscription to
// the original source. A scope whose placeholder survives in at most one
// position is cancelled back to the unshared source.
package share

import (
	"log/slog"
	"slices"

	"github.com/roach88/rxflow/internal/expr"
	"github.com/roach88/rxflow/internal/ir"
)

// Strategies.
const (
	FanOut       = ir.FanOut
	ReplayLatest = ir.ReplayLatest
)

// Scope is one open sharing scope.
type Scope struct {
	Source      ir.Fragment
	Placeholder *ir.Placeholder
	// References lists the consumers still to be visited. A nil entry
	// keeps the scope open until CloseAll.
	References []*expr.Node
}

// Close rewrites f so every occurrence of the placeholder reads from the
// shared source. With a single occurrence the placeholder is replaced by
// the source itself.
func (s *Scope) Close(f ir.Fragment) ir.Fragment {
	switch ir.Count(f, s.Placeholder) {
	case 0:
		return f
	case 1:
		return s.Cancel(f)
	}
	return &ir.Multicast{Source: s.Source, Placeholder: s.Placeholder, Body: f}
}

// Cancel replaces the placeholder in f by the unshared source.
func (s *Scope) Cancel(f ir.Fragment) ir.Fragment {
	return ir.Replace(f, s.Placeholder, s.Source)
}

// Manager holds the open scopes of one component build, newest first.
type Manager struct {
	scopes []*Scope
	next   int
	logger *slog.Logger
}

// NewManager returns an empty manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// Len returns the number of open scopes.
func (m *Manager) Len() int { return len(m.scopes) }

// Open shares source among consumers and returns the placeholder to route
// to them instead of source.
func (m *Manager) Open(source ir.Fragment, strategy ir.ShareStrategy, consumers []*expr.Node) *ir.Placeholder {
	m.next++
	p := &ir.Placeholder{ID: m.next, Elem: source.Type(), Strategy: strategy}
	m.scopes = slices.Insert(m.scopes, 0, &Scope{
		Source:      source,
		Placeholder: p,
		References:  slices.Clone(consumers),
	})
	m.logger.Debug("sharing scope opened", "share", p.ID, "strategy", strategy.String(), "consumers", len(consumers))
	return p
}

// Visit records that node was built to f. Scopes that no longer reference
// any consumer are closed over f, unless f is a disabled bundle. Scopes
// that referenced node now reference its successors instead, once per
// flattened argument of a disabled bundle; with no successors, or when f
// is a disconnected argument, they stay open until CloseAll.
func (m *Manager) Visit(node *expr.Node, f ir.Fragment, successors []*expr.Node) ir.Fragment {
	disabled, isDisabled := f.(*ir.Disabled)
	repeat := 1
	if isDisabled && len(disabled.Arguments) > 1 {
		repeat = len(disabled.Arguments)
	}
	m.scopes = slices.DeleteFunc(m.scopes, func(s *Scope) bool {
		before := len(s.References)
		s.References = slices.DeleteFunc(s.References, func(r *expr.Node) bool { return r == node })
		removed := before - len(s.References)
		if len(s.References) == 0 && !isDisabled {
			f = s.Close(f)
			m.logger.Debug("sharing scope closed", "share", s.Placeholder.ID, "node", expr.Describe(node.Value))
			return true
		}
		if removed > 0 {
			for range repeat {
				if len(successors) == 0 || f == ir.Disconnect {
					s.References = append(s.References, nil)
				} else {
					s.References = append(s.References, successors...)
				}
			}
		}
		return false
	})
	return f
}

// CloseAll closes every remaining scope over f, newest first.
func (m *Manager) CloseAll(f ir.Fragment) ir.Fragment {
	for _, s := range m.scopes {
		f = s.Close(f)
	}
	m.scopes = nil
	return f
}
