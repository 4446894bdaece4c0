package channel

import (
	"fmt"
	"slices"

	"github.com/roach88/rxflow/internal/expr"
)

// Element is a channel endpoint found in a workflow. Node is the vertex of
// the scanned workflow; when the endpoint sits inside a transparent host,
// Node is the host and Inner locates the endpoint inside it.
type Element struct {
	Builder expr.Builder
	Node    *expr.Node
	Inner   *Element
}

// Chain returns the nodes from the outermost host down to the endpoint.
func (e *Element) Chain() []*expr.Node {
	var chain []*expr.Node
	for cur := e; cur != nil; cur = cur.Inner {
		chain = append(chain, cur.Node)
	}
	return chain
}

// Link is one resolved (or unresolved) subscription. Publisher is nil when
// no publisher of Name is visible from Subscriber.
type Link struct {
	Name       string
	Workflow   *expr.Workflow
	Publisher  *Element
	Subscriber *Element
}

// Resolved reports whether the link has a publisher.
func (l Link) Resolved() bool { return l.Publisher != nil && l.Subscriber != nil }

type scanner struct {
	includes []string
}

// Elements lists the endpoints of w in node order, flattening transparent
// hosts. A workflow that includes itself fails with INCLUDE_RECURSION.
func Elements(w *expr.Workflow) ([]*Element, error) {
	return (&scanner{}).elements(w)
}

func (s *scanner) elements(w *expr.Workflow) ([]*Element, error) {
	var out []*Element
	for _, node := range w.Nodes() {
		b := expr.Unwrap(node.Value)
		host, ok := b.(expr.SubGraphHost)
		if !ok || !host.Transparent() {
			out = append(out, &Element{Builder: b, Node: node})
			continue
		}
		inner, err := s.transparent(host)
		if err != nil {
			return nil, err
		}
		for _, e := range inner {
			out = append(out, &Element{Builder: e.Builder, Node: node, Inner: e})
		}
	}
	return out, nil
}

func (s *scanner) transparent(host expr.SubGraphHost) ([]*Element, error) {
	if inc, ok := host.(*expr.Include); ok && inc.Path != "" {
		if slices.Contains(s.includes, inc.Path) {
			return nil, expr.Errorf(expr.CodeIncludeRecursion, host, "include workflow %q cannot include itself", inc.Path)
		}
		s.includes = append(s.includes, inc.Path)
		defer func() { s.includes = s.includes[:len(s.includes)-1] }()
	}
	w, err := host.SubGraph()
	if err != nil {
		return nil, expr.Attribute(err, host)
	}
	if w == nil {
		return nil, nil
	}
	elems, err := s.elements(w)
	if err != nil {
		return nil, expr.WrapHost(err, host)
	}
	return elems, nil
}

type pending struct {
	publisher   *Element
	subscribers []*Element
}

// FindLinks returns every channel link visible from w. Links between
// endpoints nested in the same transparent host are reported against the
// host's workflow. Unresolved subscribers are reported with a nil
// Publisher, in the order their names were first seen.
func FindLinks(w *expr.Workflow) ([]Link, error) {
	return (&scanner{}).links(w)
}

func (s *scanner) links(w *expr.Workflow) ([]Link, error) {
	elems, err := s.elements(w)
	if err != nil {
		return nil, err
	}
	var (
		links []Link
		names []string
		deps  = map[string]*pending{}
	)
	get := func(name string) *pending {
		d, ok := deps[name]
		if !ok {
			d = &pending{}
			deps[name] = d
			names = append(names, name)
		}
		return d
	}
	subscribe := func(name string, e *Element) error {
		d := get(name)
		if d.publisher == nil {
			d.subscribers = append(d.subscribers, e)
			return nil
		}
		l, err := newLink(name, w, d.publisher, e)
		if err != nil {
			return err
		}
		links = append(links, l)
		return nil
	}

	for _, e := range elems {
		if pub, ok := e.Builder.(expr.ChannelPublisher); ok && pub.ChannelName() != "" {
			d := get(pub.ChannelName())
			// first publisher wins
			if d.publisher == nil {
				d.publisher = e
				for _, sub := range d.subscribers {
					l, err := newLink(pub.ChannelName(), w, e, sub)
					if err != nil {
						return nil, err
					}
					links = append(links, l)
				}
				d.subscribers = nil
			}
		}
		if sub, ok := e.Builder.(expr.ChannelSubscriber); ok && sub.SubscribedChannel() != "" {
			if err := subscribe(sub.SubscribedChannel(), e); err != nil {
				return nil, err
			}
		}
		host, ok := e.Builder.(expr.SubGraphHost)
		if !ok || host.Transparent() {
			continue
		}
		nested, err := host.SubGraph()
		if err != nil {
			return nil, expr.Attribute(err, host)
		}
		if nested == nil {
			continue
		}
		restore := s.enter(e)
		inner, err := s.links(nested)
		restore()
		if err != nil {
			return nil, wrapElement(err, e)
		}
		for _, l := range inner {
			if l.Publisher != nil {
				links = append(links, l)
				continue
			}
			if err := subscribe(l.Name, e); err != nil {
				return nil, err
			}
		}
	}

	for _, name := range names {
		d := deps[name]
		if d.publisher != nil {
			continue
		}
		for _, sub := range d.subscribers {
			links = append(links, Link{Name: name, Workflow: w, Subscriber: sub})
		}
	}
	return links, nil
}

// enter pushes the include paths crossed on the way to e so recursion
// through nested hosts is still detected.
func (s *scanner) enter(e *Element) func() {
	n := len(s.includes)
	for cur := e; cur.Inner != nil; cur = cur.Inner {
		if inc, ok := expr.Unwrap(cur.Node.Value).(*expr.Include); ok && inc.Path != "" {
			s.includes = append(s.includes, inc.Path)
		}
	}
	return func() { s.includes = s.includes[:n] }
}

// newLink descends into a transparent host shared by both endpoints so the
// link is recorded against the workflow that actually holds them.
func newLink(name string, w *expr.Workflow, pub, sub *Element) (Link, error) {
	for pub.Node == sub.Node && pub.Inner != nil && sub.Inner != nil {
		host, ok := expr.Unwrap(pub.Node.Value).(expr.SubGraphHost)
		if !ok {
			break
		}
		inner, err := host.SubGraph()
		if err != nil {
			return Link{}, expr.Attribute(err, host)
		}
		w, pub, sub = inner, pub.Inner, sub.Inner
	}
	if pub.Node == sub.Node {
		return Link{}, fmt.Errorf("channel %q links %s to itself", name, expr.Describe(pub.Node.Value))
	}
	return Link{Name: name, Workflow: w, Publisher: pub, Subscriber: sub}, nil
}

// wrapElement attributes err to every host on the path to e.
func wrapElement(err error, e *Element) error {
	chain := e.Chain()
	for i := len(chain) - 1; i >= 0; i-- {
		err = expr.WrapHost(err, chain[i].Value)
	}
	return err
}
