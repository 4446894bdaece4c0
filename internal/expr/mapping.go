package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/stream"
)

// Mapping assigns the member of each input value selected by Selector to
// the successor property Name. An empty selector assigns the whole value.
type Mapping struct {
	Name     string
	Selector string
}

// PropertyMapping assigns values of its input to properties of each
// successor. The successors receive it as a build dependency that runs
// before their own output.
type PropertyMapping struct {
	Mappings []Mapping
}

func (*PropertyMapping) ArgumentRange() Range { return Exactly(1) }

func (*PropertyMapping) Build(_ *BuildContext, args []ir.Fragment) (ir.Fragment, error) {
	return args[0], nil
}

// BuildArgument implements ArgumentTransformer.
func (p *PropertyMapping) BuildArgument(source ir.Fragment, successor Builder, _ int) (ir.Fragment, bool, error) {
	target, ok := Element(successor).(PropertyTarget)
	if !ok {
		return nil, false, fmt.Errorf("%s does not accept property mappings", Describe(successor))
	}
	for _, m := range p.Mappings {
		if !target.HasProperty(m.Name) {
			return nil, false, fmt.Errorf("%s has no property %q", Describe(successor), m.Name)
		}
	}
	mappings := append([]Mapping(nil), p.Mappings...)
	assign := func(v any) error {
		for _, m := range mappings {
			value, err := Member(v, m.Selector)
			if err != nil {
				return err
			}
			if err := target.SetProperty(m.Name, value); err != nil {
				return err
			}
		}
		return nil
	}
	return &ir.Apply{
		Name:  "assign",
		Elem:  source.Type(),
		Attrs: map[string]any{"properties": p.names()},
		Args:  []ir.Fragment{source},
		Op: func(in []stream.Observable) (stream.Observable, error) {
			return stream.Map(in[0], func(v any) (any, error) {
				return v, assign(v)
			}), nil
		},
	}, true, nil
}

func (p *PropertyMapping) names() string {
	names := make([]string, len(p.Mappings))
	for i, m := range p.Mappings {
		names[i] = m.Name
	}
	return strings.Join(names, ",")
}

func (p *PropertyMapping) String() string { return "PropertyMapping(" + p.names() + ")" }

// Member selects a dotted member path from v. Path segments name map keys,
// struct fields, or tuple items (Item1, Item2, ...).
func Member(v any, path string) (any, error) {
	if path == "" || path == "it" {
		return v, nil
	}
	cur := v
	for _, seg := range strings.Split(path, ".") {
		next, err := member(cur, seg)
		if err != nil {
			return nil, fmt.Errorf("select %q: %w", path, err)
		}
		cur = next
	}
	return cur, nil
}

func member(v any, name string) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		m, ok := x[name]
		if !ok {
			return nil, fmt.Errorf("no key %q", name)
		}
		return m, nil
	case []any:
		i, ok := itemIndex(name)
		if !ok || i >= len(x) {
			return nil, fmt.Errorf("no item %q in tuple of %d", name, len(x))
		}
		return x[i], nil
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.Struct {
		f := rv.FieldByName(name)
		if f.IsValid() && f.CanInterface() {
			return f.Interface(), nil
		}
	}
	return nil, fmt.Errorf("%T has no member %q", v, name)
}

func itemIndex(name string) (int, bool) {
	rest, ok := strings.CutPrefix(name, "Item")
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n - 1, true
}
