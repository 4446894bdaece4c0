package ir

import (
	"fmt"
	"slices"
	"strings"
)

// Describe renders f as a tree of plain maps suitable for canonical JSON.
// Operator functions are not part of the description; two fragments with
// the same description are structurally the same pipeline.
func Describe(f Fragment) map[string]any {
	if f == nil {
		return map[string]any{"kind": "none"}
	}
	node := map[string]any{"kind": kindName(f)}
	switch x := f.(type) {
	case *Source:
		node["name"] = x.Name
		node["type"] = x.Elem.String()
		if len(x.Attrs) > 0 {
			node["attrs"] = describeAttrs(x.Attrs)
		}
	case *Apply:
		node["name"] = x.Name
		node["type"] = x.Elem.String()
		if len(x.Attrs) > 0 {
			node["attrs"] = describeAttrs(x.Attrs)
		}
	case *Convert:
		node["type"] = x.To.String()
	case *Placeholder:
		node["id"] = int64(x.ID)
		node["strategy"] = x.Strategy.String()
	case *Multicast:
		node["id"] = int64(x.Placeholder.ID)
		node["strategy"] = x.Placeholder.Strategy.String()
	case *VariableRef:
		node["channel"] = x.Var.Name
	case *VariableWrite:
		node["channel"] = x.Var.Name
	case *ScopeBlock:
		vars := make([]any, len(x.Variables))
		for i, v := range x.Variables {
			vars[i] = map[string]any{"name": v.Name, "kind": v.Kind.String(), "type": v.Elem.String()}
		}
		node["variables"] = vars
	}
	if children := f.Children(); len(children) > 0 {
		out := make([]any, len(children))
		for i, c := range children {
			out[i] = Describe(c)
		}
		node["children"] = out
	}
	return node
}

func describeAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		switch v.(type) {
		case string, bool, int64, int:
			out[k] = v
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out
}

func kindName(f Fragment) string {
	switch f.(type) {
	case *Disabled:
		return "disabled"
	case *Source:
		return "source"
	case *Apply:
		return "apply"
	case *Convert:
		return "convert"
	case *Placeholder:
		return "placeholder"
	case *Multicast:
		return "multicast"
	case *VariableRef:
		return "subscribe"
	case *VariableWrite:
		return "publish"
	case *ScopeBlock:
		return "scope"
	case *Dependent:
		return "dependent"
	case *Output:
		return "output"
	}
	if f == Empty {
		return "empty"
	}
	if f == Disconnect {
		return "disconnect"
	}
	return fmt.Sprintf("%T", f)
}

// Format renders f as an indented, human-readable tree.
func Format(f Fragment) string {
	var b strings.Builder
	format(&b, f, 0)
	return b.String()
}

func format(b *strings.Builder, f Fragment, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(label(f))
	b.WriteByte('\n')
	for _, c := range f.Children() {
		format(b, c, depth+1)
	}
}

func label(f Fragment) string {
	switch x := f.(type) {
	case *Source:
		return fmt.Sprintf("source %s%s : %s", x.Name, formatAttrs(x.Attrs), x.Elem)
	case *Apply:
		return fmt.Sprintf("apply %s%s : %s", x.Name, formatAttrs(x.Attrs), x.Elem)
	case *Convert:
		return fmt.Sprintf("convert : %s", x.To)
	case *Placeholder:
		return fmt.Sprintf("share#%d : %s", x.ID, x.Elem)
	case *Multicast:
		return fmt.Sprintf("multicast share#%d (%s)", x.Placeholder.ID, x.Placeholder.Strategy)
	case *VariableRef:
		return fmt.Sprintf("subscribe %q : %s", x.Var.Name, x.Var.Elem)
	case *VariableWrite:
		return fmt.Sprintf("publish %q", x.Var.Name)
	case *ScopeBlock:
		names := make([]string, len(x.Variables))
		for i, v := range x.Variables {
			names[i] = fmt.Sprintf("%s:%s", v.Name, v.Kind)
		}
		return fmt.Sprintf("scope [%s]", strings.Join(names, " "))
	}
	return kindName(f)
}

func formatAttrs(attrs map[string]any) string {
	if len(attrs) == 0 {
		return ""
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, attrs[k])
	}
	return "(" + strings.Join(parts, " ") + ")"
}
