package loader

import (
	"gopkg.in/yaml.v3"
)

// Node kinds.
const (
	KindConstant      = "constant"
	KindValues        = "values"
	KindOp            = "op"
	KindPass          = "pass"
	KindSelect        = "select"
	KindInput         = "input"
	KindOutput        = "output"
	KindSubject       = "subject"
	KindSourceSubject = "source_subject"
	KindSubscribe     = "subscribe"
	KindMulticast     = "multicast"
	KindMapping       = "mapping"
	KindNested        = "nested"
	KindGroup         = "group"
	KindInclude       = "include"
)

var knownKinds = map[string]bool{
	KindConstant: true, KindValues: true, KindOp: true, KindPass: true,
	KindSelect: true, KindInput: true, KindOutput: true, KindSubject: true,
	KindSourceSubject: true, KindSubscribe: true, KindMulticast: true,
	KindMapping: true, KindNested: true, KindGroup: true, KindInclude: true,
}

// Document is a decoded workflow document.
type Document struct {
	Name  string     `yaml:"name,omitempty" json:"name,omitempty"`
	Nodes []NodeSpec `yaml:"nodes" json:"nodes"`
	Edges []EdgeSpec `yaml:"edges,omitempty" json:"edges,omitempty"`
}

// NodeSpec describes one node. Which fields apply depends on Kind.
type NodeSpec struct {
	ID   string `yaml:"id" json:"id"`
	Kind string `yaml:"kind" json:"kind"`

	// Type is an element type name such as int64 or List<string>.
	Type  string `yaml:"type,omitempty" json:"type,omitempty"`
	Value any    `yaml:"value,omitempty" json:"value,omitempty"`
	Items []any  `yaml:"items,omitempty" json:"items,omitempty"`

	Op     string         `yaml:"op,omitempty" json:"op,omitempty"`
	Props  map[string]any `yaml:"props,omitempty" json:"props,omitempty"`
	Member string         `yaml:"member,omitempty" json:"member,omitempty"`
	Index  int            `yaml:"index,omitempty" json:"index,omitempty"`

	Channel  string `yaml:"channel,omitempty" json:"channel,omitempty"`
	Subject  string `yaml:"subject,omitempty" json:"subject,omitempty"`
	Capacity int    `yaml:"capacity,omitempty" json:"capacity,omitempty"`

	Mappings []MappingSpec `yaml:"mappings,omitempty" json:"mappings,omitempty"`
	Workflow *Document     `yaml:"workflow,omitempty" json:"workflow,omitempty"`
	Path     string        `yaml:"path,omitempty" json:"path,omitempty"`

	Disabled bool `yaml:"disabled,omitempty" json:"disabled,omitempty"`
	Inspect  bool `yaml:"inspect,omitempty" json:"inspect,omitempty"`

	// Line is the source line of the node, 0 when unknown.
	Line int `yaml:"-" json:"-"`
}

// UnmarshalYAML records the node's line.
func (n *NodeSpec) UnmarshalYAML(value *yaml.Node) error {
	type plain NodeSpec
	if err := value.Decode((*plain)(n)); err != nil {
		return err
	}
	n.Line = value.Line
	return nil
}

// MappingSpec assigns the member of each input value at Select to the
// successor property Property.
type MappingSpec struct {
	Property string `yaml:"property" json:"property"`
	Select   string `yaml:"select,omitempty" json:"select,omitempty"`
}

// EdgeSpec connects From's output to argument Index of To. A nil Index
// takes the next slot of To in document order.
type EdgeSpec struct {
	From  string `yaml:"from" json:"from"`
	To    string `yaml:"to" json:"to"`
	Index *int   `yaml:"index,omitempty" json:"index,omitempty"`

	Line int `yaml:"-" json:"-"`
}

// UnmarshalYAML records the edge's line.
func (e *EdgeSpec) UnmarshalYAML(value *yaml.Node) error {
	type plain EdgeSpec
	if err := value.Decode((*plain)(e)); err != nil {
		return err
	}
	e.Line = value.Line
	return nil
}

// slots assigns every edge its argument index.
func (d *Document) slots() []int {
	next := map[string]int{}
	out := make([]int, len(d.Edges))
	for i, e := range d.Edges {
		if e.Index != nil {
			out[i] = *e.Index
		} else {
			out[i] = next[e.To]
		}
		if out[i] >= next[e.To] {
			next[e.To] = out[i] + 1
		}
	}
	return out
}
