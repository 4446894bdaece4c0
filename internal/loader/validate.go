package loader

import (
	"fmt"
	"strings"

	"github.com/roach88/rxflow/internal/overload"
)

// Validation error codes (E100-E199).
const (
	ErrMissingID        = "E101" // node id is required
	ErrDuplicateID      = "E102" // node id used twice
	ErrUnknownKind      = "E103" // unknown node kind
	ErrUnknownOperation = "E104" // op names no builtin operation
	ErrInvalidType      = "E105" // type does not parse
	ErrMissingField     = "E106" // a field the kind requires is empty
	ErrInvalidSubject   = "E107" // unknown subject kind or negative capacity
	ErrUnknownNode      = "E110" // edge names an unknown node
	ErrDuplicateSlot    = "E111" // two edges fill the same argument
	ErrInvalidIndex     = "E112" // negative edge index
	ErrInvalidMapping   = "E113" // mapping without a property
	ErrEmptyDocument    = "E120" // document has no nodes
)

// ValidationError is one problem found in a document.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks doc and nested documents against the node kinds and the
// operations in table. Every error found is returned.
func Validate(doc *Document, table *overload.Table) []ValidationError {
	v := &validator{table: table}
	v.document(doc, "")
	return v.errs
}

type validator struct {
	table *overload.Table
	errs  []ValidationError
}

func (v *validator) add(code, field string, line int, format string, args ...any) {
	v.errs = append(v.errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Code: code, Line: line})
}

func (v *validator) document(doc *Document, prefix string) {
	if len(doc.Nodes) == 0 {
		v.add(ErrEmptyDocument, prefix+"nodes", 0, "at least one node is required")
	}

	ids := make(map[string]bool, len(doc.Nodes))
	for i, n := range doc.Nodes {
		field := fmt.Sprintf("%snodes[%d]", prefix, i)
		switch {
		case strings.TrimSpace(n.ID) == "":
			v.add(ErrMissingID, field+".id", n.Line, "node id is required")
		case ids[n.ID]:
			v.add(ErrDuplicateID, field+".id", n.Line, "duplicate node id %q", n.ID)
		}
		ids[n.ID] = true
		v.node(n, field)
	}

	taken := map[string]map[int]bool{}
	for i, e := range doc.Edges {
		field := fmt.Sprintf("%sedges[%d]", prefix, i)
		if !ids[e.From] {
			v.add(ErrUnknownNode, field+".from", e.Line, "unknown node %q", e.From)
		}
		if !ids[e.To] {
			v.add(ErrUnknownNode, field+".to", e.Line, "unknown node %q", e.To)
		}
		if e.Index != nil && *e.Index < 0 {
			v.add(ErrInvalidIndex, field+".index", e.Line, "index must be non-negative, got %d", *e.Index)
		}
	}
	for i, slot := range doc.slots() {
		e := doc.Edges[i]
		if slot < 0 {
			continue
		}
		if taken[e.To] == nil {
			taken[e.To] = map[int]bool{}
		}
		if taken[e.To][slot] {
			v.add(ErrDuplicateSlot, fmt.Sprintf("%sedges[%d]", prefix, i), e.Line, "argument %d of %q is already connected", slot, e.To)
		}
		taken[e.To][slot] = true
	}
}

func (v *validator) node(n NodeSpec, field string) {
	if !knownKinds[n.Kind] {
		v.add(ErrUnknownKind, field+".kind", n.Line, "unknown node kind %q", n.Kind)
		return
	}
	if n.Type != "" {
		if _, err := ParseType(n.Type); err != nil {
			v.add(ErrInvalidType, field+".type", n.Line, "%v", err)
		}
	}

	switch n.Kind {
	case KindOp:
		if n.Op == "" {
			v.add(ErrMissingField, field+".op", n.Line, "op node requires an operation name")
		} else if _, ok := v.table.Lookup(n.Op); !ok {
			v.add(ErrUnknownOperation, field+".op", n.Line, "unknown operation %q", n.Op)
		}
	case KindSubject, KindSourceSubject:
		v.channel(n, field)
		if _, ok := subjectKinds[n.Subject]; !ok {
			v.add(ErrInvalidSubject, field+".subject", n.Line, "unknown subject kind %q", n.Subject)
		}
		if n.Capacity < 0 {
			v.add(ErrInvalidSubject, field+".capacity", n.Line, "capacity must be non-negative, got %d", n.Capacity)
		}
		if n.Kind == KindSourceSubject && n.Type == "" {
			v.add(ErrMissingField, field+".type", n.Line, "source_subject requires a type")
		}
	case KindSubscribe, KindMulticast:
		v.channel(n, field)
	case KindMapping:
		if len(n.Mappings) == 0 {
			v.add(ErrMissingField, field+".mappings", n.Line, "mapping node requires at least one mapping")
		}
		for j, m := range n.Mappings {
			if m.Property == "" {
				v.add(ErrInvalidMapping, fmt.Sprintf("%s.mappings[%d].property", field, j), n.Line, "mapping requires a property")
			}
		}
	case KindNested, KindGroup:
		if n.Workflow == nil {
			v.add(ErrMissingField, field+".workflow", n.Line, "%s node requires a workflow", n.Kind)
			return
		}
		v.document(n.Workflow, field+".workflow.")
	case KindInclude:
		if n.Path == "" {
			v.add(ErrMissingField, field+".path", n.Line, "include node requires a path")
		}
	case KindInput:
		if n.Index < 0 {
			v.add(ErrInvalidIndex, field+".index", n.Line, "index must be non-negative, got %d", n.Index)
		}
	}
}

func (v *validator) channel(n NodeSpec, field string) {
	if strings.TrimSpace(n.Channel) == "" {
		v.add(ErrMissingField, field+".channel", n.Line, "%s node requires a channel name", n.Kind)
	}
}
