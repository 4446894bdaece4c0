package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/ops"
)

func intp(i int) *int { return &i }

func TestValidate_Valid(t *testing.T) {
	doc := &Document{
		Nodes: []NodeSpec{
			{ID: "a", Kind: KindValues, Items: []any{1}},
			{ID: "out", Kind: KindOutput},
		},
		Edges: []EdgeSpec{{From: "a", To: "out"}},
	}
	assert.Empty(t, Validate(doc, ops.Default()))
}

func TestValidate_Rules(t *testing.T) {
	tests := []struct {
		name  string
		node  NodeSpec
		code  string
		field string
	}{
		{"missing id", NodeSpec{Kind: KindPass}, ErrMissingID, "nodes[0].id"},
		{"unknown kind", NodeSpec{ID: "x", Kind: "warp"}, ErrUnknownKind, "nodes[0].kind"},
		{"missing op", NodeSpec{ID: "x", Kind: KindOp}, ErrMissingField, "nodes[0].op"},
		{"unknown op", NodeSpec{ID: "x", Kind: KindOp, Op: "nope"}, ErrUnknownOperation, "nodes[0].op"},
		{"bad type", NodeSpec{ID: "x", Kind: KindConstant, Type: "List<>"}, ErrInvalidType, "nodes[0].type"},
		{"subject without channel", NodeSpec{ID: "x", Kind: KindSubject}, ErrMissingField, "nodes[0].channel"},
		{"bad subject kind", NodeSpec{ID: "x", Kind: KindSubject, Channel: "c", Subject: "sticky"}, ErrInvalidSubject, "nodes[0].subject"},
		{"negative capacity", NodeSpec{ID: "x", Kind: KindSubject, Channel: "c", Subject: "replay", Capacity: -1}, ErrInvalidSubject, "nodes[0].capacity"},
		{"untyped source subject", NodeSpec{ID: "x", Kind: KindSourceSubject, Channel: "c"}, ErrMissingField, "nodes[0].type"},
		{"multicast without channel", NodeSpec{ID: "x", Kind: KindMulticast}, ErrMissingField, "nodes[0].channel"},
		{"empty mapping", NodeSpec{ID: "x", Kind: KindMapping}, ErrMissingField, "nodes[0].mappings"},
		{"mapping without property", NodeSpec{ID: "x", Kind: KindMapping, Mappings: []MappingSpec{{Select: "a"}}}, ErrInvalidMapping, "nodes[0].mappings[0].property"},
		{"nested without workflow", NodeSpec{ID: "x", Kind: KindNested}, ErrMissingField, "nodes[0].workflow"},
		{"include without path", NodeSpec{ID: "x", Kind: KindInclude}, ErrMissingField, "nodes[0].path"},
		{"negative input", NodeSpec{ID: "x", Kind: KindInput, Index: -1}, ErrInvalidIndex, "nodes[0].index"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := Validate(&Document{Nodes: []NodeSpec{tt.node}}, ops.Default())
			require.Len(t, errs, 1)
			assert.Equal(t, tt.code, errs[0].Code)
			assert.Equal(t, tt.field, errs[0].Field)
		})
	}
}

func TestValidate_NestedPrefix(t *testing.T) {
	doc := &Document{Nodes: []NodeSpec{{
		ID: "g", Kind: KindGroup,
		Workflow: &Document{Nodes: []NodeSpec{{ID: "y", Kind: "warp", Line: 9}}},
	}}}
	errs := Validate(doc, ops.Default())
	require.Len(t, errs, 1)
	assert.Equal(t, "nodes[0].workflow.nodes[0].kind", errs[0].Field)
	assert.Equal(t, `[E103] line 9: nodes[0].workflow.nodes[0].kind: unknown node kind "warp"`, errs[0].Error())
}

func TestValidate_Edges(t *testing.T) {
	doc := &Document{
		Nodes: []NodeSpec{
			{ID: "a", Kind: KindConstant, Value: 1},
			{ID: "b", Kind: KindConstant, Value: 2},
			{ID: "m", Kind: KindOp, Op: "merge"},
		},
		Edges: []EdgeSpec{
			{From: "a", To: "m"},
			{From: "b", To: "m", Index: intp(0)},
			{From: "a", To: "m", Index: intp(-1)},
		},
	}
	errs := Validate(doc, ops.Default())
	require.Len(t, errs, 2)
	assert.Equal(t, ErrInvalidIndex, errs[0].Code)
	assert.Equal(t, ErrDuplicateSlot, errs[1].Code)
	assert.Equal(t, "edges[1]", errs[1].Field)
}

func TestValidate_Empty(t *testing.T) {
	errs := Validate(&Document{}, ops.Default())
	require.Len(t, errs, 1)
	assert.Equal(t, ErrEmptyDocument, errs[0].Code)
}

func TestSlots_DefaultFollowsExplicit(t *testing.T) {
	doc := &Document{Edges: []EdgeSpec{
		{From: "a", To: "m", Index: intp(2)},
		{From: "b", To: "m"},
		{From: "c", To: "n"},
	}}
	assert.Equal(t, []int{2, 3, 0}, doc.slots())
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want *ir.Type
	}{
		{"int64", ir.Int64},
		{"string[]", ir.ArrayOf(ir.String)},
		{"List<int32>", ir.ListOf(ir.Int32)},
		{"Tuple<int32, string>", ir.TupleOf(ir.Int32, ir.String)},
		{"Timestamped<List<bool>>", ir.TimestampedOf(ir.ListOf(ir.Bool))},
		{"List<int8>[]", ir.ArrayOf(ir.ListOf(ir.Int8))},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			require.NoError(t, err)
			assert.True(t, ir.Equal(tt.want, got), "got %s", got)
		})
	}
}

func TestParseType_Errors(t *testing.T) {
	for _, in := range []string{"", "int65", "List", "int64<int32>", "Tuple<int32>", "List<int32", "List<int32>x"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseType(in)
			assert.Error(t, err)
		})
	}
}
