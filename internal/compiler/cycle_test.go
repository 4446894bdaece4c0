package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/expr"
)

// TestAnalyze_Empty tests that an empty workflow produces no diagnostics.
func TestAnalyze_Empty(t *testing.T) {
	diags, err := Analyze(expr.NewWorkflow())
	require.NoError(t, err)
	assert.Empty(t, diags)
}

// TestAnalyze_DAG tests that an acyclic workflow produces no diagnostics.
func TestAnalyze_DAG(t *testing.T) {
	w := expr.NewWorkflow()
	src := w.Add(&expr.Constant{Value: 1})
	out := w.Add(&expr.WorkflowOutput{})
	connect(t, w, src, out, 0)

	diags, err := Analyze(w)
	require.NoError(t, err)
	assert.Empty(t, diags)
}

// TestAnalyze_TwoNodeCycle tests that a data cycle is a warning with its path.
func TestAnalyze_TwoNodeCycle(t *testing.T) {
	w := expr.NewWorkflow()
	a := w.Add(&expr.Select{Name: "a"})
	b := w.Add(&expr.Select{Name: "b"})
	connect(t, w, a, b, 0)
	connect(t, w, b, a, 0)

	diags, err := Analyze(w)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "warning", diags[0].Level)
	assert.Contains(t, diags[0].Message, "cycle detected")
	assert.ElementsMatch(t, []string{"Select(a)", "Select(b)"}, diags[0].Path)
}

// TestAnalyze_ChannelCycle tests that a channel defined in terms of itself
// names the channel.
func TestAnalyze_ChannelCycle(t *testing.T) {
	w := expr.NewWorkflow()
	sub := w.Add(&expr.SubscribeSubject{Name: "x"})
	pub := w.Add(&expr.Subject{Name: "x"})
	connect(t, w, sub, pub, 0)

	diags, err := Analyze(w)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "channel 'x' is defined in terms of itself", diags[0].Message)
	// Dependency edges are gone after analysis.
	assert.Len(t, pub.Successors, 0)
}

// TestAnalyze_UnresolvedChannel tests that a subscriber without a publisher
// is reported as info.
func TestAnalyze_UnresolvedChannel(t *testing.T) {
	w := expr.NewWorkflow()
	w.Add(&expr.SubscribeSubject{Name: "ghost"})

	diags, err := Analyze(w)
	require.NoError(t, err)
	require.Len(t, diags, 1)
	assert.Equal(t, "info", diags[0].Level)
	assert.Contains(t, diags[0].Message, "channel 'ghost' has no publisher")
	assert.Equal(t, []string{"SubscribeSubject(ghost)"}, diags[0].Path)
}

// TestCycleError_PathFormatting tests the CYCLE message layout.
func TestCycleError_PathFormatting(t *testing.T) {
	w := expr.NewWorkflow()
	a := w.Add(&expr.Select{Name: "a"})
	connect(t, w, a, a, 0)

	_, err := Build(w)
	require.Error(t, err)
	assert.True(t, expr.IsCode(err, expr.CodeCycle))
	assert.Contains(t, err.Error(), "cyclical build dependencies: Select(a)")
}
