package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/rxflow/internal/overload"
)

func TestOpsListsBuiltins(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewOpsCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	out := buf.String()
	for _, name := range []string{"combine_latest", "concat", "merge", "range", "sum", "take", "zip"} {
		assert.Contains(t, out, name+" (")
	}
	assert.Contains(t, out, "merge (0+ input(s))")
	assert.Contains(t, out, "range (0 input(s))")
}

func TestOpsSingleJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewOpsCommand(&RootOptions{Format: "json"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"zip"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Data []OperationInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "zip", resp.Data[0].Name)
	assert.Equal(t, overload.Unbounded, resp.Data[0].MaxArgs)
	assert.Len(t, resp.Data[0].Signatures, 2)
}

func TestOpsUnknown(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewOpsCommand(&RootOptions{Format: "text"})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"teleport"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E104]")
}

func TestArityString(t *testing.T) {
	assert.Equal(t, "2+ input(s)", arityString(2, overload.Unbounded))
	assert.Equal(t, "1 input(s)", arityString(1, 1))
	assert.Equal(t, "1-2 input(s)", arityString(1, 2))
}
