package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rxflow/internal/loader"
	"github.com/roach88/rxflow/internal/ops"
	"github.com/roach88/rxflow/internal/overload"
)

// OperationInfo describes one builtin operation.
type OperationInfo struct {
	Name       string   `json:"name"`
	MinArgs    int      `json:"min_args"`
	MaxArgs    int      `json:"max_args"` // -1 when variadic
	Signatures []string `json:"signatures"`
}

// NewOpsCommand creates the ops command.
func NewOpsCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ops [name]",
		Short: "List the operations available to op nodes",
		Long: `List the builtin operations that op nodes can name, with their
overloads. The overload applied to a node is chosen from the element
types of its inputs when the workflow is compiled.

Examples:
  rxflow ops
  rxflow ops zip --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			return runOps(rootOpts, name, cmd)
		},
	}
	return cmd
}

func runOps(opts *RootOptions, name string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	table := ops.Default()

	names := table.Names()
	if name != "" {
		if _, ok := table.Lookup(name); !ok {
			msg := fmt.Sprintf("unknown operation %q", name)
			_ = formatter.Error(loader.ErrUnknownOperation, msg, names)
			return NewExitError(ExitCommandError, msg)
		}
		names = []string{name}
	}

	infos := make([]OperationInfo, 0, len(names))
	for _, n := range names {
		op, _ := table.Lookup(n)
		infos = append(infos, describeOperation(op))
	}

	if formatter.Format == "json" {
		return formatter.JSON(CLIResponse{Status: "ok", Data: infos})
	}
	w := formatter.Writer
	for _, info := range infos {
		fmt.Fprintf(w, "%s (%s)\n", info.Name, arityString(info.MinArgs, info.MaxArgs))
		for _, s := range info.Signatures {
			fmt.Fprintf(w, "  %s\n", s)
		}
	}
	return nil
}

func describeOperation(op *overload.Operation) OperationInfo {
	lo, hi := op.ArgumentRange()
	info := OperationInfo{Name: op.Name, MinArgs: lo, MaxArgs: hi}
	for _, s := range op.Signatures {
		info.Signatures = append(info.Signatures, s.String())
	}
	return info
}

func arityString(lo, hi int) string {
	switch {
	case hi == overload.Unbounded:
		return fmt.Sprintf("%d+ input(s)", lo)
	case lo == hi:
		return fmt.Sprintf("%d input(s)", lo)
	default:
		return fmt.Sprintf("%d-%d input(s)", lo, hi)
	}
}
