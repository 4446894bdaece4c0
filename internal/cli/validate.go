package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/rxflow/internal/compiler"
	"github.com/roach88/rxflow/internal/loader"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid       bool                  `json:"valid"`
	Errors      []CLIError            `json:"errors,omitempty"`
	Diagnostics []compiler.Diagnostic `json:"diagnostics,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <workflow>",
		Short: "Validate a workflow without printing its fragment",
		Long: `Validate a workflow document.

Reports every document error (unknown kinds and operators, bad types,
dangling or conflicting edges) with its line, then checks that the graph
builds. Faster feedback than compile while editing.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	res, errs := loadWorkflow(opts, path, loader.LoadModeCollectAll)
	if len(errs) > 0 {
		return outputValidationErrors(formatter, describeErrors(errs))
	}
	formatter.VerboseLog("Loaded %s: %d node(s)", path, res.Workflow.Len())

	diags, err := compiler.Analyze(res.Workflow)
	if err != nil {
		return outputValidationErrors(formatter, []CLIError{describeError(err)})
	}
	if _, err := compiler.Build(res.Workflow, compiler.WithLogger(opts.logger())); err != nil {
		return outputValidationErrors(formatter, []CLIError{describeError(err)})
	}

	return outputValidateSuccess(formatter, diags)
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, diags []compiler.Diagnostic) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Diagnostics: diags})
	}

	fmt.Fprintln(formatter.Writer, "✓ Workflow valid")
	for _, d := range diags {
		fmt.Fprintf(formatter.Writer, "%s: %s\n", d.Level, d.Message)
	}
	return nil
}

// outputValidationErrors outputs validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []CLIError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   ValidationResult{Valid: false, Errors: errs},
			Error:  &errs[0],
		}
		if err := formatter.JSON(response); err != nil {
			return err
		}
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	writeErrors(formatter, errs)

	// Validation failures = exit code 1
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
