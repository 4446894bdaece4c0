package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/rxflow/internal/compiler"
	"github.com/roach88/rxflow/internal/ir"
	"github.com/roach88/rxflow/internal/loader"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult describes a compiled workflow.
type CompilationResult struct {
	Workflow      string                `json:"workflow"`
	Nodes         int                   `json:"nodes"`
	Hash          string                `json:"hash"`
	EngineVersion string                `json:"engine_version"`
	Fragment      map[string]any        `json:"fragment"`
	Diagnostics   []compiler.Diagnostic `json:"diagnostics,omitempty"`

	tree string
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <workflow>",
		Short: "Compile a workflow to its pipeline fragment",
		Long: `Compile a YAML or CUE workflow document to a pipeline fragment.

The document is validated, its graph is built in dependency order and
the resulting fragment is printed as a tree together with its content
hash. Runs record the same hash, so a stored run can be matched to the
workflow revision it came from.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the fragment description (JSON) to this file")

	return cmd
}

func runCompile(opts *CompileOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	res, errs := loadWorkflow(opts.RootOptions, path, loader.LoadModeCollectAll)
	if len(errs) > 0 {
		return outputCompileErrors(formatter, describeErrors(errs))
	}
	formatter.VerboseLog("Loaded %s: %d node(s)", path, res.Workflow.Len())

	diags, err := compiler.Analyze(res.Workflow)
	if err != nil {
		return outputCompileErrors(formatter, []CLIError{describeError(err)})
	}

	f, err := compiler.Build(res.Workflow, compiler.WithLogger(opts.logger()))
	if err != nil {
		return outputCompileErrors(formatter, []CLIError{describeError(err)})
	}

	hash, err := ir.Hash(f)
	if err != nil {
		return outputCompileErrors(formatter, []CLIError{{Code: ErrCodeGeneric, Message: fmt.Sprintf("hashing fragment: %v", err)}})
	}

	result := &CompilationResult{
		Workflow:      filepath.Base(path),
		Nodes:         res.Workflow.Len(),
		Hash:          hash,
		EngineVersion: ir.EngineVersion,
		Fragment:      ir.Describe(f),
		Diagnostics:   diags,
		tree:          ir.Format(f),
	}

	if opts.Output != "" {
		if err := writeFragmentFile(result, opts.Output); err != nil {
			return outputCompileErrors(formatter, []CLIError{{Code: ErrCodeWriteFailed, Message: fmt.Sprintf("writing output file: %v", err)}})
		}
	}

	return outputCompileSuccess(formatter, result, opts.Output)
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %s (%d node(s))\n", result.Workflow, result.Nodes)
	fmt.Fprintf(w, "hash: %s\n\n", result.Hash)
	fmt.Fprint(w, result.tree)

	if len(result.Diagnostics) > 0 {
		fmt.Fprintln(w)
		for _, d := range result.Diagnostics {
			fmt.Fprintf(w, "%s: %s\n", d.Level, d.Message)
		}
	}

	if outputFile != "" {
		fmt.Fprintf(w, "\nWrote fragment to %s\n", outputFile)
	}
	return nil
}

// outputCompileErrors outputs loader and build errors.
func outputCompileErrors(formatter *OutputFormatter, errs []CLIError) error {
	if formatter.Format == "json" {
		if err := formatter.JSON(CLIResponse{Status: "error", Error: &errs[0], Data: errs}); err != nil {
			return err
		}
		// Compilation errors are command-level errors (exit code 2)
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)
	writeErrors(formatter, errs)

	// Compilation errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// writeErrors prints errors in text format, one block per error.
func writeErrors(formatter *OutputFormatter, errs []CLIError) {
	for _, e := range errs {
		if e.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", e.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", e.Code, e.Message)
		if nodes, ok := e.Details.([]string); ok {
			for _, n := range nodes {
				fmt.Fprintf(formatter.Writer, "    at %s\n", n)
			}
		}
		fmt.Fprintln(formatter.Writer)
	}
}

// writeFragmentFile writes the compilation result as indented JSON.
func writeFragmentFile(result *CompilationResult, filename string) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling fragment: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}
	return nil
}
