package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/store"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output   string // output file path
	Database string // snapshot store path
}

// CompilationResult is the JSON payload of a successful compile.
type CompilationResult struct {
	Digest          string                `json:"digest"`
	IRVersion       string                `json:"ir_version"`
	CompilerVersion string                `json:"compiler_version"`
	Stats           CompilationStats      `json:"stats"`
	Snapshot        *store.Snapshot       `json:"snapshot,omitempty"`
	IR              *ir.IntermediateRepr `json:"ir"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	Enums           int      `json:"enums"`
	Classes         int      `json:"classes"`
	Functions       int      `json:"functions"`
	Clients         int      `json:"clients"`
	RetryPolicies   int      `json:"retry_policies"`
	TemplateStrings int      `json:"template_strings"`
	Tests           int      `json:"tests"`
	RecursiveCycles int      `json:"recursive_cycles"`
	EnvVars         []string `json:"env_vars"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [schema-dir]",
		Short: "Compile a CUE schema to IR",
		Long: `Compile a CUE schema directory to the intermediate representation.

The schema is loaded, validated and lowered. The IR can be written as
indented JSON and recorded in a snapshot store keyed by its digest.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd.Context(), opts, opts.schemaDir(args), cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record the IR in this snapshot database")

	return cmd
}

func runCompile(ctx context.Context, opts *CompileOptions, schemaDir string, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := opts.formatter(cmd)
	cfg := opts.projectConfig()

	r, err := compileSchema(opts.RootOptions, formatter, schemaDir)
	if err != nil {
		return err
	}

	digest, err := ir.Digest(r)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, fmt.Sprintf("hashing IR: %v", err), nil)
		return WrapExitError(ExitCommandError, "hashing IR", err)
	}
	formatter.VerboseLog("IR digest %s", digest)

	result := &CompilationResult{
		Digest:          digest,
		IRVersion:       ir.IRVersion,
		CompilerVersion: ir.CompilerVersion,
		Stats:           calculateStats(r),
		IR:              r,
	}

	output := opts.Output
	if output == "" {
		output = cfg.Output
	}
	if output != "" {
		if err := writeIRToFile(r, output); err != nil {
			_ = formatter.Error(ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
			return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
		}
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Database
	}
	inserted := false
	if dbPath != "" {
		snap, ins, err := recordSnapshot(ctx, dbPath, r, schemaDir)
		if err != nil {
			_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeStoreFailed, err)
		}
		result.Snapshot = &snap
		inserted = ins
		formatter.TraceID = snap.BuildID
	}

	return outputCompileSuccess(formatter, result, output, inserted)
}

func recordSnapshot(ctx context.Context, path string, r *ir.IntermediateRepr, source string) (store.Snapshot, bool, error) {
	st, err := store.Open(path)
	if err != nil {
		return store.Snapshot{}, false, err
	}
	defer st.Close()
	return st.RecordSnapshot(ctx, r, source)
}

// calculateStats computes summary statistics from the IR.
func calculateStats(r *ir.IntermediateRepr) CompilationStats {
	stats := CompilationStats{
		RecursiveCycles: len(r.FiniteRecursiveCycles()),
		EnvVars:         r.RequiredEnvVars(),
	}
	for range r.WalkEnums() {
		stats.Enums++
	}
	for range r.WalkClasses() {
		stats.Classes++
	}
	for range r.WalkFunctions() {
		stats.Functions++
	}
	for range r.WalkClients() {
		stats.Clients++
	}
	for range r.WalkRetryPolicies() {
		stats.RetryPolicies++
	}
	for range r.WalkTemplateStrings() {
		stats.TemplateStrings++
	}
	for range r.WalkTests() {
		stats.Tests++
	}
	return stats
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, outputFile string, inserted bool) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	s := result.Stats
	fmt.Fprintf(formatter.Writer, "✓ Compiled %d class(es), %d enum(s), %d function(s)\n\n",
		s.Classes, s.Enums, s.Functions)
	fmt.Fprintf(formatter.Writer, "  clients: %d, retry policies: %d, template strings: %d, tests: %d\n",
		s.Clients, s.RetryPolicies, s.TemplateStrings, s.Tests)
	if s.RecursiveCycles > 0 {
		fmt.Fprintf(formatter.Writer, "  recursive class groups: %d\n", s.RecursiveCycles)
	}
	fmt.Fprintf(formatter.Writer, "  digest: %s\n\n", result.Digest)

	if outputFile != "" {
		fmt.Fprintf(formatter.Writer, "Wrote IR to %s\n", outputFile)
	}
	if snap := result.Snapshot; snap != nil {
		if inserted {
			fmt.Fprintf(formatter.Writer, "Recorded snapshot #%d (build %s)\n", snap.Seq, snap.BuildID)
		} else {
			fmt.Fprintf(formatter.Writer, "Unchanged since snapshot #%d\n", snap.Seq)
		}
	}
	return nil
}

// writeIRToFile writes the IR to a file as indented JSON. Canonical JSON
// without indentation is used only for hashing.
func writeIRToFile(r *ir.IntermediateRepr, filename string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling IR: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
