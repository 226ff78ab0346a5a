package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/promptc/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool       `json:"valid"`
	Errors []CLIError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [schema-dir]",
		Short: "Validate a schema without lowering it",
		Long: `Validate a CUE schema without producing IR.

Reports every duplicate name, unknown client, retry policy or test target,
reserved name and duplicate member at once. Faster than compile for
development feedback.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, rootOpts.schemaDir(args), cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	res, err := loadSchema(opts, formatter, schemaDir, "Validation failed", ExitFailure)
	if err != nil {
		return err
	}

	validationErrors := compiler.Validate(res.Schema)
	formatter.VerboseLog("Checked %d class(es), %d function(s)", len(res.Schema.ClassDecls), len(res.Schema.FunctionDecls))

	if len(validationErrors) > 0 {
		errs := validationErrorsToCLI(validationErrors)
		if err := formatter.Errors("Validation failed", errs, ValidationResult{Valid: false, Errors: errs}); err != nil {
			return err
		}
		// Validation failures = exit code 1
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true})
	}
	fmt.Fprintln(formatter.Writer, "✓ Schema valid")
	return nil
}
