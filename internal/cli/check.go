package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/promptc/internal/promptcheck"
)

// CheckOptions holds flags for the check command.
type CheckOptions struct {
	*RootOptions
	Strict bool
}

// CheckResult is the JSON payload of the check command.
type CheckResult struct {
	Clean    bool                  `json:"clean"`
	Findings []promptcheck.Finding `json:"findings"`
}

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CheckOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "check [schema-dir]",
		Short: "Type-check prompts, template strings and constraints",
		Long: `Compile a schema, then type-check every Jinja expression in function
prompts, template strings and assert/check constraints.

Findings are reported as warnings unless --strict (or strict_templates in
the project config) is set, in which case any finding fails the command.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(opts, opts.schemaDir(args), cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on any template finding")

	return cmd
}

func runCheck(opts *CheckOptions, schemaDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	strict := opts.Strict || opts.projectConfig().StrictTemplates

	r, err := compileSchema(opts.RootOptions, formatter, schemaDir)
	if err != nil {
		return err
	}

	findings := promptcheck.Check(r)
	formatter.VerboseLog("Found %d template finding(s)", len(findings))

	if len(findings) > 0 && strict {
		errs := make([]CLIError, len(findings))
		for i, f := range findings {
			errs[i] = findingToCLI(f)
		}
		if err := formatter.Errors("Template check failed", errs, CheckResult{Findings: findings}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("template check failed with %d finding(s)", len(findings)))
	}

	if formatter.Format == "json" {
		return formatter.Success(CheckResult{Clean: len(findings) == 0, Findings: findings})
	}

	if len(findings) == 0 {
		fmt.Fprintln(formatter.Writer, "✓ All templates type-check")
		return nil
	}
	fmt.Fprintf(formatter.Writer, "! %d template finding(s)\n\n", len(findings))
	for _, f := range findings {
		fmt.Fprintf(formatter.Writer, "  %s\n", f)
	}
	return nil
}

func findingToCLI(f promptcheck.Finding) CLIError {
	code := ErrCodeTemplate
	if f.Kind == promptcheck.SyntaxError {
		code = ErrCodeSyntax
	}
	e := CLIError{Code: code, Message: fmt.Sprintf("%s (%s): %s", f.Entity, f.Pos, f.Message), Details: f.Kind}
	if !f.Span.IsZero() {
		e.Pos = f.Span.String()
	}
	return e
}
