package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/promptc/internal/config"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/jinja"
	"github.com/roach88/promptc/internal/promptcheck"
	"github.com/roach88/promptc/internal/typecheck"
)

// EvalOptions holds flags for the eval command.
type EvalOptions struct {
	*RootOptions
	Vars      []string // name=type
	Context   string   // "prompt" | "constraint"; empty means the configured one
	SchemaDir string   // optional schema whose classes and template strings are in scope
}

// EvalResult is the JSON payload of the eval command.
type EvalResult struct {
	Expression  string                `json:"expression"`
	Type        string                `json:"type"`
	Diagnostics typecheck.Diagnostics `json:"diagnostics"`
}

// NewEvalCommand creates the eval command.
func NewEvalCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EvalOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval <expression>",
		Short: "Infer the type of one template expression",
		Long: `Type-check a single Jinja expression against the builtin registry.

Variables are declared with --var name=type, where type is string, int,
float, bool, number, none, or a class or enum of the --schema, optionally
followed by [] (list) and ? (optional), e.g. --var jobs=Job[]?`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "declare a variable as name=type (repeatable)")
	cmd.Flags().StringVar(&opts.Context, "context", "", "registry context (prompt|constraint)")
	cmd.Flags().StringVar(&opts.SchemaDir, "schema", "", "schema directory whose classes are in scope")

	return cmd
}

func runEval(opts *EvalOptions, src string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	ctx := opts.projectConfig().EvalContext()
	if opts.Context != "" {
		c, err := config.ParseContext(opts.Context)
		if err != nil {
			_ = formatter.Error(ErrCodeBadArgument, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeBadArgument, err)
		}
		ctx = c
	}

	var r *ir.IntermediateRepr
	types := typecheck.Default(ctx)
	if opts.SchemaDir != "" {
		var err error
		r, err = compileSchema(opts.RootOptions, formatter, opts.SchemaDir)
		if err != nil {
			return err
		}
		types = promptcheck.SchemaTypes(r, ctx)
	}

	for _, v := range opts.Vars {
		name, typ, err := parseVar(v, types, r)
		if err != nil {
			_ = formatter.Error(ErrCodeBadArgument, err.Error(), nil)
			return WrapExitError(ExitCommandError, ErrCodeBadArgument, err)
		}
		formatter.VerboseLog("var %s: %s", name, typ)
		types.AddVariable(name, typ)
	}

	expr, err := jinja.ParseExpr(src)
	if err != nil {
		_ = formatter.Error(ErrCodeSyntax, err.Error(), nil)
		return WrapExitError(ExitFailure, ErrCodeSyntax, err)
	}

	t, diags := typecheck.Infer(expr, types)
	result := EvalResult{Expression: src, Type: t.String(), Diagnostics: diags}
	if result.Diagnostics == nil {
		result.Diagnostics = typecheck.Diagnostics{}
	}

	if len(diags) > 0 {
		errs := make([]CLIError, len(diags))
		for i, d := range diags {
			errs[i] = CLIError{Code: ErrCodeTemplate, Message: d.String(), Details: d.Kind}
		}
		if err := formatter.Errors(fmt.Sprintf("%d diagnostic(s)", len(diags)), errs, result); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("expression has %d diagnostic(s)", len(diags)))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "%s: %s\n", src, result.Type)
	return nil
}

// parseVar reads name=type. Suffixes apply right to left, so "Job[]?" is an
// optional list of Job.
func parseVar(s string, types *typecheck.PredefinedTypes, r *ir.IntermediateRepr) (string, typecheck.Type, error) {
	name, spec, ok := strings.Cut(s, "=")
	name, spec = strings.TrimSpace(name), strings.TrimSpace(spec)
	if !ok || name == "" || spec == "" {
		return "", nil, fmt.Errorf("invalid --var %q: want name=type", s)
	}
	t, err := promptcheck.ParseType(spec, types, r)
	if err != nil {
		return "", nil, fmt.Errorf("invalid --var %q: %w", s, err)
	}
	return name, t, nil
}
