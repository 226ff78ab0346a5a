package cli

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/promptc/internal/ast"
	"github.com/roach88/promptc/internal/compiler"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/loader"
)

// loadSchema loads dir and appends the generators declared in the project
// config. A non-nil error has already been written to formatter.
func loadSchema(opts *RootOptions, formatter *OutputFormatter, dir string, heading string, failCode int) (*loader.Result, error) {
	res, err := loader.Load(dir)
	if err != nil {
		var loadErrs loader.LoadErrors
		if errors.As(err, &loadErrs) {
			_ = formatter.Errors(heading, loadErrorsToCLI(loadErrs), nil)
			return nil, NewExitError(failCode, fmt.Sprintf("schema has %d error(s)", len(loadErrs)))
		}
		var loadErr *loader.LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
		}
		_ = formatter.Error(loader.ErrCodeGeneric, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, loader.ErrCodeGeneric, err)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", res.FileCount, dir)
	for _, g := range opts.projectConfig().Generators {
		res.Schema.GeneratorDecls = append(res.Schema.GeneratorDecls, ast.Generator{
			Name:       g.Name,
			OutputType: g.OutputType,
			OutputDir:  g.OutputDir,
			Version:    g.Version,
		})
	}
	return res, nil
}

// compileSchema loads and compiles dir. A non-nil error has already been
// written to formatter.
func compileSchema(opts *RootOptions, formatter *OutputFormatter, dir string) (*ir.IntermediateRepr, error) {
	res, err := loadSchema(opts, formatter, dir, "Compilation failed", ExitCommandError)
	if err != nil {
		return nil, err
	}

	r, err := compiler.Compile(res.Schema, compiler.WithLogger(slog.Default()))
	if err != nil {
		errs := compileErrorsToCLI(err)
		_ = formatter.Errors("Compilation failed", errs, nil)
		return nil, NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}
	return r, nil
}

func loadErrorsToCLI(errs loader.LoadErrors) []CLIError {
	out := make([]CLIError, len(errs))
	for i, e := range errs {
		out[i] = CLIError{Code: e.Code, Message: e.Message}
		if e.Pos.IsValid() {
			out[i].Pos = fmt.Sprintf("%s:%d:%d", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column())
		}
	}
	return out
}

func validationErrorsToCLI(errs []compiler.ValidationError) []CLIError {
	out := make([]CLIError, len(errs))
	for i, e := range errs {
		out[i] = CLIError{Code: e.Code, Message: e.Field + ": " + e.Message}
		if !e.Span.IsZero() {
			out[i].Pos = e.Span.String()
		}
	}
	return out
}

// compileErrorsToCLI flattens what compiler.Compile returns.
func compileErrorsToCLI(err error) []CLIError {
	var verrs compiler.ValidationErrors
	if errors.As(err, &verrs) {
		return validationErrorsToCLI(verrs)
	}
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		e := CLIError{Code: ce.Code, Message: ce.Entity + ": " + ce.Message}
		if !ce.Span.IsZero() {
			e.Pos = ce.Span.String()
		}
		return []CLIError{e}
	}
	return []CLIError{{Code: loader.ErrCodeGeneric, Message: err.Error()}}
}
