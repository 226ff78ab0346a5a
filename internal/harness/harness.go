package harness

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/promptc/internal/ast"
	"github.com/roach88/promptc/internal/compiler"
	"github.com/roach88/promptc/internal/config"
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/jinja"
	"github.com/roach88/promptc/internal/loader"
	"github.com/roach88/promptc/internal/promptcheck"
	"github.com/roach88/promptc/internal/typecheck"
)

// Harness is the scenario execution engine.
type Harness struct {
	ctx    typecheck.Context
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Schema problems (load, validation and lowering errors) are part of the
// outcome, not a Run error; assertions decide whether they were expected.
// Run returns an error only when the scenario cannot be executed at all.
//
// Execution flow:
// 1. Load the schema directory
// 2. Compile it and type-check its templates
// 3. Evaluate flow steps against the compiled schema
// 4. Evaluate assertions against the outcome
func Run(scenario *Scenario) (*Result, error) {
	ctx, err := config.ParseContext(cmp.Or(scenario.Context, typecheck.ContextPrompt.String()))
	if err != nil {
		return nil, err
	}

	h := &Harness{
		ctx:    ctx,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}

	result := NewResult()
	res, err := loader.Load(scenario.Schema)
	if err != nil {
		if codes, ok := loadErrorCodes(err); ok {
			result.Outcome.Codes = append(result.Outcome.Codes, codes...)
		} else {
			return nil, fmt.Errorf("failed to load schema: %w", err)
		}
	} else {
		h.compile(res.Schema, result)
	}

	if len(scenario.Flow) > 0 {
		if result.ir == nil {
			result.AddError("flow requires a schema that compiles")
		} else {
			h.executeFlow(scenario.Flow, result)
		}
	}

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}

	return result, nil
}

func loadErrorCodes(err error) ([]string, bool) {
	var loadErrs loader.LoadErrors
	if errors.As(err, &loadErrs) {
		codes := make([]string, len(loadErrs))
		for i, e := range loadErrs {
			codes[i] = e.Code
		}
		return codes, true
	}
	var loadErr *loader.LoadError
	if errors.As(err, &loadErr) {
		return []string{loadErr.Code}, true
	}
	return nil, false
}

// compile lowers db and records the IR facts assertions look at.
func (h *Harness) compile(db ast.Database, result *Result) {
	r, err := compiler.Compile(db, compiler.WithLogger(h.logger))
	if err != nil {
		var verrs compiler.ValidationErrors
		var ce *compiler.CompileError
		switch {
		case errors.As(err, &verrs):
			for _, e := range verrs {
				result.Outcome.Codes = append(result.Outcome.Codes, e.Code)
			}
		case errors.As(err, &ce):
			result.Outcome.Codes = append(result.Outcome.Codes, ce.Code)
		default:
			result.AddError(fmt.Sprintf("compile: %v", err))
		}
		return
	}

	digest, err := ir.Digest(r)
	if err != nil {
		result.AddError(fmt.Sprintf("digest: %v", err))
		return
	}

	result.ir = r
	result.Outcome.Digest = digest
	result.Outcome.Counts = countEntities(r)
	result.Outcome.EnvVars = append(result.Outcome.EnvVars, r.RequiredEnvVars()...)
	result.Outcome.Cycles = append(result.Outcome.Cycles, r.FiniteRecursiveCycles()...)
	result.findings = promptcheck.Check(r)
	for _, f := range result.findings {
		result.Outcome.Findings = append(result.Outcome.Findings, f.String())
	}

	h.logger.Info("schema compiled",
		"digest", digest,
		"findings", len(result.findings),
	)
}

func countEntities(r *ir.IntermediateRepr) map[string]int {
	counts := make(map[string]int, len(entityKinds))
	for _, kind := range entityKinds {
		counts[kind] = 0
	}
	for range r.WalkEnums() {
		counts["enums"]++
	}
	for range r.WalkClasses() {
		counts["classes"]++
	}
	for range r.WalkFunctions() {
		counts["functions"]++
	}
	for range r.WalkClients() {
		counts["clients"]++
	}
	for range r.WalkRetryPolicies() {
		counts["retry_policies"]++
	}
	for range r.WalkTemplateStrings() {
		counts["template_strings"]++
	}
	for range r.WalkTests() {
		counts["tests"]++
	}
	return counts
}

// executeFlow evaluates every step in a fresh registry seeded from the
// compiled schema, so steps never see each other's variables.
func (h *Harness) executeFlow(flow []EvalStep, result *Result) {
	for i, step := range flow {
		types := promptcheck.SchemaTypes(result.ir, h.ctx)
		out := StepOutcome{Eval: step.Eval, Diagnostics: []string{}}

		// Declare in name order so failures are reported deterministically
		ok := true
		for _, name := range slices.Sorted(maps.Keys(step.Vars)) {
			t, err := promptcheck.ParseType(step.Vars[name], types, result.ir)
			if err != nil {
				result.AddError(fmt.Sprintf("flow[%d]: var %s: %v", i, name, err))
				ok = false
				continue
			}
			types.AddVariable(name, t)
		}
		if !ok {
			continue
		}

		expr, err := jinja.ParseExpr(step.Eval)
		if err != nil {
			out.Diagnostics = append(out.Diagnostics, err.Error())
		} else {
			t, diags := typecheck.Infer(expr, types)
			out.Type = t.String()
			for _, d := range diags {
				out.Diagnostics = append(out.Diagnostics, d.String())
			}
		}
		result.Outcome.Steps = append(result.Outcome.Steps, out)

		if step.Expect != nil {
			for _, errMsg := range checkExpect(i, out, step.Expect) {
				result.AddError(errMsg)
			}
		}

		h.logger.Info("flow step evaluated",
			"step", i,
			"eval", step.Eval,
			"type", out.Type,
			"diagnostics", len(out.Diagnostics),
		)
	}
}

// checkExpect compares one step outcome with its expect clause.
func checkExpect(index int, out StepOutcome, expect *ExpectClause) []string {
	var errs []string
	if expect.Type != "" && out.Type != expect.Type {
		errs = append(errs, fmt.Sprintf("flow[%d]: expected type %s, got %s", index, expect.Type, out.Type))
	}
	if len(expect.Diagnostics) == 0 && len(out.Diagnostics) > 0 {
		errs = append(errs, fmt.Sprintf("flow[%d]: unexpected diagnostics: %s", index, strings.Join(out.Diagnostics, "; ")))
	}
	for _, want := range expect.Diagnostics {
		if !slices.ContainsFunc(out.Diagnostics, func(d string) bool { return strings.Contains(d, want) }) {
			errs = append(errs, fmt.Sprintf("flow[%d]: no diagnostic contains %q", index, want))
		}
	}
	return errs
}
