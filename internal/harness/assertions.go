package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/promptc/internal/ir"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// EvaluateAssertions checks every assertion against result and returns the
// failure messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluateAssertion(result, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluateAssertion(result *Result, a Assertion) error {
	switch a.Type {
	case AssertCompiles:
		return assertCompiles(result)
	case AssertErrorCodes:
		return assertErrorCodes(result, a)
	}

	// The remaining assertions inspect the IR.
	if result.ir == nil {
		return &AssertionError{
			Type:     a.Type,
			Expected: "schema compiles",
			Actual:   fmt.Sprintf("errors %v", result.Outcome.Codes),
		}
	}
	switch a.Type {
	case AssertEntityCount:
		return assertEntityCount(result, a)
	case AssertEnvVars:
		return assertEnvVars(result, a)
	case AssertFindingCount:
		return assertFindingCount(result, a)
	case AssertRecursiveCycle:
		return assertRecursiveCycle(result, a)
	}
	return fmt.Errorf("unknown assertion type %q", a.Type)
}

func assertCompiles(result *Result) error {
	if result.ir != nil {
		return nil
	}
	return &AssertionError{
		Type:     AssertCompiles,
		Expected: "schema compiles",
		Actual:   fmt.Sprintf("errors %v", result.Outcome.Codes),
	}
}

// assertErrorCodes compares codes as multisets.
func assertErrorCodes(result *Result, a Assertion) error {
	got := slices.Sorted(slices.Values(result.Outcome.Codes))
	want := slices.Sorted(slices.Values(a.Codes))
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertErrorCodes,
		Expected: fmt.Sprintf("codes %v", want),
		Actual:   fmt.Sprintf("codes %v", got),
	}
}

func assertEntityCount(result *Result, a Assertion) error {
	got := result.Outcome.Counts[a.Kind]
	if got == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEntityCount,
		Expected: fmt.Sprintf("%d %s", a.Count, a.Kind),
		Actual:   fmt.Sprintf("%d %s", got, a.Kind),
	}
}

func assertEnvVars(result *Result, a Assertion) error {
	want := slices.Sorted(slices.Values(a.Names))
	if slices.Equal(result.Outcome.EnvVars, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEnvVars,
		Expected: fmt.Sprintf("env vars %v", want),
		Actual:   fmt.Sprintf("env vars %v", result.Outcome.EnvVars),
	}
}

func assertFindingCount(result *Result, a Assertion) error {
	count := 0
	for _, f := range result.findings {
		if a.Entity == "" || f.Entity == a.Entity {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	scope := "findings"
	if a.Entity != "" {
		scope = "findings in " + a.Entity
	}
	return &AssertionError{
		Type:     AssertFindingCount,
		Expected: fmt.Sprintf("%d %s", a.Count, scope),
		Actual:   fmt.Sprintf("%d %s", count, scope),
	}
}

func assertRecursiveCycle(result *Result, a Assertion) error {
	want := ir.NewClassSet(a.Names...)
	for _, cycle := range result.Outcome.Cycles {
		if slices.Equal(cycle, want) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertRecursiveCycle,
		Expected: fmt.Sprintf("cycle %v", want),
		Actual:   fmt.Sprintf("cycles %v", result.Outcome.Cycles),
	}
}
