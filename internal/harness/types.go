package harness

import (
	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/promptcheck"
)

// Outcome is everything a scenario run observed. It is what golden files
// capture.
type Outcome struct {
	// Digest is the IR content digest; empty when compilation failed.
	Digest string `json:"digest,omitempty"`

	// Codes lists load, validation and lowering error codes in report order.
	Codes []string `json:"codes"`

	// Counts maps entity kinds to the number of IR entities of that kind.
	Counts map[string]int `json:"counts,omitempty"`

	EnvVars  []string      `json:"env_vars"`
	Cycles   []ir.ClassSet `json:"cycles"`
	Findings []string      `json:"findings"`
	Steps    []StepOutcome `json:"steps"`
}

// StepOutcome is the result of one flow step.
type StepOutcome struct {
	Eval        string   `json:"eval"`
	Type        string   `json:"type"`
	Diagnostics []string `json:"diagnostics"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	Outcome Outcome `json:"outcome"`

	ir       *ir.IntermediateRepr
	findings []promptcheck.Finding
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
		Outcome: Outcome{
			Codes:    []string{},
			EnvVars:  []string{},
			Cycles:   []ir.ClassSet{},
			Findings: []string{},
			Steps:    []StepOutcome{},
		},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// IR returns the compiled schema, or nil when compilation failed.
func (r *Result) IR() *ir.IntermediateRepr {
	return r.ir
}
