package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/promptc/internal/ir"
)

// Snapshot is the golden-file form of a scenario run.
type Snapshot struct {
	ScenarioName string  `json:"scenario_name"`
	Outcome      Outcome `json:"outcome"`
}

// MarshalSnapshot serializes a run as canonical JSON, so equal outcomes are
// byte-identical.
func MarshalSnapshot(scenarioName string, result *Result) ([]byte, error) {
	return ir.MarshalCanonical(Snapshot{ScenarioName: scenarioName, Outcome: result.Outcome})
}

// RunWithGolden executes a scenario and compares its outcome against a golden
// file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the outcome doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := MarshalSnapshot(scenarioName, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)

	return nil
}
