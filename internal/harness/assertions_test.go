package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/ir"
	"github.com/roach88/promptc/internal/promptcheck"
)

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
}

func compiledResult() *Result {
	r := NewResult()
	r.ir = ir.New(ir.Contents{})
	r.Outcome.Counts = map[string]int{"classes": 2}
	r.Outcome.EnvVars = []string{"A_KEY", "B_KEY"}
	r.Outcome.Cycles = []ir.ClassSet{ir.NewClassSet("Node", "Edge")}
	r.findings = []promptcheck.Finding{{Entity: "F"}, {Entity: "G"}, {Entity: "F"}}
	return r
}

func TestAssertionErrorFormat(t *testing.T) {
	err := &AssertionError{Type: "entity_count", Expected: "2 classes", Actual: "1 classes"}
	assert.Equal(t, "Assertion failed: entity_count\n  Expected: 2 classes\n  Actual: 1 classes", err.Error())
}

func TestEvaluateAssertionsPass(t *testing.T) {
	errs := EvaluateAssertions(compiledResult(), []Assertion{
		{Type: AssertCompiles},
		{Type: AssertEntityCount, Kind: "classes", Count: 2},
		{Type: AssertEntityCount, Kind: "enums", Count: 0},
		{Type: AssertEnvVars, Names: []string{"B_KEY", "A_KEY"}},
		{Type: AssertFindingCount, Count: 3},
		{Type: AssertFindingCount, Entity: "F", Count: 2},
		{Type: AssertRecursiveCycle, Names: []string{"Edge", "Node"}},
	})
	assert.Empty(t, errs)
}

func TestEvaluateAssertionsFail(t *testing.T) {
	errs := EvaluateAssertions(compiledResult(), []Assertion{
		{Type: AssertEnvVars},
		{Type: AssertFindingCount, Entity: "G", Count: 2},
		{Type: AssertRecursiveCycle, Names: []string{"Node"}},
	})
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "Expected: env vars []")
	assert.Contains(t, errs[1], "Expected: 2 findings in G")
	assert.Contains(t, errs[1], "Actual: 1 findings in G")
	assert.Contains(t, errs[2], "Expected: cycle [Node]")
}

func TestErrorCodesAreMultisets(t *testing.T) {
	r := NewResult()
	r.Outcome.Codes = []string{"E104", "E102", "E102"}

	assert.Empty(t, EvaluateAssertions(r, []Assertion{{Type: AssertErrorCodes, Codes: []string{"E102", "E104", "E102"}}}))
	assert.Len(t, EvaluateAssertions(r, []Assertion{{Type: AssertErrorCodes, Codes: []string{"E102", "E104"}}}), 1)
}

func TestCompilesFailsWithoutIR(t *testing.T) {
	r := NewResult()
	r.Outcome.Codes = []string{"E101"}

	errs := EvaluateAssertions(r, []Assertion{{Type: AssertCompiles}, {Type: AssertFindingCount}})
	require.Len(t, errs, 2)
	for _, e := range errs {
		assert.Contains(t, e, "Actual: errors [E101]")
	}
}

func TestAssertGoldenRoundTrip(t *testing.T) {
	s, err := LoadScenario("testdata/scenarios/resume.yaml")
	require.NoError(t, err)
	s.Schema, err = filepath.Abs(s.Schema)
	require.NoError(t, err)

	result, err := Run(s)
	require.NoError(t, err)
	data, err := MarshalSnapshot(s.Name, result)
	require.NoError(t, err)

	t.Chdir(t.TempDir())
	require.NoError(t, os.MkdirAll(filepath.Join("testdata", "golden"), 0755))
	writeFile(t, filepath.Join("testdata", "golden"), "resume.golden", string(data))

	require.NoError(t, AssertGolden(t, s.Name, result))
}
