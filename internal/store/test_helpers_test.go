package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/promptc/internal/ir"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestIR builds a small IR with one class and one function whose
// prompt is prompt.
func createTestIR(prompt string) *ir.IntermediateRepr {
	str := ir.Primitive{Kind: ir.PrimitiveString}
	return ir.New(ir.Contents{
		Classes: []ir.Node[ir.Class]{ir.NewNode(ir.Class{
			Name: "Resume",
			StaticFields: []ir.Node[ir.Field]{
				ir.NewNode(ir.Field{Name: "name", Type: ir.NewNode(ir.Type(str), ir.NodeAttributes{})}, ir.NodeAttributes{}),
			},
		}, ir.NodeAttributes{})},
		Functions: []ir.Node[ir.Function]{ir.NewNode(ir.Function{
			Name:          "ExtractResume",
			Inputs:        []ir.NamedType{{Name: "text", Type: str}},
			Output:        ir.Class{Name: "Resume"},
			DefaultConfig: ir.DefaultConfigName,
			Configs: []ir.FunctionConfig{{
				Name:           ir.DefaultConfigName,
				PromptTemplate: prompt,
				Client:         ir.ShorthandClient("openai", "gpt-4o"),
			}},
		}, ir.NodeAttributes{})},
	})
}
