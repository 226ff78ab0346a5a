package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const validSchema = `
enum: Level: values: ["Junior", "Senior"]

class: Job: fields: title: "string"

class: Resume: fields: {
	name: "string"
	jobs: "Job[]"
	level: "Level?"
}

client: Main: {
	provider: "openai"
	options: {model: "gpt-4o", api_key: "env.OPENAI_API_KEY"}
}

function: ExtractResume: {
	inputs: text: "string"
	output: "Resume"
	client: "Main"
	prompt: "Extract a resume from {{ text }}"
}
`

// writeSchema writes src as a CUE package into a fresh directory.
func writeSchema(t *testing.T, src string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schema.cue"), []byte("package test\n"+src), 0644))
	return dir
}

// execute runs cmd with args and returns its stdout.
func execute(cmd *cobra.Command, args ...string) (string, error) {
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// writeConfig writes a promptc.yaml with the given body and returns its path.
func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "promptc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}
