package promptcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/promptc/internal/typecheck"
)

func TestParseType(t *testing.T) {
	types := typecheck.Default(typecheck.ContextPrompt)
	types.AddClass("Job")

	tests := []struct {
		spec string
		want typecheck.Type
	}{
		{"string", typecheck.String{}},
		{"none", typecheck.None{}},
		{"Job", typecheck.ClassRef{Name: "Job"}},
		{"Job[]?", typecheck.Optional{Inner: typecheck.List{Inner: typecheck.ClassRef{Name: "Job"}}}},
		{"int[][]", typecheck.List{Inner: typecheck.List{Inner: typecheck.Int{}}}},
		{"float?[]", typecheck.List{Inner: typecheck.Optional{Inner: typecheck.Float{}}}},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := ParseType(tt.spec, types, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseType("Level", types, nil)
	assert.EqualError(t, err, `unknown type "Level"`)
}
