package suggest

import (
	"math/rand"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		candidates []string
		want       []string
	}{
		{"single close match", "arg4", []string{"arg3"}, []string{"arg3"}},
		{"nearest first", "colr", []string{"colour", "color", "cooler"}, []string{"color", "colour", "cooler"}},
		{"ties keep candidate order", "ab", []string{"ac", "bb", "aa"}, []string{"ac", "bb", "aa"}},
		{"too far", "f", []string{"food"}, []string{}},
		{"case insensitive", "Name", []string{"name"}, []string{"name"}},
		{"exact target skipped", "x", []string{"x", "y"}, []string{"y"}},
		{"duplicates collapse", "nme", []string{"name", "name"}, []string{"name"}},
		{"capped", "aa", []string{"ab", "ac", "ad", "ae"}, []string{"ab", "ac", "ad"}},
		{"no candidates", "x", nil, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Suggest(tt.target, tt.candidates))
		})
	}
}

func TestPhrase(t *testing.T) {
	assert.Equal(t, "", Phrase(nil, "'"))
	assert.Equal(t, "Did you mean 'arg3'?", Phrase([]string{"arg3"}, "'"))
	assert.Equal(t, "Did you mean one of these: `_`, `ctx`?", Phrase([]string{"_", "ctx"}, "`"))
}

func TestSuggestDeterministicProperty(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("same inputs give the same suggestions, all drawn from the candidates", prop.ForAll(
		func(seed int64) bool {
			rng := rand.New(rand.NewSource(seed))
			word := func() string {
				b := make([]byte, 1+rng.Intn(6))
				for i := range b {
					b[i] = byte('a' + rng.Intn(4))
				}
				return string(b)
			}
			target := word()
			candidates := make([]string, rng.Intn(10))
			for i := range candidates {
				candidates[i] = word()
			}

			first := Suggest(target, candidates)
			second := Suggest(target, candidates)
			if len(first) > MaxSuggestions || len(first) != len(second) {
				return false
			}
			for i := range first {
				if first[i] != second[i] || first[i] == target {
					return false
				}
				found := false
				for _, c := range candidates {
					found = found || c == first[i]
				}
				if !found {
					return false
				}
			}
			return true
		},
		gen.Int64(),
	))

	properties.TestingRun(t)
}
