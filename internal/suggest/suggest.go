// Package suggest ranks candidate names by edit distance for "did you mean"
// hints in diagnostics.
package suggest

import (
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// MaxSuggestions caps how many names Suggest returns.
const MaxSuggestions = 3

// Suggest returns the candidates closest to target, nearest first. Ties
// keep candidate order, so the result is a pure function of its inputs.
// Comparison ignores case. Duplicates and exact matches of target are skipped.
func Suggest(target string, candidates []string) []string {
	limit := threshold(target)
	lower := strings.ToLower(target)

	type match struct {
		name string
		dist int
	}
	var matches []match
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		if c == target || seen[c] {
			continue
		}
		seen[c] = true
		d := levenshtein.ComputeDistance(lower, strings.ToLower(c))
		if d <= limit {
			matches = append(matches, match{name: c, dist: d})
		}
	}
	slices.SortStableFunc(matches, func(a, b match) int { return a.dist - b.dist })

	out := make([]string, 0, min(len(matches), MaxSuggestions))
	for _, m := range matches {
		if len(out) == MaxSuggestions {
			break
		}
		out = append(out, m.name)
	}
	return out
}

// threshold is half the target length, kept within [1, 3].
func threshold(target string) int {
	return max(1, min(3, utf8.RuneCountInString(target)/2))
}

// Phrase renders names as the trailing hint of a diagnostic, each wrapped
// in quote:
//
//	Did you mean 'x'?
//	Did you mean one of these: 'a', 'b'?
//
// It returns "" for no names.
func Phrase(names []string, quote string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return "Did you mean " + quote + names[0] + quote + "?"
	}
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = quote + n + quote
	}
	return "Did you mean one of these: " + strings.Join(quoted, ", ") + "?"
}
