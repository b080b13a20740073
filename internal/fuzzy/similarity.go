// Package fuzzy implements token-set similarity scoring, used to decide
// whether two song titles refer to "the same song" for block-list dedup. The
// block list is its only caller in this module.
package fuzzy

import (
	"slices"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/levenshtein"
)

// TokenSetRatio scores the similarity of a and b on a 0-100 scale. It
// tokenizes both strings (case-folded, deduplicated, sorted), splits the
// tokens into those both strings share and those only one side has, and
// returns the best Levenshtein-distance ratio among the shared tokens alone
// and the shared tokens followed by each side's remainder, so a string whose
// tokens are a subset of the other's scores 100. This mirrors the shape of Python's
// fuzzywuzzy.fuzz.token_set_ratio, which the corpus this engine replaces was
// built on, reproduced here over the distance primitive this module's
// dependency set actually provides.
func TokenSetRatio(a, b string) int {
	aTokens := tokenize(a)
	bTokens := tokenize(b)

	if len(aTokens) == 0 || len(bTokens) == 0 {
		return ratio(strings.Join(aTokens, " "), strings.Join(bTokens, " "))
	}

	common := slices.DeleteFunc(slices.Clone(aTokens), func(t string) bool { return !slices.Contains(bTokens, t) })
	onlyA := slices.DeleteFunc(slices.Clone(aTokens), func(t string) bool { return slices.Contains(bTokens, t) })
	onlyB := slices.DeleteFunc(slices.Clone(bTokens), func(t string) bool { return slices.Contains(aTokens, t) })
	base := strings.Join(common, " ")
	withA := strings.TrimSpace(base + " " + strings.Join(onlyA, " "))
	withB := strings.TrimSpace(base + " " + strings.Join(onlyB, " "))
	return max(ratio(base, withA), ratio(base, withB), ratio(withA, withB))
}

// tokenize lowercases, splits on non-alphanumeric runs, dedups and sorts.
func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	seen := make(map[string]struct{}, len(fields))
	unique := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		unique = append(unique, f)
	}

	sort.Strings(unique)
	return unique
}

// ratio converts Levenshtein distance into a 0-100 similarity percentage.
func ratio(a, b string) int {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 100
	}

	dist := levenshtein.ComputeDistance(a, b)
	score := (1.0 - float64(dist)/float64(maxLen)) * 100
	if score < 0 {
		score = 0
	}
	return int(score)
}
