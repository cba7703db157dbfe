package errz

import (
	"sort"
	"strings"
)

// MaxSuggestions is the maximum number of names Suggest returns.
const MaxSuggestions = 3

// Suggest returns up to MaxSuggestions candidates close to target, nearest
// first. Comparison ignores case. The allowed edit distance grows with the
// length of target.
func Suggest(target string, candidates []string) []string {
	if target == "" {
		return nil
	}
	target = strings.ToLower(target)
	threshold := 3
	if len(target) <= 3 {
		threshold = 1
	} else if len(target) <= 5 {
		threshold = 2
	}

	type scored struct {
		name     string
		distance int
	}
	var matches []scored
	for _, c := range candidates {
		lc := strings.ToLower(c)
		if c == "" || lc == target {
			continue
		}
		if d := editDistance(target, lc); d <= threshold {
			matches = append(matches, scored{c, d})
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].distance != matches[j].distance {
			return matches[i].distance < matches[j].distance
		}
		return matches[i].name < matches[j].name
	})
	if len(matches) > MaxSuggestions {
		matches = matches[:MaxSuggestions]
	}
	names := make([]string, len(matches))
	for i, m := range matches {
		names[i] = m.name
	}
	return names
}

// DidYouMean formats suggestions as a hint, or returns "" when there are
// none.
func DidYouMean(suggestions []string) string {
	switch len(suggestions) {
	case 0:
		return ""
	case 1:
		return "did you mean " + suggestions[0] + "?"
	}
	return "did you mean one of " + strings.Join(suggestions, ", ") + "?"
}

// editDistance is the Levenshtein distance between a and b, computed with
// two rows.
func editDistance(a, b string) int {
	ar, br := []rune(a), []rune(b)
	if len(ar) > len(br) {
		ar, br = br, ar
	}
	prev := make([]int, len(ar)+1)
	curr := make([]int, len(ar)+1)
	for i := range prev {
		prev[i] = i
	}
	for j := 1; j <= len(br); j++ {
		curr[0] = j
		for i := 1; i <= len(ar); i++ {
			cost := 1
			if ar[i-1] == br[j-1] {
				cost = 0
			}
			curr[i] = min(prev[i]+1, curr[i-1]+1, prev[i-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(ar)]
}
