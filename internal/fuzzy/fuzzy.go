// Package fuzzy scores how closely a spoken phrase resembles stored text.
package fuzzy

import (
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// containsBonus lifts a choice whose words contain the whole query, so a
// short utterance like "spaghetti" still wins against a long meal name.
const containsBonus = 0.5

// Matcher compares case-folded, whitespace-collapsed strings.
type Matcher struct{}

// NewMatcher returns a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Ratio returns a similarity in [0, 1] derived from the edit distance.
func Ratio(a, b string) float64 {
	a, b = normalize(a), normalize(b)
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

// Score is Ratio plus a bonus when one side contains the other.
func Score(query, choice string) float64 {
	q, c := normalize(query), normalize(choice)
	score := Ratio(q, c)
	if q != "" && c != "" && q != c && (strings.Contains(c, q) || strings.Contains(q, c)) {
		score = min(1, score+containsBonus*(1-score))
	}
	return score
}

// Match returns the choice with the highest Score. Ties keep the earlier
// choice; no choices yields "" and 0.
func (m *Matcher) Match(query string, choices []string) (string, float64) {
	best, bestScore := "", -1.0
	for _, c := range choices {
		if s := Score(query, c); s > bestScore {
			best, bestScore = c, s
		}
	}
	if bestScore < 0 {
		return "", 0
	}
	return best, bestScore
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
