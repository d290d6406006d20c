// Package similarity computes normalized-title Levenshtein similarity,
// the sole matching signal the news deduplicator uses alongside
// URL-equality.
package similarity

import (
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
)

const maxLen = 512

// Normalize trims, lowercases, strips control characters, keeps only
// letters and digits, collapses whitespace, and truncates to 512 runes.
// It is deterministic and has no locale-aware folding: non-ASCII
// linguistic normalization is out of scope.
func Normalize(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))

	var b strings.Builder
	b.Grow(len(s))
	lastWasSpace := false
	for _, r := range s {
		if unicode.IsControl(r) {
			continue
		}
		if unicode.IsSpace(r) {
			if !lastWasSpace && b.Len() > 0 {
				b.WriteRune(' ')
			}
			lastWasSpace = true
			continue
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastWasSpace = false
		}
	}

	out := strings.TrimSpace(b.String())
	runes := []rune(out)
	if len(runes) > maxLen {
		runes = runes[:maxLen]
	}
	return string(runes)
}

// Score returns the normalized-title similarity of a and b in [0, 1]:
// 0 if either normalized string is empty, 1 if they're identical, else
// 1 - levenshteinDistance/max(len(a), len(b)), clamped to [0, 1].
// Score is deterministic, symmetric, and reflexive.
func Score(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)

	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	d := levenshtein.ComputeDistance(na, nb)
	m := len([]rune(na))
	if nb2 := len([]rune(nb)); nb2 > m {
		m = nb2
	}
	if m == 0 {
		return 1
	}

	score := 1 - float64(d)/float64(m)
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score
}
