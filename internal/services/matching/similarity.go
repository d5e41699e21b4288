package matching

import (
	"strings"
	"unicode/utf8"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
)

// SimilarityScorer rates how alike two vendor strings are, from 0 (unrelated) to 1 (identical).
type SimilarityScorer interface {
	Score(a, b string) float64
}

// TokenScorer compares descriptions word by word: every token is paired with its closest
// token on the other side (Levenshtein similarity), weighted by its length, and the two
// directions are averaged so the score is symmetric. The result is never below the
// whole-string Levenshtein similarity, so a differing store number like "#9999" vs "#4521"
// cannot sink an otherwise identical vendor.
type TokenScorer struct {
	metric *metrics.Levenshtein
}

func NewTokenScorer() *TokenScorer {
	return &TokenScorer{metric: metrics.NewLevenshtein()}
}

func (s *TokenScorer) Score(a, b string) float64 {
	na, nb := normalizeName(a), normalizeName(b)
	if na == nb {
		return 1
	}
	ta, tb := strings.Fields(na), strings.Fields(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	tokens := (s.directional(ta, tb) + s.directional(tb, ta)) / 2
	return max(tokens, strutil.Similarity(na, nb, s.metric))
}

func (s *TokenScorer) directional(from, to []string) float64 {
	var total, weight float64
	for _, f := range from {
		best := 0.0
		for _, t := range to {
			if sim := strutil.Similarity(f, t, s.metric); sim > best {
				best = sim
			}
		}
		w := float64(utf8.RuneCountInString(f))
		total += best * w
		weight += w
	}
	return total / weight
}

// LevenshteinScorer is the normalized edit-distance similarity of the whole strings.
type LevenshteinScorer struct {
	metric *metrics.Levenshtein
}

func NewLevenshteinScorer() *LevenshteinScorer {
	return &LevenshteinScorer{metric: metrics.NewLevenshtein()}
}

func (s *LevenshteinScorer) Score(a, b string) float64 {
	return strutil.Similarity(normalizeName(a), normalizeName(b), s.metric)
}

// JaroWinklerScorer favours strings sharing a prefix, which suits "VENDOR <store number>" shapes.
type JaroWinklerScorer struct {
	metric *metrics.JaroWinkler
}

func NewJaroWinklerScorer() *JaroWinklerScorer {
	return &JaroWinklerScorer{metric: metrics.NewJaroWinkler()}
}

func (s *JaroWinklerScorer) Score(a, b string) float64 {
	return strutil.Similarity(normalizeName(a), normalizeName(b), s.metric)
}

// NewScorer returns the scorer registered under name; unknown names get the token scorer.
func NewScorer(name string) SimilarityScorer {
	switch strings.ToLower(name) {
	case "levenshtein":
		return NewLevenshteinScorer()
	case "jarowinkler", "jaro-winkler":
		return NewJaroWinklerScorer()
	default:
		return NewTokenScorer()
	}
}

func normalizeName(s string) string {
	s = strings.ToUpper(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "-", " ")
	s = strings.ReplaceAll(s, "*", " ")
	return strings.Join(strings.Fields(s), " ")
}
