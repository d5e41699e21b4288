package matching

import (
	"sort"

	"github.com/google/uuid"
)

// DefaultThreshold accepts fuzzy candidates at 70% similarity or better (a distance of 0.3).
const DefaultThreshold = 0.7

// HistoryEntry is one reviewed, categorized transaction usable as training data.
type HistoryEntry struct {
	Vendor     string
	CategoryID uuid.UUID
	Date       string
}

// FuzzyResult describes the history entry whose category was inherited.
type FuzzyResult struct {
	CategoryID uuid.UUID
	Vendor     string
	Score      float64
	Exact      bool
}

type FuzzyMatcher struct {
	scorer    SimilarityScorer
	threshold float64
}

// NewFuzzyMatcher builds a matcher. A nil scorer means the token scorer; a threshold outside
// (0, 1] means DefaultThreshold.
func NewFuzzyMatcher(scorer SimilarityScorer, threshold float64) *FuzzyMatcher {
	if scorer == nil {
		scorer = NewTokenScorer()
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	return &FuzzyMatcher{scorer: scorer, threshold: threshold}
}

func (m *FuzzyMatcher) Threshold() float64 {
	return m.threshold
}

// Match looks description up in history. An identical vendor wins outright, the most
// recent one when several exist. Otherwise every distinct vendor is scored and the best one
// at or above the threshold wins; ties go to the more recent vendor.
//
// Recency is Date descending; entries sharing a date keep the order they were given in, so
// callers should pass same-day entries newest first.
func (m *FuzzyMatcher) Match(description string, history []HistoryEntry) *FuzzyResult {
	if description == "" || len(history) == 0 {
		return nil
	}
	ordered := byRecency(history)

	for _, h := range ordered {
		if h.Vendor == description {
			return &FuzzyResult{CategoryID: h.CategoryID, Vendor: h.Vendor, Score: 1, Exact: true}
		}
	}

	var best *FuzzyResult
	seen := make(map[string]bool, len(ordered))
	for _, h := range ordered {
		if seen[h.Vendor] {
			continue
		}
		seen[h.Vendor] = true

		score := m.scorer.Score(description, h.Vendor)
		if score < m.threshold {
			continue
		}
		if best == nil || score > best.Score {
			best = &FuzzyResult{CategoryID: h.CategoryID, Vendor: h.Vendor, Score: score}
		}
	}
	return best
}

// FuzzyMatch is the category-only form of Match using the default scorer and threshold.
func FuzzyMatch(description string, history []HistoryEntry) *uuid.UUID {
	if r := NewFuzzyMatcher(nil, DefaultThreshold).Match(description, history); r != nil {
		id := r.CategoryID
		return &id
	}
	return nil
}

func byRecency(history []HistoryEntry) []HistoryEntry {
	ordered := make([]HistoryEntry, len(history))
	copy(ordered, history)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Date > ordered[j].Date
	})
	return ordered
}
