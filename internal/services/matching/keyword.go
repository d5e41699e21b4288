package matching

import (
	"strings"

	"finance-tracker-backend/internal/models"
)

// KeywordMatch is the merchant chosen by keyword and the keyword that hit.
type KeywordMatch struct {
	Merchant *models.Merchant
	Keyword  string
}

// MatchKeyword returns the first merchant, in the given order, having any keyword contained
// in description (case-insensitive). Callers pass merchants in creation order.
func MatchKeyword(description string, merchants []models.Merchant) *KeywordMatch {
	desc := foldCase(description)
	if desc == "" {
		return nil
	}
	for i := range merchants {
		if kw, ok := containsKeyword(desc, merchants[i].KeywordStrings()); ok {
			return &KeywordMatch{Merchant: &merchants[i], Keyword: kw}
		}
	}
	return nil
}

// Match is MatchKeyword without the matched keyword.
func Match(description string, merchants []models.Merchant) *models.Merchant {
	if m := MatchKeyword(description, merchants); m != nil {
		return m.Merchant
	}
	return nil
}

// ContainsKeyword reports the first keyword (in list order) found in description.
// Blank keywords never match.
func ContainsKeyword(description string, keywords []string) (string, bool) {
	return containsKeyword(foldCase(description), keywords)
}

func containsKeyword(foldedDesc string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		k := foldCase(kw)
		if k == "" {
			continue
		}
		if strings.Contains(foldedDesc, k) {
			return kw, true
		}
	}
	return "", false
}

func foldCase(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeKeywords trims keywords, drops blanks and removes case-insensitive duplicates,
// keeping the first spelling seen.
func NormalizeKeywords(keywords []string) []string {
	seen := make(map[string]bool, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		key := strings.ToLower(kw)
		if kw == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, kw)
	}
	return out
}
