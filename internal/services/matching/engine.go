package matching

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"finance-tracker-backend/internal/models"
)

const (
	SourceKeyword     = "keyword"
	SourceExactVendor = "exact_vendor"
	SourceFuzzyVendor = "fuzzy_vendor"
	SourceNone        = "none"
)

// Recommendation is the engine's suggestion for a description. Source "none" means
// uncategorized; it is a normal result, not an error.
type Recommendation struct {
	MerchantID    *uuid.UUID `json:"merchantId,omitempty"`
	CategoryID    *uuid.UUID `json:"categoryId,omitempty"`
	Source        string     `json:"source"`
	Score         float64    `json:"score,omitempty"`
	Keyword       string     `json:"keyword,omitempty"`
	MatchedVendor string     `json:"matchedVendor,omitempty"`
}

func (r Recommendation) Empty() bool {
	return r.MerchantID == nil && r.CategoryID == nil
}

// Details is the JSON stored in Transaction.MatchDetails when the recommendation is applied.
func (r Recommendation) Details() datatypes.JSON {
	b, _ := json.Marshal(r)
	return datatypes.JSON(b)
}

// Store supplies the per-user data the engine reads.
type Store interface {
	// ListMerchants returns the user's merchants with keywords, in creation order.
	ListMerchants(ctx context.Context, userID uuid.UUID) ([]models.Merchant, error)
	// ReviewedHistory returns reviewed transactions that have a category, most recent first.
	ReviewedHistory(ctx context.Context, userID uuid.UUID) ([]HistoryEntry, error)
}

type Engine struct {
	store Store
	fuzzy *FuzzyMatcher
}

func NewEngine(store Store, fuzzy *FuzzyMatcher) *Engine {
	if fuzzy == nil {
		fuzzy = NewFuzzyMatcher(nil, DefaultThreshold)
	}
	return &Engine{store: store, fuzzy: fuzzy}
}

// Snapshot loads everything a batch of recommendations for userID needs.
func (e *Engine) Snapshot(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	merchants, err := e.store.ListMerchants(ctx, userID)
	if err != nil {
		return nil, err
	}
	history, err := e.store.ReviewedHistory(ctx, userID)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(merchants, history, e.fuzzy), nil
}

func (e *Engine) Recommend(ctx context.Context, userID uuid.UUID, description string) (Recommendation, error) {
	snap, err := e.Snapshot(ctx, userID)
	if err != nil {
		return Recommendation{Source: SourceNone}, err
	}
	return snap.Recommend(description), nil
}

// Snapshot is an immutable view of a user's merchants and reviewed history.
type Snapshot struct {
	merchants []models.Merchant
	history   []HistoryEntry
	fuzzy     *FuzzyMatcher
}

func NewSnapshot(merchants []models.Merchant, history []HistoryEntry, fuzzy *FuzzyMatcher) *Snapshot {
	if fuzzy == nil {
		fuzzy = NewFuzzyMatcher(nil, DefaultThreshold)
	}
	return &Snapshot{merchants: merchants, history: history, fuzzy: fuzzy}
}

// Merchant returns the snapshot's merchant with the given id, or nil.
func (s *Snapshot) Merchant(id uuid.UUID) *models.Merchant {
	for i := range s.merchants {
		if s.merchants[i].ID == id {
			return &s.merchants[i]
		}
	}
	return nil
}

// Recommend applies keyword match, then exact vendor, then fuzzy vendor. Vendor history only
// ever yields a category, never a merchant.
func (s *Snapshot) Recommend(description string) Recommendation {
	if km := MatchKeyword(description, s.merchants); km != nil {
		id := km.Merchant.ID
		rec := Recommendation{MerchantID: &id, Source: SourceKeyword, Keyword: km.Keyword, Score: 1}
		if km.Merchant.RecommendedCategoryID != nil {
			cat := *km.Merchant.RecommendedCategoryID
			rec.CategoryID = &cat
		}
		return rec
	}

	if fr := s.fuzzy.Match(description, s.history); fr != nil {
		cat := fr.CategoryID
		source := SourceFuzzyVendor
		if fr.Exact {
			source = SourceExactVendor
		}
		return Recommendation{CategoryID: &cat, Source: source, Score: fr.Score, MatchedVendor: fr.Vendor}
	}

	return Recommendation{Source: SourceNone}
}
