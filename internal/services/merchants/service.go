package merchants

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"finance-tracker-backend/internal/apperrors"
	"finance-tracker-backend/internal/models"
	"finance-tracker-backend/internal/repository"
	"finance-tracker-backend/internal/services/matching"
)

type Service struct {
	db  *gorm.DB
	log zerolog.Logger
}

func NewService(db *gorm.DB, log zerolog.Logger) *Service {
	return &Service{db: db, log: log}
}

// repos is the set of repositories bound to one gorm handle (the pool or an open transaction).
type repos struct {
	merchants    *repository.MerchantRepository
	transactions *repository.TransactionRepository
	categories   *repository.CategoryRepository
	logs         *repository.ReassignmentLogRepository
}

func reposFor(db *gorm.DB) repos {
	return repos{
		merchants:    repository.NewMerchantRepository(db),
		transactions: repository.NewTransactionRepository(db),
		categories:   repository.NewCategoryRepository(db),
		logs:         repository.NewReassignmentLogRepository(db),
	}
}

// PropagationResult counts the rows changed by one propagation. UpdatedCount is the sum of both passes.
type PropagationResult struct {
	KeywordMatched    int64 `json:"keywordMatched"`
	CategoryRefreshed int64 `json:"categoryRefreshed"`
	UpdatedCount      int64 `json:"updatedCount"`
}

type Result struct {
	Merchant    *models.Merchant   `json:"merchant"`
	Propagation *PropagationResult `json:"propagation,omitempty"`
}

type CreateInput struct {
	Name                  string
	Keywords              []string
	RecommendedCategoryID *uuid.UUID
}

// UpdateInput leaves a field untouched when it is nil. Keywords replaces the whole list.
type UpdateInput struct {
	Name                     *string
	Keywords                 *[]string
	RecommendedCategoryID    *uuid.UUID
	ClearRecommendedCategory bool
}

func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]models.Merchant, error) {
	return reposFor(s.db).merchants.ListMerchants(ctx, userID)
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Merchant, error) {
	return reposFor(s.db).merchants.GetByID(ctx, userID, id)
}

// Create stores a merchant and, when it has keywords, assigns matching unreviewed transactions to it.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Result, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperrors.NewValidationError("name is required")
	}

	var result Result
	err := s.db.Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		if err := checkCategory(ctx, r, userID, in.RecommendedCategoryID); err != nil {
			return err
		}

		m := &models.Merchant{UserID: userID, Name: name, RecommendedCategoryID: in.RecommendedCategoryID}
		for _, kw := range matching.NormalizeKeywords(in.Keywords) {
			m.Keywords = append(m.Keywords, models.MerchantKeyword{Keyword: kw})
		}
		if err := r.merchants.Create(ctx, m); err != nil {
			return fmt.Errorf("create merchant: %w", err)
		}
		result.Merchant = m

		if len(m.Keywords) > 0 {
			p, err := propagate(ctx, r, m)
			if err != nil {
				return err
			}
			result.Propagation = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logPropagation(userID, result)
	return &result, nil
}

// Update edits a merchant. A change to the keywords or the recommended category triggers
// propagation inside the same database transaction.
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (*Result, error) {
	var result Result
	err := s.db.Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		m, err := r.merchants.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}

		if in.Name != nil {
			name := strings.TrimSpace(*in.Name)
			if name == "" {
				return apperrors.NewValidationError("name is required")
			}
			m.Name = name
		}

		categoryChanged := false
		switch {
		case in.ClearRecommendedCategory:
			categoryChanged = m.RecommendedCategoryID != nil
			m.RecommendedCategoryID = nil
		case in.RecommendedCategoryID != nil:
			if err := checkCategory(ctx, r, userID, in.RecommendedCategoryID); err != nil {
				return err
			}
			categoryChanged = m.RecommendedCategoryID == nil || *m.RecommendedCategoryID != *in.RecommendedCategoryID
			m.RecommendedCategoryID = in.RecommendedCategoryID
		}

		if err := r.merchants.UpdateFields(ctx, m); err != nil {
			return fmt.Errorf("update merchant: %w", err)
		}

		keywordsChanged := false
		if in.Keywords != nil {
			keywords := matching.NormalizeKeywords(*in.Keywords)
			keywordsChanged = !sameKeywords(m.KeywordStrings(), keywords)
			if keywordsChanged {
				rows, err := r.merchants.ReplaceKeywords(ctx, m.ID, keywords)
				if err != nil {
					return fmt.Errorf("replace keywords: %w", err)
				}
				m.Keywords = rows
			}
		}
		result.Merchant = m

		if keywordsChanged || categoryChanged {
			p, err := propagate(ctx, r, m)
			if err != nil {
				return err
			}
			result.Propagation = p
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logPropagation(userID, result)
	return &result, nil
}

// Propagate re-applies the merchant's keywords and recommended category to existing transactions.
func (s *Service) Propagate(ctx context.Context, userID, id uuid.UUID) (*PropagationResult, error) {
	var result *PropagationResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		m, err := r.merchants.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		result, err = propagate(ctx, r, m)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("merchant_id", id.String()).
		Int64("updated_count", result.UpdatedCount).
		Msg("merchant propagation completed")
	return result, nil
}

// propagate runs both passes against r, which must be bound to an open transaction:
// unreviewed transactions matching a keyword get the merchant (and its recommended category),
// then every transaction of the merchant gets the recommended category.
func propagate(ctx context.Context, r repos, m *models.Merchant) (*PropagationResult, error) {
	keywords := m.KeywordStrings()
	rec := m.RecommendedCategoryID

	var ids []uuid.UUID
	if len(keywords) > 0 {
		unreviewed, err := r.transactions.ListUnreviewedMatching(ctx, m.UserID, keywords)
		if err != nil {
			return nil, fmt.Errorf("load unreviewed transactions: %w", err)
		}
		for _, t := range unreviewed {
			if _, ok := matching.ContainsKeyword(t.Vendor, keywords); !ok {
				continue
			}
			if needsAssignment(t, m.ID, rec) {
				ids = append(ids, t.ID)
			}
		}
	}

	result := &PropagationResult{}
	if len(ids) > 0 {
		n, err := r.transactions.AssignMerchant(ctx, m.UserID, ids, m.ID, rec)
		if err != nil {
			return nil, fmt.Errorf("assign merchant: %w", err)
		}
		result.KeywordMatched = n
	}

	if rec != nil {
		n, err := r.transactions.RefreshMerchantCategory(ctx, m.UserID, m.ID, *rec)
		if err != nil {
			return nil, fmt.Errorf("refresh merchant category: %w", err)
		}
		result.CategoryRefreshed = n
	}
	result.UpdatedCount = result.KeywordMatched + result.CategoryRefreshed

	details := map[string]interface{}{
		"keywords":              keywords,
		"recommendedCategoryId": rec,
		"keywordMatched":        result.KeywordMatched,
		"categoryRefreshed":     result.CategoryRefreshed,
	}
	mid := m.ID
	if err := r.logs.Record(ctx, m.UserID, &mid, models.ActionPropagate, result.UpdatedCount, details); err != nil {
		return nil, fmt.Errorf("record propagation: %w", err)
	}
	return result, nil
}

func needsAssignment(t models.Transaction, merchantID uuid.UUID, rec *uuid.UUID) bool {
	if t.MerchantID == nil || *t.MerchantID != merchantID {
		return true
	}
	return rec != nil && (t.CategoryID == nil || *t.CategoryID != *rec)
}

// MergeResult reports the surviving merchant and how many transactions moved to it.
type MergeResult struct {
	Merchant   *models.Merchant `json:"merchant"`
	Repointed  int64            `json:"repointed"`
	SourceName string           `json:"sourceName"`
}

// Merge folds source into target: keywords are unioned, transactions repointed, source deleted.
// Everything happens in one database transaction. The target keeps its own recommended category.
func (s *Service) Merge(ctx context.Context, userID, sourceID, targetID uuid.UUID) (*MergeResult, error) {
	if sourceID == targetID {
		return nil, apperrors.NewValidationError("cannot merge a merchant into itself")
	}

	var result MergeResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		source, err := r.merchants.GetByID(ctx, userID, sourceID)
		if err != nil {
			return err
		}
		target, err := r.merchants.GetByID(ctx, userID, targetID)
		if err != nil {
			return err
		}

		keywords := matching.NormalizeKeywords(append(target.KeywordStrings(), source.KeywordStrings()...))
		if !sameKeywords(target.KeywordStrings(), keywords) {
			rows, err := r.merchants.ReplaceKeywords(ctx, target.ID, keywords)
			if err != nil {
				return fmt.Errorf("merge keywords: %w", err)
			}
			target.Keywords = rows
		}

		n, err := r.transactions.RepointMerchant(ctx, userID, source.ID, target.ID)
		if err != nil {
			return fmt.Errorf("repoint transactions: %w", err)
		}
		if err := r.merchants.Delete(ctx, userID, source.ID); err != nil {
			return fmt.Errorf("delete source merchant: %w", err)
		}

		tid := target.ID
		details := map[string]interface{}{
			"sourceId":   source.ID,
			"sourceName": source.Name,
			"keywords":   keywords,
		}
		if err := r.logs.Record(ctx, userID, &tid, models.ActionMerge, n, details); err != nil {
			return fmt.Errorf("record merge: %w", err)
		}

		result = MergeResult{Merchant: target, Repointed: n, SourceName: source.Name}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID.String()).
		Str("source_id", sourceID.String()).
		Str("target_id", targetID.String()).
		Int64("repointed", result.Repointed).
		Msg("merchants merged")
	return &result, nil
}

// Delete removes a merchant. Its transactions keep their category and lose the merchant link.
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	var detached int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		m, err := r.merchants.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if detached, err = r.transactions.ClearMerchant(ctx, userID, id); err != nil {
			return fmt.Errorf("detach transactions: %w", err)
		}
		if err := r.merchants.Delete(ctx, userID, id); err != nil {
			return err
		}
		return r.logs.Record(ctx, userID, &m.ID, models.ActionDeleteMerchant, detached, map[string]interface{}{"name": m.Name})
	})
	return detached, err
}

func checkCategory(ctx context.Context, r repos, userID uuid.UUID, id *uuid.UUID) error {
	if id == nil {
		return nil
	}
	ok, err := r.categories.Exists(ctx, userID, *id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NewValidationError("recommendedCategoryId does not reference one of your categories")
	}
	return nil
}

func sameKeywords(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]int, len(a))
	for _, k := range a {
		set[k]++
	}
	for _, k := range b {
		if set[k] == 0 {
			return false
		}
		set[k]--
	}
	return true
}

func (s *Service) logPropagation(userID uuid.UUID, result Result) {
	if result.Propagation == nil {
		return
	}
	s.log.Info().
		Str("user_id", userID.String()).
		Str("merchant_id", result.Merchant.ID.String()).
		Int64("keyword_matched", result.Propagation.KeywordMatched).
		Int64("category_refreshed", result.Propagation.CategoryRefreshed).
		Msg("merchant propagation completed")
}
