package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"finance-tracker-backend/internal/apperrors"
	"finance-tracker-backend/internal/models"
	"finance-tracker-backend/internal/services/matching"
)

// UpdateInput is a user review edit. Nil fields are left alone. The raw vendor is not editable.
type UpdateInput struct {
	CategoryID    *uuid.UUID
	ClearCategory bool
	MerchantID    *uuid.UUID
	ClearMerchant bool
	DisplayVendor *string
	Reviewed      *bool
	Notes         *string
	Description   *string
}

func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, in UpdateInput) (*models.Transaction, error) {
	r := reposFor(s.db)
	t, err := r.transactions.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	manual := false
	switch {
	case in.ClearCategory:
		t.CategoryID = nil
		manual = true
	case in.CategoryID != nil:
		ok, err := r.categories.Exists(ctx, userID, *in.CategoryID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, apperrors.NewValidationError("categoryId does not reference one of your categories")
		}
		t.CategoryID = in.CategoryID
		manual = true
	}

	switch {
	case in.ClearMerchant:
		t.MerchantID = nil
		manual = true
	case in.MerchantID != nil:
		if _, err := r.merchants.GetByID(ctx, userID, *in.MerchantID); err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, apperrors.NewValidationError("merchantId does not reference one of your merchants")
			}
			return nil, err
		}
		t.MerchantID = in.MerchantID
		manual = true
	}
	if manual {
		t.MatchDetails = nil
	}

	if in.DisplayVendor != nil {
		if v := strings.TrimSpace(*in.DisplayVendor); v == "" {
			t.DisplayVendor = nil
		} else {
			t.DisplayVendor = &v
		}
	}
	if in.Reviewed != nil {
		t.Reviewed = *in.Reviewed
	}
	if in.Notes != nil {
		t.Notes = *in.Notes
	}
	if in.Description != nil {
		t.Description = *in.Description
	}

	if err := r.transactions.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	return t, nil
}

// MarkReviewed accepts the current merchant and category, making the row part of the matching history.
func (s *Service) MarkReviewed(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	reviewed := true
	return s.Update(ctx, userID, id, UpdateInput{Reviewed: &reviewed})
}

// ClearSuggestion drops the automatic merchant and category of an unreviewed row.
func (s *Service) ClearSuggestion(ctx context.Context, userID, id uuid.UUID) (*models.Transaction, error) {
	r := reposFor(s.db)
	t, err := r.transactions.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if t.Reviewed {
		return nil, apperrors.NewValidationError("reviewed transactions cannot be rejected")
	}
	t.MerchantID = nil
	t.CategoryID = nil
	t.MatchDetails = nil
	if err := r.transactions.Save(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// BulkMarkReviewed marks every unreviewed transaction of an import batch as reviewed.
func (s *Service) BulkMarkReviewed(ctx context.Context, userID, batchID uuid.UUID) (int64, error) {
	r := reposFor(s.db)
	if _, err := r.batches.GetByID(ctx, userID, batchID); err != nil {
		return 0, err
	}
	n, err := r.transactions.MarkBatchReviewed(ctx, userID, batchID)
	if err != nil {
		return 0, err
	}
	s.log.Info().
		Str("user_id", userID.String()).
		Str("batch_id", batchID.String()).
		Int64("reviewed", n).
		Msg("import batch reviewed")
	return n, nil
}

type SplitResult struct {
	Original *models.Transaction `json:"original"`
	Split    *models.Transaction `json:"split"`
}

// Split divides a transaction in two. The original row keeps its id and external id and takes
// splitAmount; the new row carries the remainder. The two amounts always sum to the original.
func (s *Service) Split(ctx context.Context, userID, id uuid.UUID, splitAmount int64) (*SplitResult, error) {
	var result SplitResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		r := reposFor(tx)
		orig, err := r.transactions.GetByID(ctx, userID, id)
		if err != nil {
			return err
		}
		if err := validateSplit(orig.Amount, splitAmount); err != nil {
			return err
		}

		remainder := orig.Amount - splitAmount
		orig.Amount = splitAmount
		if err := r.transactions.Save(ctx, orig); err != nil {
			return fmt.Errorf("update original: %w", err)
		}

		part := &models.Transaction{
			UserID:        orig.UserID,
			ImportBatchID: orig.ImportBatchID,
			Amount:        remainder,
			Date:          orig.Date,
			Vendor:        orig.Vendor,
			DisplayVendor: orig.DisplayVendor,
			MerchantID:    orig.MerchantID,
			CategoryID:    orig.CategoryID,
			Reviewed:      orig.Reviewed,
			Notes:         orig.Notes,
			Description:   orig.Description,
			MatchDetails:  orig.MatchDetails,
		}
		if err := r.transactions.Create(ctx, part); err != nil {
			return fmt.Errorf("create split: %w", err)
		}

		details := map[string]interface{}{
			"transactionId": orig.ID,
			"splitId":       part.ID,
			"amounts":       []int64{splitAmount, remainder},
		}
		if err := r.logs.Record(ctx, userID, orig.MerchantID, models.ActionSplit, 2, details); err != nil {
			return err
		}

		result = SplitResult{Original: orig, Split: part}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func validateSplit(amount, split int64) error {
	switch {
	case amount == 0:
		return apperrors.NewValidationError("a zero-amount transaction cannot be split")
	case split == 0:
		return apperrors.NewValidationError("splitAmount must be non-zero")
	case (split < 0) != (amount < 0):
		return apperrors.NewValidationError("splitAmount must have the same sign as the transaction amount")
	case abs(split) >= abs(amount):
		return apperrors.NewValidationError("splitAmount must be smaller in magnitude than the transaction amount")
	}
	return nil
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return reposFor(s.db).transactions.Delete(ctx, userID, id)
}

type RecommendResult struct {
	Recommendation matching.Recommendation `json:"recommendation"`
	Applied        bool                    `json:"applied"`
	Transaction    *models.Transaction     `json:"transaction"`
}

// Recommend runs the engine for a stored transaction. With apply set, the suggestion is written to the row,
// which must still be unreviewed.
func (s *Service) Recommend(ctx context.Context, userID, id uuid.UUID, apply bool) (*RecommendResult, error) {
	r := reposFor(s.db)
	t, err := r.transactions.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if apply && t.Reviewed {
		return nil, apperrors.NewValidationError("reviewed transactions are not re-categorized automatically")
	}

	rec, err := s.engine.Recommend(ctx, userID, t.Vendor)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}
	result := &RecommendResult{Recommendation: rec, Transaction: t}
	if !apply || rec.Empty() {
		return result, nil
	}

	if rec.MerchantID != nil {
		t.MerchantID = rec.MerchantID
	}
	if rec.CategoryID != nil {
		t.CategoryID = rec.CategoryID
	}
	t.MatchDetails = rec.Details()
	if err := r.transactions.Save(ctx, t); err != nil {
		return nil, fmt.Errorf("apply recommendation: %w", err)
	}
	result.Applied = true
	return result, nil
}
