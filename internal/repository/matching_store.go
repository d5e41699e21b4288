package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"finance-tracker-backend/internal/models"
	"finance-tracker-backend/internal/services/matching"
)

// MatchingStore feeds the recommendation engine from the database.
type MatchingStore struct {
	merchants    *MerchantRepository
	transactions *TransactionRepository
}

func NewMatchingStore(db *gorm.DB) *MatchingStore {
	return &MatchingStore{
		merchants:    NewMerchantRepository(db),
		transactions: NewTransactionRepository(db),
	}
}

func (s *MatchingStore) ListMerchants(ctx context.Context, userID uuid.UUID) ([]models.Merchant, error) {
	return s.merchants.ListMerchants(ctx, userID)
}

func (s *MatchingStore) ReviewedHistory(ctx context.Context, userID uuid.UUID) ([]matching.HistoryEntry, error) {
	return s.transactions.ReviewedHistory(ctx, userID)
}
