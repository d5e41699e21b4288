package repository

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"finance-tracker-backend/internal/apperrors"
	"finance-tracker-backend/internal/models"
)

type APIKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) *APIKeyRepository {
	return &APIKeyRepository{db: db}
}

// HashToken is the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Ensure stores token for userID unless a key with the same token already exists.
func (r *APIKeyRepository) Ensure(ctx context.Context, userID uuid.UUID, name, token string) error {
	key := models.APIKey{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		TokenHash: HashToken(token),
		CreatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&key).Error
}

// Authenticate resolves a bearer token to its owner and stamps LastUsedAt.
func (r *APIKeyRepository) Authenticate(ctx context.Context, token string) (uuid.UUID, error) {
	var key models.APIKey
	err := r.db.WithContext(ctx).First(&key, "token_hash = ?", HashToken(token)).Error
	if err != nil {
		return uuid.Nil, apperrors.NotFound(err, "api key")
	}
	now := time.Now()
	if err := r.db.WithContext(ctx).Model(&key).Update("last_used_at", &now).Error; err != nil {
		return uuid.Nil, fmt.Errorf("stamp api key usage: %w", err)
	}
	return key.UserID, nil
}
