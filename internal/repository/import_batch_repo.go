package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"finance-tracker-backend/internal/apperrors"
	"finance-tracker-backend/internal/models"
)

type ImportBatchRepository struct {
	db *gorm.DB
}

func NewImportBatchRepository(db *gorm.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: db}
}

func (r *ImportBatchRepository) WithTx(tx *gorm.DB) *ImportBatchRepository {
	return &ImportBatchRepository{db: tx}
}

func (r *ImportBatchRepository) Create(ctx context.Context, b *models.ImportBatch) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(b).Error
}

func (r *ImportBatchRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.ImportBatch, error) {
	var b models.ImportBatch
	if err := r.db.WithContext(ctx).First(&b, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, apperrors.NotFound(err, "import batch")
	}
	return &b, nil
}
