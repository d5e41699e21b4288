package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"finance-tracker-backend/internal/models"
)

type ReassignmentLogRepository struct {
	db *gorm.DB
}

func NewReassignmentLogRepository(db *gorm.DB) *ReassignmentLogRepository {
	return &ReassignmentLogRepository{db: db}
}

func (r *ReassignmentLogRepository) WithTx(tx *gorm.DB) *ReassignmentLogRepository {
	return &ReassignmentLogRepository{db: tx}
}

// Record writes one log row; details is marshalled into the JSON column.
func (r *ReassignmentLogRepository) Record(ctx context.Context, userID uuid.UUID, merchantID *uuid.UUID, action string, affected int64, details interface{}) error {
	raw, err := json.Marshal(details)
	if err != nil {
		return err
	}
	entry := models.ReassignmentLog{
		ID:            uuid.New(),
		UserID:        userID,
		MerchantID:    merchantID,
		Action:        action,
		AffectedCount: affected,
		Details:       datatypes.JSON(raw),
	}
	return r.db.WithContext(ctx).Create(&entry).Error
}

func (r *ReassignmentLogRepository) List(ctx context.Context, userID uuid.UUID, limit int) ([]models.ReassignmentLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []models.ReassignmentLog
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
