package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"finance-tracker-backend/internal/apperrors"
	"finance-tracker-backend/internal/models"
)

type MerchantRepository struct {
	db *gorm.DB
}

func NewMerchantRepository(db *gorm.DB) *MerchantRepository {
	return &MerchantRepository{db: db}
}

func (r *MerchantRepository) DB() *gorm.DB {
	return r.db
}

func (r *MerchantRepository) WithTx(tx *gorm.DB) *MerchantRepository {
	return &MerchantRepository{db: tx}
}

func preloadKeywords(db *gorm.DB) *gorm.DB {
	return db.Order("keyword ASC, id ASC")
}

// ListMerchants returns the user's merchants with keywords in creation order, which is the
// order the keyword matcher tries them in.
func (r *MerchantRepository) ListMerchants(ctx context.Context, userID uuid.UUID) ([]models.Merchant, error) {
	var merchants []models.Merchant
	err := r.db.WithContext(ctx).
		Preload("Keywords", preloadKeywords).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&merchants).Error
	return merchants, err
}

func (r *MerchantRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Merchant, error) {
	var m models.Merchant
	err := r.db.WithContext(ctx).
		Preload("Keywords", preloadKeywords).
		First(&m, "id = ? AND user_id = ?", id, userID).Error
	if err != nil {
		return nil, apperrors.NotFound(err, "merchant")
	}
	return &m, nil
}

// Create inserts the merchant together with its keywords.
func (r *MerchantRepository) Create(ctx context.Context, m *models.Merchant) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// UpdateFields writes name and recommended category.
func (r *MerchantRepository) UpdateFields(ctx context.Context, m *models.Merchant) error {
	return r.db.WithContext(ctx).Model(&models.Merchant{}).
		Where("id = ? AND user_id = ?", m.ID, m.UserID).
		Updates(map[string]interface{}{
			"name":                    m.Name,
			"recommended_category_id": m.RecommendedCategoryID,
		}).Error
}

// ReplaceKeywords deletes the merchant's keywords and inserts the given list.
func (r *MerchantRepository) ReplaceKeywords(ctx context.Context, merchantID uuid.UUID, keywords []string) ([]models.MerchantKeyword, error) {
	db := r.db.WithContext(ctx)
	if err := db.Where("merchant_id = ?", merchantID).Delete(&models.MerchantKeyword{}).Error; err != nil {
		return nil, err
	}
	if len(keywords) == 0 {
		return []models.MerchantKeyword{}, nil
	}

	rows := make([]models.MerchantKeyword, len(keywords))
	for i, kw := range keywords {
		rows[i] = models.MerchantKeyword{MerchantID: merchantID, Keyword: kw}
	}
	if err := db.Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the merchant and its keywords.
func (r *MerchantRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	result := db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Merchant{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(gorm.ErrRecordNotFound, "merchant")
	}
	return db.Where("merchant_id = ?", id).Delete(&models.MerchantKeyword{}).Error
}

// ClearRecommendedCategory nulls recommended_category_id wherever it points at categoryID.
func (r *MerchantRepository) ClearRecommendedCategory(ctx context.Context, userID, categoryID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Merchant{}).
		Where("user_id = ? AND recommended_category_id = ?", userID, categoryID).
		Update("recommended_category_id", nil)
	return result.RowsAffected, result.Error
}
