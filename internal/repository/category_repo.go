package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"finance-tracker-backend/internal/apperrors"
	"finance-tracker-backend/internal/models"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) DB() *gorm.DB {
	return r.db
}

func (r *CategoryRepository) WithTx(tx *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: tx}
}

func (r *CategoryRepository) List(ctx context.Context, userID uuid.UUID) ([]models.Category, error) {
	var categories []models.Category
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&categories).Error
	return categories, err
}

func (r *CategoryRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Category, error) {
	var c models.Category
	if err := r.db.WithContext(ctx).First(&c, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		return nil, apperrors.NotFound(err, "category")
	}
	return &c, nil
}

// Exists reports whether the category belongs to the user.
func (r *CategoryRepository) Exists(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error
	return count > 0, err
}

// NameTaken reports whether another category of the user already has name (case-insensitive).
func (r *CategoryRepository) NameTaken(ctx context.Context, userID uuid.UUID, name string, exclude *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Category{}).
		Where("user_id = ? AND LOWER(name) = LOWER(?)", userID, name)
	if exclude != nil {
		query = query.Where("id <> ?", *exclude)
	}
	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *CategoryRepository) CountChildren(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).
		Where("user_id = ? AND parent_category_id = ?", userID, id).
		Count(&count).Error
	return count, err
}

func (r *CategoryRepository) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Category{}).Where("user_id = ?", userID).Count(&count).Error
	return count, err
}

func (r *CategoryRepository) Create(ctx context.Context, c *models.Category) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *CategoryRepository) Save(ctx context.Context, c *models.Category) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// Delete removes the category and detaches its children.
func (r *CategoryRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	err := db.Model(&models.Category{}).
		Where("user_id = ? AND parent_category_id = ?", userID, id).
		Update("parent_category_id", nil).Error
	if err != nil {
		return err
	}
	result := db.Where("id = ? AND user_id = ?", id, userID).Delete(&models.Category{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.NotFound(gorm.ErrRecordNotFound, "category")
	}
	return nil
}
