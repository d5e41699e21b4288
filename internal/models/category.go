package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a user-defined label. Hierarchy is one level deep: a category with a parent has no children.
type Category struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_categories_user_name" json:"userId"`
	Name             string     `gorm:"not null;uniqueIndex:idx_categories_user_name" json:"name"`
	Color            string     `json:"color"`
	Icon             string     `json:"icon"`
	TreatAsIncome    bool       `gorm:"not null;default:false" json:"treatAsIncome"`
	HideFromInsights bool       `gorm:"not null;default:false" json:"hideFromInsights"`
	ParentCategoryID *uuid.UUID `gorm:"type:uuid;index" json:"parentCategoryId,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
