package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Merchant is a normalized vendor entity. Its keywords are matched as case-insensitive
// substrings of raw transaction descriptions.
type Merchant struct {
	ID                    uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID                uuid.UUID         `gorm:"type:uuid;not null;index" json:"userId"`
	Name                  string            `gorm:"not null" json:"name"`
	RecommendedCategoryID *uuid.UUID        `gorm:"type:uuid;index" json:"recommendedCategoryId,omitempty"`
	Keywords              []MerchantKeyword `gorm:"foreignKey:MerchantID" json:"keywords"`
	CreatedAt             time.Time         `gorm:"index" json:"createdAt"`
}

func (m *Merchant) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}

// KeywordStrings returns the merchant's keywords in stored order.
func (m *Merchant) KeywordStrings() []string {
	out := make([]string, 0, len(m.Keywords))
	for _, k := range m.Keywords {
		out = append(out, k.Keyword)
	}
	return out
}

type MerchantKeyword struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	MerchantID uuid.UUID `gorm:"type:uuid;not null;index" json:"merchantId"`
	Keyword    string    `gorm:"not null" json:"keyword"`
}

func (k *MerchantKeyword) BeforeCreate(*gorm.DB) error {
	if k.ID == uuid.Nil {
		k.ID = uuid.New()
	}
	return nil
}
