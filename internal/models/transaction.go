package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DateLayout is the storage and wire format of Transaction.Date.
const DateLayout = "2006-01-02"

// Transaction is one financial event. Amount is in cents; its sign is authoritative
// (negative = money out, positive = money in).
type Transaction struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_transactions_user_external" json:"userId"`
	ImportBatchID *uuid.UUID `gorm:"type:uuid;index" json:"importBatchId,omitempty"`
	ExternalID    *string    `gorm:"size:255;uniqueIndex:idx_transactions_user_external" json:"externalId,omitempty"`
	Amount        int64      `gorm:"not null" json:"amount"`
	Date          string     `gorm:"type:varchar(10);not null;index" json:"date"`
	Vendor        string     `gorm:"not null" json:"vendor"`
	DisplayVendor *string    `json:"displayVendor,omitempty"`
	MerchantID    *uuid.UUID `gorm:"type:uuid;index" json:"merchantId,omitempty"`
	CategoryID    *uuid.UUID `gorm:"type:uuid;index" json:"categoryId,omitempty"`
	Reviewed      bool       `gorm:"not null;default:false;index" json:"reviewed"`
	Notes         string     `json:"notes"`
	Description   string     `json:"description"`
	// MatchDetails records how the current merchant/category were chosen automatically.
	MatchDetails datatypes.JSON `json:"matchDetails,omitempty"`
	CreatedAt    time.Time      `json:"createdAt"`
	UpdatedAt    time.Time      `json:"updatedAt"`
}

func (t *Transaction) BeforeCreate(*gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}
