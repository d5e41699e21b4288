package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ActionPropagate      = "propagate"
	ActionMerge          = "merge"
	ActionDeleteMerchant = "delete_merchant"
	ActionDeleteCategory = "delete_category"
	ActionSplit          = "split"
)

// ReassignmentLog is written in the same DB transaction as the bulk change it describes.
type ReassignmentLog struct {
	ID            uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID      `gorm:"type:uuid;not null;index" json:"userId"`
	MerchantID    *uuid.UUID     `gorm:"type:uuid;index" json:"merchantId,omitempty"`
	Action        string         `gorm:"not null" json:"action"`
	AffectedCount int64          `json:"affectedCount"`
	Details       datatypes.JSON `json:"details,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}
