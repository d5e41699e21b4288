package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ImportStatusProcessing = "processing"
	ImportStatusCompleted  = "completed"
)

// ImportBatch records one bulk-create call.
type ImportBatch struct {
	ID             uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"userId"`
	Source         string     `json:"source"`
	SubmittedCount int        `json:"submittedCount"`
	InsertedCount  int        `json:"insertedCount"`
	DuplicateCount int        `json:"duplicateCount"`
	Status         string     `json:"status"`
	StartedAt      time.Time  `json:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}
