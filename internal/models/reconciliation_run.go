package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

type ReconciliationRun struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey"`
	Status            string
	MatchedCount      int
	UnmatchedPayments int
	UnmatchedBankTxns int
	StartedAt         time.Time
	CompletedAt       *time.Time
	CreatedAt         time.Time
}
