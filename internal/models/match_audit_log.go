package models

import (
	"time"

	"github.com/google/uuid"
)

type MatchAuditLog struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	MatchID   uuid.UUID `gorm:"index"`
	PaymentID uuid.UUID
	BankTxnID uuid.UUID
	Action    string
	Reviewer  string
	CreatedAt time.Time
}
