package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Record statuses shared by both ledger sides. A record is pending until a
// reconciliation run claims it; unmatching a reviewed pair puts it back.
const (
	RecordStatusPending = "pending"
	RecordStatusMatched = "matched"
)

type Payment struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey"`
	UploadBatchID uuid.UUID       `gorm:"index"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);index"`
	Date          time.Time       `gorm:"type:date"`
	Reference     string
	Payee         string
	Status        string `gorm:"index"`
	Raw           datatypes.JSON
	CreatedAt     time.Time
}
