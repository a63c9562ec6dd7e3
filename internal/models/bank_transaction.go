package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type BankTransaction struct {
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
