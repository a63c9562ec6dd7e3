package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Match lifecycle. A match is pending until a reviewer decides it; an
// unmatched match is kept as a tombstone for audit and no longer pairs its
// records.
const (
	MatchStatusPending   = "pending"
	MatchStatusConfirmed = "confirmed"
	MatchStatusUnmatched = "unmatched"
)

// Tier tags carried on every match, fixed at creation.
const (
	MatchTypeExact          = "exact"
	MatchTypeFuzzyReference = "fuzzy_reference"
	MatchTypeFuzzyPayee     = "fuzzy_payee"
)

type Match struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	RunID      uuid.UUID `gorm:"index"`
	PaymentID  uuid.UUID `gorm:"index"`
	BankTxnID  uuid.UUID `gorm:"index"`
	Score      int
	MatchType  string
	Status     string `gorm:"index"`
	Confirmed  bool
	Reviewer   string
	MatchedAt  time.Time
	ReviewedAt *time.Time
	Details    datatypes.JSON
}
