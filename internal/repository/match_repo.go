package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ledger-reconciliation-backend/internal/models"
	"ledger-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// ApplyRun persists one engine pass all-or-nothing: every proposal's match
// row is created and both source records flip pending -> matched, or the
// whole batch rolls back. Each flip is a guarded update; if another run
// claimed the record first, RowsAffected comes back 0 and the run aborts
// with the prior state intact.
func (r *MatchRepository) ApplyRun(ctx context.Context, runID uuid.UUID, proposals []matching.Proposal) ([]models.Match, error) {
	created := make([]models.Match, 0, len(proposals))

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		for _, p := range proposals {
			if err := claimRecord(tx, &models.Payment{}, p.Payment.ID); err != nil {
				return err
			}
			if err := claimRecord(tx, &models.BankTransaction{}, p.BankTxn.ID); err != nil {
				return err
			}

			details, err := json.Marshal(map[string]interface{}{
				"match_type":     p.MatchType,
				"similarity":     p.Similarity,
				"payment_amount": p.Payment.Amount,
				"bank_amount":    p.BankTxn.Amount,
				"payment_date":   p.Payment.Date.Format("2006-01-02"),
				"bank_date":      p.BankTxn.Date.Format("2006-01-02"),
			})
			if err != nil {
				return err
			}

			m := models.Match{
				ID:        uuid.New(),
				RunID:     runID,
				PaymentID: p.Payment.ID,
				BankTxnID: p.BankTxn.ID,
				Score:     p.Score,
				MatchType: p.MatchType,
				Status:    models.MatchStatusPending,
				MatchedAt: now,
				Details:   details,
			}
			if err := tx.Create(&m).Error; err != nil {
				return err
			}
			created = append(created, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// claimRecord flips one record pending -> matched, failing if it is no
// longer pending.
func claimRecord(tx *gorm.DB, model interface{}, id uuid.UUID) error {
	res := tx.Model(model).
		Where("id = ? AND status = ?", id, models.RecordStatusPending).
		Update("status", models.RecordStatusMatched)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("record %s is no longer pending", id)
	}
	return nil
}

// MatchView is the read projection of a match joined with both records.
type MatchView struct {
	ID               uuid.UUID       `json:"id"`
	PaymentID        uuid.UUID       `json:"payment_id"`
	BankTxnID        uuid.UUID       `json:"bank_txn_id"`
	Score            int             `json:"score"`
	MatchType        string          `json:"match_type"`
	Status           string          `json:"status"`
	Confirmed        bool            `json:"confirmed"`
	Reviewer         string          `json:"reviewer,omitempty"`
	MatchedAt        time.Time       `json:"matched_at"`
	PaymentAmount    decimal.Decimal `json:"payment_amount"`
	PaymentDate      time.Time       `json:"payment_date"`
	PaymentReference string          `json:"payment_reference"`
	PaymentPayee     string          `json:"payment_payee"`
	BankAmount       decimal.Decimal `json:"bank_amount"`
	BankDate         time.Time       `json:"bank_date"`
	BankReference    string          `json:"bank_reference"`
	BankPayee        string          `json:"bank_payee"`
}

// List returns match projections newest first, optionally filtered by match
// status.
func (r *MatchRepository) List(ctx context.Context, status string, limit int) ([]MatchView, error) {
	var views []MatchView

	q := r.db.WithContext(ctx).
		Table("matches AS m").
		Select(`m.id, m.payment_id, m.bank_txn_id, m.score, m.match_type, m.status,
			m.confirmed, m.reviewer, m.matched_at,
			p.amount AS payment_amount, p.date AS payment_date,
			p.reference AS payment_reference, p.payee AS payment_payee,
			b.amount AS bank_amount, b.date AS bank_date,
			b.reference AS bank_reference, b.payee AS bank_payee`).
		Joins("JOIN payments p ON p.id = m.payment_id").
		Joins("JOIN bank_transactions b ON b.id = m.bank_txn_id").
		Order("m.matched_at DESC").
		Limit(limit)

	if status != "" {
		q = q.Where("m.status = ?", status)
	}

	if err := q.Scan(&views).Error; err != nil {
		return nil, err
	}
	return views, nil
}

// GetByID fetch a single match by ID
func (r *MatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Match, error) {
	var m models.Match
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}
