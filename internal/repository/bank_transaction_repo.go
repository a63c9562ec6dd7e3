package repository

import (
	"context"

	"ledger-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BankTransactionRepository struct {
	db *gorm.DB
}

func NewBankTransactionRepository(db *gorm.DB) *BankTransactionRepository {
	return &BankTransactionRepository{db: db}
}

// FindPending returns a snapshot of all pending bank transactions, fetched
// in id-ordered pages of pendingBatchSize.
func (r *BankTransactionRepository) FindPending(ctx context.Context) ([]models.BankTransaction, error) {
	var out []models.BankTransaction
	cursor := uuid.Nil
	for {
		var page []models.BankTransaction
		q := r.db.WithContext(ctx).
			Where("status = ?", models.RecordStatusPending).
			Order("id ASC").
			Limit(pendingBatchSize)
		if cursor != uuid.Nil {
			q = q.Where("id > ?", cursor)
		}
		if err := q.Find(&page).Error; err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < pendingBatchSize {
			return out, nil
		}
		cursor = page[len(page)-1].ID
	}
}

// BulkInsert persists uploaded bank transactions in batches.
func (r *BankTransactionRepository) BulkInsert(ctx context.Context, txns []models.BankTransaction) error {
	if len(txns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(txns, pendingBatchSize).Error
}

// GetByID fetch a single bank transaction by ID
func (r *BankTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.BankTransaction, error) {
	var b models.BankTransaction
	if err := r.db.WithContext(ctx).First(&b, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}
