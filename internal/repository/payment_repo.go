package repository

import (
	"context"

	"ledger-reconciliation-backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// pendingBatchSize bounds each snapshot query; the full pending set is
// assembled from keyset-paginated pages instead of one unbounded scan.
const pendingBatchSize = 500

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Expose DB if needed
func (r *PaymentRepository) DB() *gorm.DB {
	return r.db
}

// FindPending returns a snapshot of all pending payments, fetched in
// id-ordered pages of pendingBatchSize.
func (r *PaymentRepository) FindPending(ctx context.Context) ([]models.Payment, error) {
	var out []models.Payment
	cursor := uuid.Nil
	for {
		var page []models.Payment
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

// BulkInsert persists uploaded payments in batches.
func (r *PaymentRepository) BulkInsert(ctx context.Context, payments []models.Payment) error {
	if len(payments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(payments, pendingBatchSize).Error
}

// GetByID fetch a single payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
