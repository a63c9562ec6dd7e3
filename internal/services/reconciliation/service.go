// Package reconciliation orchestrates matching runs and the review
// lifecycle of the proposed matches.
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ledger-reconciliation-backend/internal/models"
	"ledger-reconciliation-backend/internal/repository"
	"ledger-reconciliation-backend/internal/services/matching"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Review actions accepted by Decide.
const (
	ActionConfirm = "confirm"
	ActionUnmatch = "unmatch"
)

var (
	// ErrMatchNotFound is returned when the match id does not exist.
	ErrMatchNotFound = errors.New("match not found")
	// ErrInvalidState is returned when a review decision targets a match
	// that is no longer pending. Repeated decisions are rejected, never
	// silently accepted.
	ErrInvalidState = errors.New("match is not pending review")
)

type Service struct {
	paymentRepo *repository.PaymentRepository
	bankRepo    *repository.BankTransactionRepository
	matchRepo   *repository.MatchRepository
	engine      *matching.Engine
	db          *gorm.DB
	log         *slog.Logger
}

func NewService(
	paymentRepo *repository.PaymentRepository,
	bankRepo *repository.BankTransactionRepository,
	matchRepo *repository.MatchRepository,
	engine *matching.Engine,
	logger *slog.Logger,
) *Service {
	return &Service{
		paymentRepo: paymentRepo,
		bankRepo:    bankRepo,
		matchRepo:   matchRepo,
		engine:      engine,
		db:          paymentRepo.DB(),
		log:         logger,
	}
}

// Run executes one full reconciliation pass: snapshot both pending sets,
// run the engine, apply the proposals atomically. An empty result is a
// normal outcome, not an error.
func (s *Service) Run(ctx context.Context) (*models.ReconciliationRun, []models.Match, error) {
	run := &models.ReconciliationRun{
		ID:        uuid.New(),
		Status:    models.RunStatusRunning,
		StartedAt: time.Now(),
		CreatedAt: time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return nil, nil, err
	}

	payments, err := s.paymentRepo.FindPending(ctx)
	if err != nil {
		return nil, nil, s.failRun(ctx, run, fmt.Errorf("loading pending payments: %w", err))
	}
	bankTxns, err := s.bankRepo.FindPending(ctx)
	if err != nil {
		return nil, nil, s.failRun(ctx, run, fmt.Errorf("loading pending bank transactions: %w", err))
	}

	result := s.engine.Match(payments, bankTxns)

	created, err := s.matchRepo.ApplyRun(ctx, run.ID, result.Proposals)
	if err != nil {
		return nil, nil, s.failRun(ctx, run, fmt.Errorf("applying run: %w", err))
	}

	now := time.Now()
	run.Status = models.RunStatusCompleted
	run.MatchedCount = len(created)
	run.UnmatchedPayments = len(result.UnmatchedPayments)
	run.UnmatchedBankTxns = len(result.UnmatchedBankTxns)
	run.CompletedAt = &now
	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		return nil, nil, err
	}

	s.log.Info("reconciliation run completed",
		"run_id", run.ID,
		"matched", run.MatchedCount,
		"unmatched_payments", run.UnmatchedPayments,
		"unmatched_bank_txns", run.UnmatchedBankTxns,
	)
	return run, created, nil
}

func (s *Service) failRun(ctx context.Context, run *models.ReconciliationRun, cause error) error {
	now := time.Now()
	run.Status = models.RunStatusFailed
	run.CompletedAt = &now
	if err := s.db.WithContext(ctx).Save(run).Error; err != nil {
		s.log.Error("marking run failed", "run_id", run.ID, "error", err)
	}
	s.log.Error("reconciliation run failed", "run_id", run.ID, "error", cause)
	return cause
}

// Decide applies one review decision to a pending match. Confirm keeps both
// records matched and marks the match confirmed; unmatch tombstones the
// match and returns both records to the pending pool, where the next run's
// snapshot will see them. The pending -> decided flip is a single guarded
// update, so of two concurrent decisions on the same match exactly one
// wins and the other observes ErrInvalidState.
func (s *Service) Decide(ctx context.Context, matchID uuid.UUID, reviewer, action string) (*models.Match, error) {
	if action != ActionConfirm && action != ActionUnmatch {
		return nil, fmt.Errorf("unknown action %q", action)
	}

	var out models.Match
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m models.Match
		if err := tx.First(&m, "id = ?", matchID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrMatchNotFound
			}
			return err
		}

		newStatus := models.MatchStatusConfirmed
		confirmed := true
		if action == ActionUnmatch {
			newStatus = models.MatchStatusUnmatched
			confirmed = false
		}

		now := time.Now()
		res := tx.Model(&models.Match{}).
			Where("id = ? AND status = ?", matchID, models.MatchStatusPending).
			Updates(map[string]interface{}{
				"status":      newStatus,
				"confirmed":   confirmed,
				"reviewer":    reviewer,
				"reviewed_at": now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrInvalidState
		}

		if action == ActionUnmatch {
			if err := releaseRecord(tx, &models.Payment{}, m.PaymentID); err != nil {
				return err
			}
			if err := releaseRecord(tx, &models.BankTransaction{}, m.BankTxnID); err != nil {
				return err
			}
		}

		audit := models.MatchAuditLog{
			ID:        uuid.New(),
			MatchID:   m.ID,
			PaymentID: m.PaymentID,
			BankTxnID: m.BankTxnID,
			Action:    action,
			Reviewer:  reviewer,
			CreatedAt: now,
		}
		if err := tx.Create(&audit).Error; err != nil {
			return err
		}

		return tx.First(&out, "id = ?", matchID).Error
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("match reviewed", "match_id", matchID, "action", action, "reviewer", reviewer)
	return &out, nil
}

func releaseRecord(tx *gorm.DB, model interface{}, id uuid.UUID) error {
	return tx.Model(model).
		Where("id = ?", id).
		Update("status", models.RecordStatusPending).
		Error
}

// MatchDetail bundles a match with the two records it pairs.
type MatchDetail struct {
	Match   models.Match           `json:"match"`
	Payment models.Payment         `json:"payment"`
	BankTxn models.BankTransaction `json:"bank_txn"`
}

// GetMatch fetches one match together with both paired records.
func (s *Service) GetMatch(ctx context.Context, matchID uuid.UUID) (*MatchDetail, error) {
	m, err := s.matchRepo.GetByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	p, err := s.paymentRepo.GetByID(ctx, m.PaymentID)
	if err != nil {
		return nil, err
	}
	b, err := s.bankRepo.GetByID(ctx, m.BankTxnID)
	if err != nil {
		return nil, err
	}
	return &MatchDetail{Match: *m, Payment: *p, BankTxn: *b}, nil
}

// ListMatches returns the joined read projection, newest first.
func (s *Service) ListMatches(ctx context.Context, status string, limit int) ([]repository.MatchView, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.matchRepo.List(ctx, status, limit)
}

// GetRun fetches one run record.
func (s *Service) GetRun(ctx context.Context, runID uuid.UUID) (*models.ReconciliationRun, error) {
	var run models.ReconciliationRun
	if err := s.db.WithContext(ctx).First(&run, "id = ?", runID).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// MatchStats aggregates match counts per review status.
type MatchStats struct {
	Total          int64 `json:"total"`
	PendingCount   int64 `json:"pending_count"`
	ConfirmedCount int64 `json:"confirmed_count"`
	UnmatchedCount int64 `json:"unmatched_count"`
}

type statRow struct {
	Status string
	Count  int64
}

func (s *Service) GetMatchStats(ctx context.Context) (MatchStats, error) {
	var stats MatchStats
	var rows []statRow

	err := s.db.WithContext(ctx).Model(&models.Match{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return stats, err
	}

	for _, r := range rows {
		stats.Total += r.Count
		switch r.Status {
		case models.MatchStatusPending:
			stats.PendingCount = r.Count
		case models.MatchStatusConfirmed:
			stats.ConfirmedCount = r.Count
		case models.MatchStatusUnmatched:
			stats.UnmatchedCount = r.Count
		}
	}
	return stats, nil
}

// InsertPayments persists uploaded payment rows.
func (s *Service) InsertPayments(ctx context.Context, payments []models.Payment) error {
	return s.paymentRepo.BulkInsert(ctx, payments)
}

// InsertBankTransactions persists uploaded bank rows.
func (s *Service) InsertBankTransactions(ctx context.Context, txns []models.BankTransaction) error {
	return s.bankRepo.BulkInsert(ctx, txns)
}
