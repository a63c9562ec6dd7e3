package handler

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ledger-reconciliation-backend/internal/models"
	service "ledger-reconciliation-backend/internal/services/reconciliation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReconciliationHandler struct {
	service *service.Service
	log     *slog.Logger
}

func NewReconciliationHandler(s *service.Service, logger *slog.Logger) *ReconciliationHandler {
	return &ReconciliationHandler{service: s, log: logger}
}

// csvRow is one validated upload row. Malformed rows are rejected here so
// the matching core only ever sees well-typed records.
type csvRow struct {
	amount    decimal.Decimal
	date      time.Time
	reference string
	payee     string
	raw       []byte
}

// parseUpload reads a ledger CSV with an amount,date,reference,payee header.
// Invalid rows are skipped and counted, not fatal for the whole file.
func (h *ReconciliationHandler) parseUpload(c *gin.Context) ([]csvRow, int, bool) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file required"})
		return nil, 0, false
	}
	defer file.Close()

	h.log.Info("received upload", "filename", header.Filename, "size", header.Size)

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	headerRow, err := reader.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read CSV header"})
		return nil, 0, false
	}
	col := map[string]int{}
	for i, name := range headerRow {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	amountIdx, okAmount := col["amount"]
	dateIdx, okDate := col["date"]
	if !okAmount || !okDate {
		c.JSON(http.StatusBadRequest, gin.H{"error": "CSV header must include amount and date columns"})
		return nil, 0, false
	}

	field := func(record []string, idx int, ok bool) string {
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	refIdx, okRef := col["reference"]
	payeeIdx, okPayee := col["payee"]

	var rows []csvRow
	skipped := 0
	rowNum := 0
	for {
		record, err := reader.Read()
		rowNum++
		if err == io.EOF {
			break
		}
		if err != nil {
			h.log.Warn("skipping unreadable row", "row", rowNum, "error", err)
			skipped++
			continue
		}

		amount, err := decimal.NewFromString(field(record, amountIdx, true))
		if err != nil {
			h.log.Warn("skipping row with invalid amount", "row", rowNum)
			skipped++
			continue
		}
		// Amounts carry at most two fractional digits; anything finer
		// would be silently rounded at storage.
		if !amount.Equal(amount.Round(2)) {
			h.log.Warn("skipping row with sub-cent amount", "row", rowNum)
			skipped++
			continue
		}
		date, err := time.Parse("2006-01-02", field(record, dateIdx, true))
		if err != nil {
			h.log.Warn("skipping row with invalid date", "row", rowNum)
			skipped++
			continue
		}

		rawMap := map[string]string{}
		for name, idx := range col {
			rawMap[name] = field(record, idx, true)
		}
		raw, _ := json.Marshal(rawMap)

		rows = append(rows, csvRow{
			amount:    amount,
			date:      date,
			reference: field(record, refIdx, okRef),
			payee:     field(record, payeeIdx, okPayee),
			raw:       raw,
		})
	}
	return rows, skipped, true
}

func (h *ReconciliationHandler) UploadPayments(c *gin.Context) {
	rows, skipped, ok := h.parseUpload(c)
	if !ok {
		return
	}

	batchID := uuid.New()
	now := time.Now()
	payments := make([]models.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, models.Payment{
			ID:            uuid.New(),
			UploadBatchID: batchID,
			Amount:        r.amount,
			Date:          r.date,
			Reference:     r.reference,
			Payee:         r.payee,
			Status:        models.RecordStatusPending,
			Raw:           r.raw,
			CreatedAt:     now,
		})
	}

	if err := h.service.InsertPayments(c.Request.Context(), payments); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_batch_id": batchID,
		"rows_inserted":   len(payments),
		"rows_skipped":    skipped,
	})
}

func (h *ReconciliationHandler) UploadBankTransactions(c *gin.Context) {
	rows, skipped, ok := h.parseUpload(c)
	if !ok {
		return
	}

	batchID := uuid.New()
	now := time.Now()
	txns := make([]models.BankTransaction, 0, len(rows))
	for _, r := range rows {
		txns = append(txns, models.BankTransaction{
			ID:            uuid.New(),
			UploadBatchID: batchID,
			Amount:        r.amount,
			Date:          r.date,
			Reference:     r.reference,
			Payee:         r.payee,
			Status:        models.RecordStatusPending,
			Raw:           r.raw,
			CreatedAt:     now,
		})
	}

	if err := h.service.InsertBankTransactions(c.Request.Context(), txns); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"upload_batch_id": batchID,
		"rows_inserted":   len(txns),
		"rows_skipped":    skipped,
	})
}

func (h *ReconciliationHandler) Reconcile(c *gin.Context) {
	run, matches, err := h.service.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"run_id":              run.ID,
		"matched":             run.MatchedCount,
		"unmatched_payments":  run.UnmatchedPayments,
		"unmatched_bank_txns": run.UnmatchedBankTxns,
		"matches":             matches,
	})
}

func (h *ReconciliationHandler) ListMatches(c *gin.Context) {
	status := c.Query("status")
	switch status {
	case "", models.MatchStatusPending, models.MatchStatusConfirmed, models.MatchStatusUnmatched:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status filter"})
		return
	}

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = v
	}

	matches, err := h.service.ListMatches(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	stats, err := h.service.GetMatchStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":   len(matches),
		"matches": matches,
		"stats":   stats,
	})
}

func (h *ReconciliationHandler) GetMatch(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	detail, err := h.service.GetMatch(c.Request.Context(), matchID)
	if err != nil {
		if errors.Is(err, service.ErrMatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *ReconciliationHandler) DecideMatch(c *gin.Context) {
	matchID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid match ID"})
		return
	}

	var payload struct {
		Reviewer string `json:"reviewer"`
		Action   string `json:"action"`
	}
	if err := c.BindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if payload.Reviewer == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reviewer required"})
		return
	}
	if payload.Action != service.ActionConfirm && payload.Action != service.ActionUnmatch {
		c.JSON(http.StatusBadRequest, gin.H{"error": "action must be 'confirm' or 'unmatch'"})
		return
	}

	match, err := h.service.Decide(c.Request.Context(), matchID, payload.Reviewer, payload.Action)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMatchNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "match not found"})
		case errors.Is(err, service.ErrInvalidState):
			c.JSON(http.StatusConflict, gin.H{"error": "match is not pending review"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "decision recorded", "match": match})
}

func (h *ReconciliationHandler) GetRun(c *gin.Context) {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid run ID"})
		return
	}

	run, err := h.service.GetRun(c.Request.Context(), runID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "run not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, run)
}
