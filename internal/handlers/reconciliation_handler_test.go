package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledger-reconciliation-backend/internal/models"
	"ledger-reconciliation-backend/internal/routes"
	"ledger-reconciliation-backend/internal/services/matching"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Payment{},
		&models.BankTransaction{},
		&models.Match{},
		&models.MatchAuditLog{},
		&models.ReconciliationRun{},
	))

	r := gin.New()
	routes.RegisterRoutes(r, db, matching.DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	return r
}

func uploadCSV(t *testing.T, r *gin.Engine, path, csv string) map[string]interface{} {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "upload.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadRejectsBadRows(t *testing.T) {
	r := newTestRouter(t)

	body := uploadCSV(t, r, "/api/payments/upload",
		"amount,date,reference,payee\n"+
			"100.00,2025-01-15,INV-1,Acme\n"+
			"not-a-number,2025-01-15,INV-2,Acme\n"+
			"50.00,15/01/2025,INV-3,Acme\n"+
			"10.005,2025-01-15,INV-4,Acme\n"+
			"20.500,2025-01-15,INV-5,Acme\n")

	// The sub-cent 10.005 is rejected; 20.500 only renders a trailing
	// zero and stays.
	assert.Equal(t, float64(2), body["rows_inserted"])
	assert.Equal(t, float64(3), body["rows_skipped"])
}

func TestUploadRequiresAmountAndDateColumns(t *testing.T) {
	r := newTestRouter(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, _ := w.CreateFormFile("file", "upload.csv")
	part.Write([]byte("reference,payee\nINV-1,Acme\n"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/payments/upload", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadReconcileDecideFlow(t *testing.T) {
	r := newTestRouter(t)

	uploadCSV(t, r, "/api/payments/upload",
		"amount,date,reference,payee\n1234.56,2025-01-15,INV-1023,Acme Corp.\n")
	uploadCSV(t, r, "/api/bank/upload",
		"amount,date,reference,payee\n1234.56,2025-01-16,INV-1023,ACME CORP\n")

	rec := doJSON(t, r, http.MethodPost, "/api/reconcile", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var runBody struct {
		RunID   string `json:"run_id"`
		Matched int    `json:"matched"`
		Matches []struct {
			ID        string `json:"ID"`
			Score     int    `json:"Score"`
			MatchType string `json:"MatchType"`
		} `json:"matches"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &runBody))
	require.Equal(t, 1, runBody.Matched)
	require.Len(t, runBody.Matches, 1)
	assert.Equal(t, 100, runBody.Matches[0].Score)
	assert.Equal(t, models.MatchTypeExact, runBody.Matches[0].MatchType)

	// Run is queryable.
	rec = doJSON(t, r, http.MethodGet, "/api/runs/"+runBody.RunID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// List shows the pending match.
	rec = doJSON(t, r, http.MethodGet, "/api/matches?status=pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listBody struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listBody))
	assert.Equal(t, 1, listBody.Count)

	// Detail view joins both records.
	matchID := runBody.Matches[0].ID
	rec = doJSON(t, r, http.MethodGet, "/api/matches/"+matchID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var detailBody struct {
		Payment struct {
			Reference string `json:"Reference"`
		} `json:"payment"`
		BankTxn struct {
			Payee string `json:"Payee"`
		} `json:"bank_txn"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &detailBody))
	assert.Equal(t, "INV-1023", detailBody.Payment.Reference)
	assert.Equal(t, "ACME CORP", detailBody.BankTxn.Payee)

	// Confirm it.
	rec = doJSON(t, r, http.MethodPost, "/api/matches/"+matchID+"/decide",
		gin.H{"reviewer": "alice", "action": "confirm"})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// A repeated decision conflicts.
	rec = doJSON(t, r, http.MethodPost, "/api/matches/"+matchID+"/decide",
		gin.H{"reviewer": "alice", "action": "confirm"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDecideValidation(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/api/matches/not-a-uuid/decide",
		gin.H{"reviewer": "alice", "action": "confirm"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/matches/6a5c0f22-0000-4000-8000-000000000001/decide",
		gin.H{"reviewer": "alice", "action": "reject"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/api/matches/6a5c0f22-0000-4000-8000-000000000001/decide",
		gin.H{"reviewer": "alice", "action": "confirm"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/matches/6a5c0f22-0000-4000-8000-000000000001", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListMatchesSurfacesStorageErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:TestListMatchesSurfacesStorageErrors?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Payment{},
		&models.BankTransaction{},
		&models.Match{},
		&models.MatchAuditLog{},
		&models.ReconciliationRun{},
	))

	r := gin.New()
	routes.RegisterRoutes(r, db, matching.DefaultConfig(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Pull the connection out from under the handler; every query in the
	// listing, stats included, must come back as a 500 rather than a
	// silently zeroed response.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	rec := doJSON(t, r, http.MethodGet, "/api/matches", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestListMatchesRejectsBadFilter(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, http.MethodGet, "/api/matches?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/api/matches?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
