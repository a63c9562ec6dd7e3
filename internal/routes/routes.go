package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	handler "ledger-reconciliation-backend/internal/handlers"
	"ledger-reconciliation-backend/internal/repository"
	"ledger-reconciliation-backend/internal/services/matching"
	service "ledger-reconciliation-backend/internal/services/reconciliation"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg matching.Config, logger *slog.Logger) {
	paymentRepo := repository.NewPaymentRepository(db)
	bankRepo := repository.NewBankTransactionRepository(db)
	matchRepo := repository.NewMatchRepository(db)

	reconService := service.NewService(
		paymentRepo,
		bankRepo,
		matchRepo,
		matching.NewEngine(cfg),
		logger,
	)

	reconHandler := handler.NewReconciliationHandler(reconService, logger)

	api := r.Group("/api")

	// Health check
	api.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Ledger uploads
	api.POST("/payments/upload", reconHandler.UploadPayments)
	api.POST("/bank/upload", reconHandler.UploadBankTransactions)

	// Reconciliation
	api.POST("/reconcile", reconHandler.Reconcile)
	api.GET("/runs/:id", reconHandler.GetRun)

	// Match review
	matches := api.Group("/matches")
	{
		matches.GET("", reconHandler.ListMatches)
		matches.GET("/:id", reconHandler.GetMatch)
		matches.POST("/:id/decide", reconHandler.DecideMatch)
	}
}
