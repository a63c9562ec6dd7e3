package config

import (
	"log"
	"os"
	"strconv"

	"ledger-reconciliation-backend/internal/services/matching"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB opens the postgres connection from DATABASE_URL.
func InitDB() *gorm.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	return db
}

// MatchingFromEnv builds the engine thresholds, starting from the defaults
// and applying any RECON_* overrides.
func MatchingFromEnv() matching.Config {
	cfg := matching.DefaultConfig()
	cfg.DateToleranceDays = envInt("RECON_DATE_TOLERANCE_DAYS", cfg.DateToleranceDays)
	cfg.ReferenceThreshold = envFloat("RECON_REF_THRESHOLD", cfg.ReferenceThreshold)
	cfg.PayeeThreshold = envFloat("RECON_PAYEE_THRESHOLD", cfg.PayeeThreshold)
	cfg.AmountTolerancePct = envFloat("RECON_AMOUNT_TOLERANCE_PCT", cfg.AmountTolerancePct)
	return cfg
}

// Port returns the HTTP listen port, defaulting to 8080.
func Port() string {
	if p := os.Getenv("PORT"); p != "" {
		return p
	}
	return "8080"
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("ignoring invalid %s=%q: %v", key, raw, err)
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		log.Printf("ignoring invalid %s=%q: %v", key, raw, err)
		return fallback
	}
	return v
}
