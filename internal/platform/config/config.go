package config

import (
	"log"
	"strings"
	"time"

	"github.com/SscSPs/loan_ledger/internal/core/domain"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Storage drivers.
const (
	StoragePgsql  = "pgsql"
	StorageMemory = "memory"
)

// Config holds application configuration.
type Config struct {
	DatabaseURL    string
	Port           string
	IsProduction   bool
	EnableDBCheck  bool
	LogMode        string
	StorageDriver  string
	MigrationsPath string

	// Business calendar
	BusinessLocation *time.Location

	// Undo
	UndoDailyLimit int

	// Reconciliation
	ReconcileEpsilon         decimal.Decimal
	ReconcileScanConcurrency int
	RepairPolicy             domain.RepairPolicy
	RepairLockTTL    time.Duration
	RedisAddress     string
	RedisPassword    string

	// HTTP adapter
	RateLimit          string
	CORSAllowedOrigins []string
}

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ENABLE_DB_CHECK", false)
	viper.SetDefault("LOG_MODE", "production")
	viper.SetDefault("STORAGE_DRIVER", StoragePgsql)
	viper.SetDefault("MIGRATIONS_PATH", "file://migrations")
	viper.SetDefault("BUSINESS_TIMEZONE", "UTC")
	viper.SetDefault("UNDO_DAILY_LIMIT", 3)
	viper.SetDefault("RECONCILE_EPSILON", "0.01")
	viper.SetDefault("RECONCILE_SCAN_CONCURRENCY", 4)
	viper.SetDefault("REPAIR_POLICY", string(domain.RepairStrict))
	viper.SetDefault("REPAIR_LOCK_TTL", "5m")
	viper.SetDefault("REDIS_ADDRESS", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("RATE_LIMIT", "20-S")
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	cfg.Port = viper.GetString("PORT")
	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.EnableDBCheck = viper.GetBool("ENABLE_DB_CHECK")
	cfg.LogMode = viper.GetString("LOG_MODE")
	cfg.MigrationsPath = viper.GetString("MIGRATIONS_PATH")
	cfg.RedisAddress = viper.GetString("REDIS_ADDRESS")
	cfg.RedisPassword = viper.GetString("REDIS_PASSWORD")
	cfg.RateLimit = viper.GetString("RATE_LIMIT")

	cfg.StorageDriver = strings.ToLower(viper.GetString("STORAGE_DRIVER"))
	if cfg.StorageDriver != StoragePgsql && cfg.StorageDriver != StorageMemory {
		log.Printf("Warning: Invalid value for STORAGE_DRIVER ('%s'). Defaulting to %s.\n", cfg.StorageDriver, StoragePgsql)
		cfg.StorageDriver = StoragePgsql
	}
	if cfg.StorageDriver == StoragePgsql && cfg.DatabaseURL == "" {
		log.Println("Warning: PGSQL_URL environment variable not set.")
	}

	tz := viper.GetString("BUSINESS_TIMEZONE")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("Warning: Invalid value for BUSINESS_TIMEZONE ('%s'). Defaulting to UTC.\n", tz)
		loc = time.UTC
	}
	cfg.BusinessLocation = loc

	cfg.UndoDailyLimit = viper.GetInt("UNDO_DAILY_LIMIT")
	if cfg.UndoDailyLimit <= 0 {
		cfg.UndoDailyLimit = 3
		log.Printf("Warning: UNDO_DAILY_LIMIT must be positive. Defaulting to %d.\n", cfg.UndoDailyLimit)
	}

	epsilonStr := viper.GetString("RECONCILE_EPSILON")
	epsilon, err := decimal.NewFromString(epsilonStr)
	if err != nil || epsilon.IsNegative() {
		epsilon = decimal.NewFromFloat(0.01)
		log.Printf("Warning: Invalid value for RECONCILE_EPSILON ('%s'). Defaulting to %s.\n", epsilonStr, epsilon)
	}
	cfg.ReconcileEpsilon = epsilon

	cfg.ReconcileScanConcurrency = viper.GetInt("RECONCILE_SCAN_CONCURRENCY")
	if cfg.ReconcileScanConcurrency <= 0 {
		cfg.ReconcileScanConcurrency = 4
		log.Printf("Warning: RECONCILE_SCAN_CONCURRENCY must be positive. Defaulting to %d.\n", cfg.ReconcileScanConcurrency)
	}

	cfg.RepairPolicy = domain.RepairPolicy(strings.ToLower(viper.GetString("REPAIR_POLICY")))
	if cfg.RepairPolicy != domain.RepairStrict && cfg.RepairPolicy != domain.RepairUnconditional {
		log.Printf("Warning: Invalid value for REPAIR_POLICY ('%s'). Defaulting to %s.\n", cfg.RepairPolicy, domain.RepairStrict)
		cfg.RepairPolicy = domain.RepairStrict
	}

	ttlStr := viper.GetString("REPAIR_LOCK_TTL")
	ttl, err := time.ParseDuration(ttlStr)
	if err != nil || ttl <= 0 {
		ttl = 5 * time.Minute
		log.Printf("Warning: Invalid value for REPAIR_LOCK_TTL ('%s'). Defaulting to %s.\n", ttlStr, ttl)
	}
	cfg.RepairLockTTL = ttl

	for _, origin := range strings.Split(viper.GetString("CORS_ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, origin)
		}
	}

	return cfg, nil
}
