package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// StoreKind names the storage backend selected by the environment.
type StoreKind string

const (
	StorePostgres StoreKind = "postgres"
	StoreSQLite   StoreKind = "sqlite"
	StoreMemory   StoreKind = "memory"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	Port        string
	Environment string

	DBURL      string
	SQLitePath string

	PriceTTL                 time.Duration
	TaxStrictMode            bool
	RebuildSchedule          string
	CorporateActionThreshold decimal.Decimal
	WriteTimeout             time.Duration
}

// Load reads configuration from environment variables. A .env file is loaded
// if present to simplify local development. We look beside the executable,
// in bin/.env and finally in .env at the working directory.
func Load() Config {
	loadDotEnv()

	return Config{
		Port:                     getString("PORT", "8080"),
		Environment:              getString("ENVIRONMENT", "local"),
		DBURL:                    getString("DATABASE_URL", ""),
		SQLitePath:               getString("SQLITE_PATH", ""),
		PriceTTL:                 getDurationMinutes("PRICE_TTL_MINUTES", 60),
		TaxStrictMode:            getBool("TAX_STRICT_MODE", false),
		RebuildSchedule:          getString("REBUILD_SCHEDULE", ""),
		CorporateActionThreshold: getDecimal("CORPORATE_ACTION_THRESHOLD", "0.30"),
		WriteTimeout:             time.Duration(getInt("WRITE_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}

// Store picks postgres when a DSN is set, then sqlite, then memory.
func (c Config) Store() StoreKind {
	switch {
	case c.DBURL != "":
		return StorePostgres
	case c.SQLitePath != "":
		return StoreSQLite
	}
	return StoreMemory
}

func loadDotEnv() {
	candidates := []string{
		filepath.Join("bin", ".env"),
		".env",
	}

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		candidates = append([]string{
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "bin", ".env"),
		}, candidates...)
	}

	for _, path := range candidates {
		if err := godotenv.Load(path); err == nil {
			return
		}
	}
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		log.Printf("invalid value for %s, using fallback: %v", key, err)
		return fallback
	}
	return b
}

func getInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		log.Printf("invalid value for %s, using fallback %d", key, fallback)
		return fallback
	}
	return n
}

func getDecimal(key, fallback string) decimal.Decimal {
	def := decimal.RequireFromString(fallback)
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	d, err := decimal.NewFromString(val)
	if err != nil || !d.IsPositive() {
		log.Printf("invalid value for %s, using fallback %s", key, fallback)
		return def
	}
	return d
}

func getDurationMinutes(key string, fallback int) time.Duration {
	return time.Duration(getInt(key, fallback)) * time.Minute
}
