package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Storage drivers accepted by STORAGE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds runtime configuration sourced from env vars.
type Config struct {
	Port          string
	StorageDriver string
	DatabaseURL   string
	JWTSecret     string
	JWTIssuer     string
	JWTTTL        time.Duration
	BcryptCost    int
	CORSOrigins   []string
	LogLevel      string
	LogFormat     string

	Dataset            string
	SpreadsheetID      string
	SheetRange         string
	ServiceAccountFile string

	RedisURL string
	CacheTTL time.Duration

	AMQPURL   string
	SyncQueue string

	S3 S3Config
}

// S3Config describes the optional bucket used to archive raw spreadsheet snapshots.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// Enabled reports whether snapshot archiving was configured.
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Load reads configuration from the environment and performs minimal validation.
func Load() (Config, error) {
	cfg := Config{
		Port:          fallback(os.Getenv("PORT"), "4000"),
		StorageDriver: strings.ToLower(fallback(os.Getenv("STORAGE_DRIVER"), DriverPostgres)),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:     strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:     fallback(os.Getenv("JWT_ISSUER"), "sales-dashboard"),
		CORSOrigins:   parseCSV(fallback(os.Getenv("CORS_ALLOWED_ORIGINS"), fallback(os.Getenv("FRONTEND_URL"), "*"))),
		LogLevel:      fallback(os.Getenv("LOG_LEVEL"), "info"),
		LogFormat:     fallback(os.Getenv("LOG_FORMAT"), "text"),

		Dataset:            fallback(os.Getenv("DATASET"), "store-revenue"),
		SpreadsheetID:      strings.TrimSpace(os.Getenv("SPREADSHEET_ID")),
		SheetRange:         fallback(os.Getenv("SHEET_RANGE"), "Sales_Data!A:M"),
		ServiceAccountFile: fallback(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"), "service-account.json"),

		RedisURL:  strings.TrimSpace(os.Getenv("REDIS_URL")),
		AMQPURL:   strings.TrimSpace(os.Getenv("AMQP_URL")),
		SyncQueue: fallback(os.Getenv("SYNC_QUEUE"), "sales.synced"),

		S3: S3Config{
			Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET")),
			Region:    fallback(os.Getenv("S3_REGION"), "us-east-1"),
			Endpoint:  strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			AccessKey: strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
			SecretKey: strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
			Prefix:    fallback(os.Getenv("S3_PREFIX"), "snapshots"),
		},
	}

	// Tokens default to a week.
	minutes := fallback(os.Getenv("JWT_TTL_MINUTES"), "10080")
	if ttlMinutes, err := strconv.Atoi(minutes); err == nil && ttlMinutes > 0 {
		cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute
	} else {
		cfg.JWTTTL = 7 * 24 * time.Hour
	}

	cfg.BcryptCost = bcrypt.DefaultCost
	if raw := strings.TrimSpace(os.Getenv("BCRYPT_COST")); raw != "" {
		cost, err := strconv.Atoi(raw)
		if err != nil || cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
			return Config{}, fmt.Errorf("invalid BCRYPT_COST %q", raw)
		}
		cfg.BcryptCost = cost
	}

	cfg.CacheTTL = 5 * time.Minute
	if raw := strings.TrimSpace(os.Getenv("CACHE_TTL")); raw != "" {
		ttl, err := time.ParseDuration(raw)
		if err != nil || ttl <= 0 {
			return Config{}, fmt.Errorf("invalid CACHE_TTL %q", raw)
		}
		cfg.CacheTTL = ttl
	}

	switch cfg.StorageDriver {
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, errors.New("DATABASE_URL is required")
		}
	case DriverMemory:
	default:
		return Config{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
	if cfg.JWTSecret == "" {
		return Config{}, errors.New("JWT_SECRET is required")
	}

	return cfg, nil
}

// HTTPAddress returns the host:port pair for the HTTP server to bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%s", c.Port)
}

func fallback(value, def string) string {
	if strings.TrimSpace(value) == "" {
		return def
	}
	return strings.TrimSpace(value)
}

func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	var out []string
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
