package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DatabaseURL     string
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	GoogleClientID     string
	GoogleClientSecret string

	// Key used to encrypt IMAP passwords at rest.
	EncryptionKey string

	// Sync engine tunables.
	SyncWindowDays   int
	SyncPageSize     int
	SyncMaxPages     int
	SyncWorkerLimit  int
	SyncMaxRetries   int
	SyncRetryBackoff time.Duration
	SyncDeadline     time.Duration

	// Brief aggregation tunables. Scoring weights are configuration, not
	// hardcoded business rules.
	BriefWindowDays       int
	BriefMaxMessages      int
	BriefRecencyWeight    float64
	BriefUnreadWeight     float64
	BriefWorkWeight       float64
	BriefRecencyHalfLife  time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=chiefos port=5432 sslmode=disable"),
		JWTSecret:        getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		JWTRefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 7*24*time.Hour),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),

		SyncWindowDays:   getInt("SYNC_WINDOW_DAYS", 90),
		SyncPageSize:     getInt("SYNC_PAGE_SIZE", 100),
		SyncMaxPages:     getInt("SYNC_MAX_PAGES", 50),
		SyncWorkerLimit:  getInt("SYNC_WORKER_LIMIT", 4),
		SyncMaxRetries:   getInt("SYNC_MAX_RETRIES", 3),
		SyncRetryBackoff: getDuration("SYNC_RETRY_BACKOFF", 2*time.Second),
		SyncDeadline:     getDuration("SYNC_DEADLINE", 2*time.Minute),

		BriefWindowDays:      getInt("BRIEF_WINDOW_DAYS", 7),
		BriefMaxMessages:     getInt("BRIEF_MAX_MESSAGES", 500),
		BriefRecencyWeight:   getFloat("BRIEF_RECENCY_WEIGHT", 50),
		BriefUnreadWeight:    getFloat("BRIEF_UNREAD_WEIGHT", 30),
		BriefWorkWeight:      getFloat("BRIEF_WORK_WEIGHT", 20),
		BriefRecencyHalfLife: getDuration("BRIEF_RECENCY_HALF_LIFE", 24*time.Hour),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
