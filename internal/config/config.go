// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultEpoch is the first day the tracker has data for. Sync never
// reaches further back than this date.
const DefaultEpoch = "2025-02-01"

// Config holds application configuration
type Config struct {
	DataDir   string // Base directory for the activity database (always absolute)
	Port      int
	DevMode   bool
	LogLevel  string
	SyncEpoch time.Time // First date eligible for backfill

	// Cron schedules (robfig/cron spec format)
	SyncSchedule   string
	BackupSchedule string

	Garmin *GarminConfig
	Backup *BackupConfig
}

// GarminConfig holds Garmin Connect provider settings
type GarminConfig struct {
	BaseURL     string
	Email       string
	Password    string
	SessionFile string // Cached session token location (resumed across restarts)
	Timeout     time.Duration
}

// BackupConfig holds S3-compatible (Cloudflare R2) backup settings
type BackupConfig struct {
	Enabled         bool
	Endpoint        string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	RetentionDays   int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("STRIDE_DATA_DIR", "")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".stride")
	}

	// Always resolve to absolute path
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}

	// Ensure directory exists
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Parsed in local time: all day arithmetic (store keys, yesterday
	// cutoff) works on local calendar days.
	epochStr := getEnv("SYNC_EPOCH", DefaultEpoch)
	epoch, err := time.ParseInLocation("2006-01-02", epochStr, time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid SYNC_EPOCH %q (expected YYYY-MM-DD): %w", epochStr, err)
	}

	cfg := &Config{
		DataDir:        absDataDir,
		Port:           getEnvAsInt("STRIDE_PORT", 8030),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SyncEpoch:      epoch,
		SyncSchedule:   getEnv("SYNC_SCHEDULE", "15 0 * * *"),   // Shortly after midnight, local time
		BackupSchedule: getEnv("BACKUP_SCHEDULE", "45 3 * * *"), // After the nightly sync has settled
		Garmin: &GarminConfig{
			BaseURL:     getEnv("GARMIN_BASE_URL", "https://connectapi.garmin.com"),
			Email:       getEnv("GARMIN_EMAIL", ""),
			Password:    getEnv("GARMIN_PASSWORD", ""),
			SessionFile: getEnv("GARMIN_SESSION_FILE", filepath.Join(absDataDir, "session.json")),
			Timeout:     time.Duration(getEnvAsInt("GARMIN_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Backup: &BackupConfig{
			Enabled:         getEnvAsBool("R2_BACKUP_ENABLED", false),
			Endpoint:        getEnv("R2_ENDPOINT", ""),
			Bucket:          getEnv("R2_BUCKET", "stride-backups"),
			AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
			RetentionDays:   getEnvAsInt("R2_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.Backup.Enabled {
		if c.Backup.Endpoint == "" || c.Backup.AccessKeyID == "" || c.Backup.SecretAccessKey == "" {
			return fmt.Errorf("R2 backup enabled but endpoint or credentials are missing")
		}
	}

	// Note: Garmin credentials optional at startup - a saved session may still
	// be valid, and without either the sync run surfaces an auth error instead.

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
