package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STRIDE_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8030, cfg.Port)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "15 0 * * *", cfg.SyncSchedule)
	assert.Equal(t, DefaultEpoch, cfg.SyncEpoch.Format("2006-01-02"))
	assert.Equal(t, "https://connectapi.garmin.com", cfg.Garmin.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.Garmin.Timeout)
	assert.False(t, cfg.Backup.Enabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STRIDE_DATA_DIR", t.TempDir())
	t.Setenv("STRIDE_PORT", "9000")
	t.Setenv("SYNC_EPOCH", "2024-06-15")
	t.Setenv("GARMIN_EMAIL", "user@example.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	// Epoch is a local calendar day, same location as all other day math
	assert.Equal(t, time.Date(2024, 6, 15, 0, 0, 0, 0, time.Local), cfg.SyncEpoch)
	assert.Equal(t, "user@example.com", cfg.Garmin.Email)
}

func TestLoad_InvalidEpoch(t *testing.T) {
	t.Setenv("STRIDE_DATA_DIR", t.TempDir())
	t.Setenv("SYNC_EPOCH", "15/06/2024")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_BackupRequiresCredentials(t *testing.T) {
	cfg := &Config{
		Backup: &BackupConfig{Enabled: true, Bucket: "stride-backups"},
	}
	assert.Error(t, cfg.Validate())

	cfg.Backup.Endpoint = "https://accountid.r2.cloudflarestorage.com"
	cfg.Backup.AccessKeyID = "key"
	cfg.Backup.SecretAccessKey = "secret"
	assert.NoError(t, cfg.Validate())
}
