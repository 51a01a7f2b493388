package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/strideapp/stride/internal/reliability"
)

// BackupJob uploads a nightly snapshot of the activity database to R2
type BackupJob struct {
	log    zerolog.Logger
	backup *reliability.BackupService
}

// BackupJobConfig holds configuration for the backup job
type BackupJobConfig struct {
	Log    zerolog.Logger
	Backup *reliability.BackupService
}

// NewBackupJob creates a new backup job
func NewBackupJob(cfg BackupJobConfig) *BackupJob {
	return &BackupJob{
		log:    cfg.Log.With().Str("job", "backup").Logger(),
		backup: cfg.Backup,
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "backup"
}

// Run executes one backup pass
func (j *BackupJob) Run() error {
	if j.backup == nil || !j.backup.Enabled() {
		j.log.Debug().Msg("Backups disabled, skipping")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := j.backup.CreateAndUploadBackup(ctx); err != nil {
		return fmt.Errorf("backup job failed: %w", err)
	}

	return nil
}
