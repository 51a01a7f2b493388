package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"github.com/strideapp/stride/internal/database"
)

const backupPrefix = "backups/"

// BackupService creates consistent snapshots of the activity database and
// uploads them to R2. Snapshots use VACUUM INTO so they are safe to take
// while the database is in use.
type BackupService struct {
	db            *database.DB
	r2            *R2Client
	dataDir       string
	retentionDays int
	log           zerolog.Logger
}

// BackupMetadata describes the contents of one backup archive
type BackupMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Database  string    `json:"database"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"` // sha256 of the database snapshot
}

// NewBackupService creates a new backup service.
// r2 may be nil, in which case backups are disabled and CreateAndUploadBackup is a no-op.
func NewBackupService(db *database.DB, r2 *R2Client, dataDir string, retentionDays int, log zerolog.Logger) *BackupService {
	return &BackupService{
		db:            db,
		r2:            r2,
		dataDir:       dataDir,
		retentionDays: retentionDays,
		log:           log.With().Str("service", "backup").Logger(),
	}
}

// Enabled reports whether the service has an upload target
func (s *BackupService) Enabled() bool {
	return s.r2 != nil
}

// CreateAndUploadBackup snapshots the database, archives it with metadata,
// uploads the archive, and prunes backups past retention.
func (s *BackupService) CreateAndUploadBackup(ctx context.Context) error {
	if !s.Enabled() {
		s.log.Debug().Msg("Backups disabled, skipping")
		return nil
	}

	s.log.Info().Msg("Starting backup")
	startTime := time.Now()

	stagingDir, err := os.MkdirTemp(s.dataDir, "backup-staging-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(stagingDir) }()

	snapshotPath := filepath.Join(stagingDir, s.db.Name()+".db")
	if err := s.db.VacuumInto(snapshotPath); err != nil {
		return fmt.Errorf("failed to snapshot database: %w", err)
	}

	info, err := os.Stat(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to stat snapshot: %w", err)
	}

	checksum, err := fileChecksum(snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to checksum snapshot: %w", err)
	}

	metadata := BackupMetadata{
		Timestamp: startTime.UTC(),
		Database:  s.db.Name(),
		SizeBytes: info.Size(),
		Checksum:  checksum,
	}

	metadataPath := filepath.Join(stagingDir, "backup-metadata.json")
	if err := writeMetadata(metadataPath, metadata); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}

	archivePath := filepath.Join(stagingDir, fmt.Sprintf("stride-%s.tar.gz", startTime.Format("2006-01-02-150405")))
	if err := createArchive(archivePath, snapshotPath, metadataPath); err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = archive.Close() }()

	key := backupPrefix + filepath.Base(archivePath)
	if err := s.r2.Upload(ctx, key, archive); err != nil {
		return err
	}

	if err := s.PruneOldBackups(ctx); err != nil {
		// Upload succeeded; pruning failure is not fatal
		s.log.Warn().Err(err).Msg("Failed to prune old backups")
	}

	s.log.Info().
		Str("key", key).
		Int64("size_bytes", metadata.SizeBytes).
		Dur("duration", time.Since(startTime)).
		Msg("Backup completed")

	return nil
}

// PruneOldBackups deletes backups older than the retention window
func (s *BackupService) PruneOldBackups(ctx context.Context) error {
	if !s.Enabled() || s.retentionDays <= 0 {
		return nil
	}

	backups, err := s.r2.List(ctx, backupPrefix)
	if err != nil {
		return err
	}

	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	for _, backup := range backups {
		if backup.LastModified.Before(cutoff) {
			if err := s.r2.Delete(ctx, backup.Key); err != nil {
				return err
			}
		}
	}

	return nil
}

// fileChecksum computes the sha256 hex digest of a file
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// writeMetadata serializes backup metadata to a JSON file
func writeMetadata(path string, metadata BackupMetadata) error {
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// createArchive builds a tar.gz containing the given files
func createArchive(archivePath string, files ...string) error {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	gzWriter := gzip.NewWriter(out)
	defer func() { _ = gzWriter.Close() }()

	tarWriter := tar.NewWriter(gzWriter)
	defer func() { _ = tarWriter.Close() }()

	for _, file := range files {
		if err := addFileToArchive(tarWriter, file); err != nil {
			return err
		}
	}

	return nil
}

func addFileToArchive(tw *tar.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	header.Name = filepath.Base(path)

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tw, f)
	return err
}
