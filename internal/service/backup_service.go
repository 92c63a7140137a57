package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/noah-isme/coach-lineup-api/internal/dto"
	"github.com/noah-isme/coach-lineup-api/internal/repository"
	appErrors "github.com/noah-isme/coach-lineup-api/pkg/errors"
	"github.com/noah-isme/coach-lineup-api/pkg/storage"
)

const (
	backupPrefix     = "coach_app_backup_"
	preRestorePrefix = "pre_restore_backup_"
	stagedPrefix     = "restore_upload_"
	backupExt        = ".db"
	backupTimeLayout = "20060102_150405"
)

var sqliteHeader = []byte("SQLite format 3\x00")

type databaseSnapshotter interface {
	Ping(ctx context.Context) error
	Snapshot(ctx context.Context, destPath string) error
	Counts(ctx context.Context) (repository.TableCounts, error)
	RestoreFrom(ctx context.Context, srcPath string) (repository.TableCounts, error)
}

type backupFiles interface {
	SaveStream(filename string, r io.Reader, limit int64) (int64, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	Path(filename string) (string, error)
	List(match func(name string) bool) ([]storage.FileInfo, error)
	CleanupOlderThan(ttl time.Duration, match func(name string) bool) ([]storage.FileInfo, error)
	Dir() string
}

// BackupConfig tunes backup retention and restore limits.
type BackupConfig struct {
	DatabasePath     string
	MaxFileSizeBytes int64
	KeepDays         int
}

// BackupService snapshots, validates and restores the SQLite database.
type BackupService struct {
	db      databaseSnapshotter
	files   backupFiles
	cache   *CacheService
	metrics *MetricsService
	clock   clockwork.Clock
	logger  *zap.Logger
	cfg     BackupConfig
}

// NewBackupService constructs the backup service.
func NewBackupService(db databaseSnapshotter, files backupFiles, cache *CacheService, metrics *MetricsService, cfg BackupConfig, clock clockwork.Clock, logger *zap.Logger) *BackupService {
	if cfg.MaxFileSizeBytes <= 0 {
		cfg.MaxFileSizeBytes = 50 * 1024 * 1024
	}
	if cfg.KeepDays <= 0 {
		cfg.KeepDays = 30
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BackupService{db: db, files: files, cache: cache, metrics: metrics, clock: clock, logger: logger, cfg: cfg}
}

// Ready reports whether the database answers.
func (s *BackupService) Ready(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Create writes a consistent snapshot into the backups directory and returns
// its metadata and absolute path.
func (s *BackupService) Create(ctx context.Context) (*dto.BackupFile, string, error) {
	start := s.clock.Now()
	name := backupPrefix + start.UTC().Format(backupTimeLayout) + backupExt
	path, err := s.snapshot(ctx, name)
	s.metrics.ObserveBackup("backup", err, s.clock.Since(start))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create backup")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat backup")
	}
	s.logger.Info("backup created", zap.String("file", name), zap.Int64("bytes", info.Size()))
	return &dto.BackupFile{Name: name, SizeBytes: info.Size(), ModifiedAt: info.ModTime().UTC()}, path, nil
}

// Validate inspects an uploaded file without touching the database.
func (s *BackupService) Validate(filename string, r io.Reader) *dto.BackupValidation {
	return s.inspect(filename, r)
}

// Restore replaces the database contents with the uploaded backup. The live
// database is snapshotted first; a failed restore leaves it untouched.
func (s *BackupService) Restore(ctx context.Context, filename string, r io.Reader) (result *dto.RestoreResult, err error) {
	start := s.clock.Now()
	defer func() {
		s.metrics.ObserveBackup("restore", err, s.clock.Since(start))
	}()

	staged := stagedPrefix + uuid.NewString() + backupExt
	if _, err := s.files.SaveStream(staged, r, s.cfg.MaxFileSizeBytes); err != nil {
		_ = s.files.Delete(staged)
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "backup file too large",
				appErrors.FieldError{Field: "file", Reason: fmt.Sprintf("must be at most %d bytes", s.cfg.MaxFileSizeBytes)})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stage backup")
	}
	defer func() {
		if delErr := s.files.Delete(staged); delErr != nil {
			s.logger.Warn("remove staged backup failed", zap.String("file", staged), zap.Error(delErr))
		}
	}()

	if err := s.inspectStaged(filename, staged); err != nil {
		return nil, err
	}
	stagedPath, err := s.files.Path(staged)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to locate staged backup")
	}

	preRestore := preRestorePrefix + start.UTC().Format(backupTimeLayout) + backupExt
	if _, err := s.snapshot(ctx, preRestore); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot current database")
	}

	counts, err := s.db.RestoreFrom(ctx, stagedPath)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidBackup) {
			return nil, appErrors.WithDetails(appErrors.ErrValidation, "backup is not a valid coach database",
				appErrors.FieldError{Field: "file", Reason: err.Error()})
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore backup")
	}
	s.cache.InvalidateAll(ctx)

	s.logger.Info("database restored", zap.String("upload", filename), zap.String("pre_restore", preRestore), zap.Any("records", counts))
	return &dto.RestoreResult{
		RestoredAt:      s.clock.Now().UTC(),
		PreRestoreFile:  preRestore,
		RestoredRecords: counts,
	}, nil
}

// Info describes the live database file and the stored backups.
func (s *BackupService) Info(ctx context.Context) (*dto.DatabaseInfo, error) {
	info := &dto.DatabaseInfo{Path: s.cfg.DatabasePath, BackupDir: s.files.Dir(), Backups: make([]dto.BackupFile, 0)}
	stat, err := os.Stat(s.cfg.DatabasePath)
	switch {
	case err == nil:
		modified := stat.ModTime().UTC()
		info.Exists = true
		info.SizeBytes = stat.Size()
		info.ModifiedAt = &modified
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat database")
	}

	if info.Exists {
		counts, err := s.db.Counts(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count records")
		}
		info.RecordCounts = counts
	}

	files, err := s.files.List(isBackupFile)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list backups")
	}
	for _, f := range files {
		info.Backups = append(info.Backups, dto.BackupFile{Name: f.Name, SizeBytes: f.SizeBytes, ModifiedAt: f.ModifiedAt})
	}
	return info, nil
}

// Cleanup removes backups and pre-restore snapshots older than keepDays.
// A non-positive keepDays uses the configured retention.
func (s *BackupService) Cleanup(ctx context.Context, keepDays int) (*dto.CleanupResult, error) {
	if keepDays <= 0 {
		keepDays = s.cfg.KeepDays
	}
	removed, err := s.files.CleanupOlderThan(time.Duration(keepDays)*24*time.Hour, isBackupFile)
	result := &dto.CleanupResult{KeepDays: keepDays, Removed: make([]string, 0, len(removed))}
	for _, f := range removed {
		result.Removed = append(result.Removed, f.Name)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clean up backups")
	}
	s.logger.Info("backup cleanup finished", zap.Int("keep_days", keepDays), zap.Int("removed", len(removed)))
	return result, nil
}

func (s *BackupService) snapshot(ctx context.Context, name string) (string, error) {
	path, err := s.files.Path(name)
	if err != nil {
		return "", err
	}
	// VACUUM INTO refuses to overwrite an existing file.
	if err := s.files.Delete(name); err != nil {
		return "", err
	}
	if err := s.db.Snapshot(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

func (s *BackupService) inspectStaged(filename, staged string) error {
	f, err := s.files.Open(staged)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read staged backup")
	}
	defer f.Close()

	report := s.inspect(filename, f)
	if report.Valid {
		return nil
	}
	details := make([]appErrors.FieldError, 0, len(report.Problems))
	for _, p := range report.Problems {
		details = append(details, appErrors.FieldError{Field: "file", Reason: p})
	}
	return appErrors.WithDetails(appErrors.ErrValidation, "invalid backup file", details...)
}

func (s *BackupService) inspect(filename string, r io.Reader) *dto.BackupValidation {
	report := &dto.BackupValidation{Filename: filepath.Base(filename), Problems: make([]string, 0)}
	if !strings.EqualFold(filepath.Ext(filename), backupExt) {
		report.Problems = append(report.Problems, "file must have a .db extension")
	}

	header := make([]byte, len(sqliteHeader))
	n, err := io.ReadFull(r, header)
	rest, copyErr := io.Copy(io.Discard, io.LimitReader(r, s.cfg.MaxFileSizeBytes+1))
	report.SizeBytes = int64(n) + rest

	switch {
	case n == 0:
		report.Problems = append(report.Problems, "file is empty")
	case err != nil || !bytes.Equal(header, sqliteHeader):
		report.Problems = append(report.Problems, "file is not a SQLite database")
	}
	if copyErr != nil {
		report.Problems = append(report.Problems, "file could not be read")
	}
	if report.SizeBytes > s.cfg.MaxFileSizeBytes {
		report.Problems = append(report.Problems, fmt.Sprintf("file must be at most %d bytes", s.cfg.MaxFileSizeBytes))
	}
	report.Valid = len(report.Problems) == 0
	return report
}

func isBackupFile(name string) bool {
	if !strings.HasSuffix(name, backupExt) {
		return false
	}
	return strings.HasPrefix(name, backupPrefix) || strings.HasPrefix(name, preRestorePrefix) || strings.HasPrefix(name, stagedPrefix)
}
