package dto

import "time"

// BackupValidation reports whether an uploaded file can be restored.
type BackupValidation struct {
	Valid     bool     `json:"valid"`
	Filename  string   `json:"filename"`
	SizeBytes int64    `json:"size_bytes"`
	Problems  []string `json:"problems"`
}

// RestoreResult describes a completed restore.
type RestoreResult struct {
	RestoredAt      time.Time        `json:"restored_at"`
	PreRestoreFile  string           `json:"pre_restore_file"`
	RestoredRecords map[string]int64 `json:"restored_records"`
}

// DatabaseInfo describes the live database file.
type DatabaseInfo struct {
	Path         string           `json:"path"`
	Exists       bool             `json:"exists"`
	SizeBytes    int64            `json:"size_bytes"`
	ModifiedAt   *time.Time       `json:"modified_at"`
	RecordCounts map[string]int64 `json:"record_counts,omitempty"`
	BackupDir    string           `json:"backup_dir"`
	Backups      []BackupFile     `json:"backups"`
}

// BackupFile is one stored backup.
type BackupFile struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// CleanupRequest holds the retention window for backup cleanup.
type CleanupRequest struct {
	KeepDays int `form:"keep_days" json:"keep_days" validate:"omitempty,min=1,max=3650"`
}

// CleanupResult lists the files removed by cleanup.
type CleanupResult struct {
	KeepDays int      `json:"keep_days"`
	Removed  []string `json:"removed"`
}
