package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

// ErrOutsideBase is returned for names that resolve outside the storage root.
var ErrOutsideBase = errors.New("path escapes storage directory")

// FileInfo describes a stored file.
type FileInfo struct {
	Name       string    `json:"name"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
}

// LocalStorage persists files on disk under a base directory.
type LocalStorage struct {
	baseDir string
	clock   clockwork.Clock
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string, clock clockwork.Clock) (*LocalStorage, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("storage directory required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir, clock: clock}, nil
}

// Save writes the given bytes to the provided relative path under the base dir.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("prepare storage directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return filename, nil
}

// SaveStream copies at most limit bytes from r into the target file. A
// non-positive limit disables the check. The partial file is removed when
// the stream exceeds the limit.
func (s *LocalStorage) SaveStream(filename string, r io.Reader, limit int64) (int64, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("prepare storage directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create file: %w", err)
	}
	defer file.Close() //nolint:errcheck

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	written, err := io.Copy(file, src)
	if err != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("write stream: %w", err)
	}
	if limit > 0 && written > limit {
		_ = os.Remove(path)
		return written, ErrTooLarge
	}
	return written, nil
}

// ErrTooLarge signals that a streamed file exceeded its size limit.
var ErrTooLarge = errors.New("file exceeds size limit")

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	path, err := s.resolve(filename)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	return file, nil
}

// Delete removes a stored file if present.
func (s *LocalStorage) Delete(filename string) error {
	path, err := s.resolve(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete file: %w", err)
	}
	return nil
}

// List returns files in the base directory accepted by match, newest first.
func (s *LocalStorage) List(match func(name string) bool) ([]FileInfo, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list storage directory: %w", err)
	}
	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || (match != nil && !match(entry.Name())) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: entry.Name(), SizeBytes: info.Size(), ModifiedAt: info.ModTime().UTC()})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].ModifiedAt.After(files[j].ModifiedAt) })
	return files, nil
}

// CleanupOlderThan removes files accepted by match whose modification time is
// older than ttl and returns what was removed.
func (s *LocalStorage) CleanupOlderThan(ttl time.Duration, match func(name string) bool) ([]FileInfo, error) {
	cutoff := s.clock.Now().Add(-ttl)
	files, err := s.List(match)
	if err != nil {
		return nil, fmt.Errorf("cleanup storage: %w", err)
	}
	removed := make([]FileInfo, 0)
	for _, f := range files {
		if f.ModifiedAt.After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.baseDir, f.Name)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("cleanup storage: %w", err)
		}
		removed = append(removed, f)
	}
	return removed, nil
}

// Path returns the absolute location of a stored file.
func (s *LocalStorage) Path(filename string) (string, error) {
	return s.resolve(filename)
}

// Dir returns the storage root.
func (s *LocalStorage) Dir() string {
	return s.baseDir
}

func (s *LocalStorage) resolve(filename string) (string, error) {
	if filename == "" || filepath.IsAbs(filename) {
		return "", ErrOutsideBase
	}
	path := filepath.Join(s.baseDir, filename)
	rel, err := filepath.Rel(s.baseDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideBase
	}
	return path, nil
}
