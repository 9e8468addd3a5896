package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrS3NotConfigured is returned when S3 operations are attempted
// without proper configuration.
var ErrS3NotConfigured = errors.New("S3 storage is not configured")

// LocalStorage implements the Storage interface using local disk.
// It keeps each plan's artifacts in a session subdirectory of a
// configurable base directory and does not support S3 uploads unless
// wrapped with S3Storage.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage creates a new LocalStorage instance.
// If baseDir is empty, a directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = filepath.Join(os.TempDir(), "clipforge")
	}

	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create base directory: %w", err)
	}

	return &LocalStorage{baseDir: baseDir}, nil
}

// BaseDir returns the base directory path.
func (s *LocalStorage) BaseDir() string {
	return s.baseDir
}

// SessionDir creates and returns the directory for one plan's
// artifacts.
func (s *LocalStorage) SessionDir(ctx context.Context, planID string) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("context cancelled: %w", ctx.Err())
	default:
	}

	dir := filepath.Join(s.baseDir, planID)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}
	return dir, nil
}

// Cleanup removes the given files, continuing past individual
// failures and returning the first error encountered.
func (s *LocalStorage) Cleanup(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		default:
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove artifact %s: %w", p, err)
			}
		}
	}
	return firstErr
}

// UploadArtifact is not supported by LocalStorage and returns
// ErrS3NotConfigured.
func (s *LocalStorage) UploadArtifact(_ context.Context, _, _ string) (string, error) {
	return "", ErrS3NotConfigured
}

// Compile-time check that LocalStorage implements Storage.
var _ Storage = (*LocalStorage)(nil)
