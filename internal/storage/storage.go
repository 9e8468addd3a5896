// Package storage provides artifact storage for generation sessions.
// It defines the Storage interface (port) with implementations for
// local disk and S3-backed delivery of finished clips.
package storage

import (
	"context"
)

// Storage defines the interface for session artifact storage.
// Every plan gets its own session directory for clip artifacts and
// continuity frames; finished clips can optionally be uploaded to S3.
type Storage interface {
	// SessionDir creates (if needed) and returns the directory for one
	// plan's artifacts.
	SessionDir(ctx context.Context, planID string) (string, error)

	// UploadArtifact uploads a local artifact to S3 under key and
	// returns the public URL.
	// Returns ErrS3NotConfigured when S3 is not configured.
	UploadArtifact(ctx context.Context, key, localPath string) (url string, err error)

	// Cleanup removes the given files, continuing past individual
	// failures and returning the first error encountered.
	Cleanup(ctx context.Context, paths []string) error
}
