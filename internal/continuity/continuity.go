// Package continuity derives a conditioning image from a finished
// clip's terminal frame so the next clip can be generated as a visual
// continuation. Extraction failures are non-fatal by contract: they
// only remove continuity for the next clip and never affect the clip
// that produced the frame.
package continuity

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/yzamari/clipforge/internal/media"
)

// Extractor produces continuity reference images from clip artifacts.
type Extractor struct {
	renderer media.Renderer
	logger   *slog.Logger
}

// NewExtractor creates an Extractor.
func NewExtractor(renderer media.Renderer, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{renderer: renderer, logger: logger}
}

// ExtractLastFrame extracts the last frame of artifactPath as a PNG
// next to the artifact and returns its path. On any failure it logs
// and returns empty, never an error: the caller simply proceeds
// without continuity.
func (e *Extractor) ExtractLastFrame(ctx context.Context, artifactPath string) string {
	if artifactPath == "" {
		return ""
	}

	base := strings.TrimSuffix(artifactPath, filepath.Ext(artifactPath))
	framePath := fmt.Sprintf("%s_lastframe.png", base)

	if err := e.renderer.ExtractLastFrame(ctx, artifactPath, framePath); err != nil {
		e.logger.Warn("continuity frame extraction failed",
			slog.String("artifact", artifactPath),
			slog.String("error", err.Error()),
		)
		return ""
	}

	// An empty frame file is as useless as no file.
	if info, err := os.Stat(framePath); err != nil || info.Size() == 0 {
		e.logger.Warn("continuity frame missing or empty",
			slog.String("frame", framePath),
		)
		return ""
	}

	return framePath
}
