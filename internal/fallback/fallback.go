// Package fallback guarantees every clip slot ends with an artifact.
// It layers purely deterministic rendering strategies from a
// content-aware caption clip down to a zero-byte placeholder that can
// never fail, so the orchestrator's one-result-per-slot invariant holds
// no matter what the generative tiers do.
package fallback

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/yzamari/clipforge/internal/media"
	"github.com/yzamari/clipforge/internal/plan"
)

// Theme pairs prompt keywords with a caption and background color for
// the content-aware fallback level.
type Theme struct {
	Keywords []string
	Caption  string
	BGColor  string
}

// defaultThemes is the fixed keyword table for content-aware
// placeholders. First match wins; the last entry is the catch-all.
var defaultThemes = []Theme{
	{Keywords: []string{"news", "breaking", "report"}, Caption: "Breaking Story", BGColor: "0x8b0000"},
	{Keywords: []string{"tech", "ai", "robot", "future"}, Caption: "Tech Update", BGColor: "0x0b3d91"},
	{Keywords: []string{"nature", "ocean", "forest", "mountain"}, Caption: "Nature Moment", BGColor: "0x14532d"},
	{Keywords: []string{"food", "cooking", "recipe"}, Caption: "Kitchen Stories", BGColor: "0x7c2d12"},
	{Keywords: []string{"sport", "game", "match"}, Caption: "Game On", BGColor: "0x1e3a5f"},
	{Keywords: []string{}, Caption: "Coming Up Next", BGColor: "0x1f2937"},
}

// Synthesizer renders deterministic placeholder clips.
type Synthesizer struct {
	renderer media.Renderer
	themes   []Theme
	width    int
	height   int
	logger   *slog.Logger
}

// NewSynthesizer creates a Synthesizer rendering at the given
// resolution.
func NewSynthesizer(renderer media.Renderer, width, height int, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{
		renderer: renderer,
		themes:   defaultThemes,
		width:    width,
		height:   height,
		logger:   logger,
	}
}

// strategy is one fallback level: attempt, check, continue.
type strategy struct {
	name   string
	render func(ctx context.Context, spec plan.ClipSpec, output string) error
}

// Synthesize produces an artifact for the clip spec at outputPath,
// trying each fallback level in order. The final level writes an empty
// placeholder and never fails, so Synthesize always returns a path.
func (s *Synthesizer) Synthesize(ctx context.Context, spec plan.ClipSpec, outputPath string) string {
	levels := []strategy{
		{name: "themed_caption", render: s.renderThemed},
		{name: "animated_placeholder", render: s.renderAnimated},
		{name: "solid_color", render: s.renderSolid},
	}

	for _, level := range levels {
		err := level.render(ctx, spec, outputPath)
		if err == nil {
			s.logger.Info("fallback synthesis succeeded",
				slog.Int("clip_index", spec.Index),
				slog.String("level", level.name),
			)
			return outputPath
		}
		s.logger.Warn("fallback level failed",
			slog.Int("clip_index", spec.Index),
			slog.String("level", level.name),
			slog.String("error", err.Error()),
		)
	}

	// Last resort: a zero-byte placeholder. Creating an empty file can
	// only fail if even the filesystem is gone; truncate to empty and
	// accept whatever exists at the path.
	if f, err := os.Create(outputPath); err == nil { // #nosec G304 - outputPath is constructed internally
		_ = f.Close()
	}
	s.logger.Error("all fallback renderers failed, wrote empty placeholder",
		slog.Int("clip_index", spec.Index),
		slog.String("path", outputPath),
	)
	return outputPath
}

// renderThemed renders a caption clip themed by prompt keywords.
func (s *Synthesizer) renderThemed(ctx context.Context, spec plan.ClipSpec, output string) error {
	theme := s.matchTheme(spec.Prompt)
	caption := fmt.Sprintf("%s (%d/%d)", theme.Caption, spec.Index+1, spec.TotalClips)
	return s.renderer.RenderCaption(ctx, output, spec.Duration.Seconds(), s.width, s.height, caption, theme.BGColor)
}

func (s *Synthesizer) renderAnimated(ctx context.Context, spec plan.ClipSpec, output string) error {
	return s.renderer.RenderAnimated(ctx, output, spec.Duration.Seconds(), s.width, s.height)
}

func (s *Synthesizer) renderSolid(ctx context.Context, spec plan.ClipSpec, output string) error {
	return s.renderer.RenderSolid(ctx, output, spec.Duration.Seconds(), s.width, s.height, "")
}

// matchTheme picks the first theme whose keywords appear in the
// prompt. The catch-all (empty keyword list) always matches.
func (s *Synthesizer) matchTheme(prompt string) Theme {
	lower := strings.ToLower(prompt)
	for _, theme := range s.themes {
		if len(theme.Keywords) == 0 {
			return theme
		}
		for _, kw := range theme.Keywords {
			if strings.Contains(lower, kw) {
				return theme
			}
		}
	}
	return defaultThemes[len(defaultThemes)-1]
}
