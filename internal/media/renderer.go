// Package media provides the procedural rendering and frame extraction
// capabilities backing the image-sequence tier, the continuity
// extractor and the fallback synthesizer.
package media

import "context"

// Renderer defines the interface for media rendering operations.
// Implementations should use ffmpeg or similar tools.
type Renderer interface {
	// ExtractLastFrame extracts the final frame of a video as a PNG
	// image written to destPath.
	ExtractLastFrame(ctx context.Context, videoPath, destPath string) error

	// RenderSlideshow assembles still images into a video of the exact
	// target duration, holding each image for an equal share with a
	// slow zoom for motion.
	RenderSlideshow(ctx context.Context, imagePaths []string, output string, durationSec float64, w, h int) error

	// RenderCaption renders a clip of the exact target duration showing
	// a caption over a solid background color.
	RenderCaption(ctx context.Context, output string, durationSec float64, w, h int, caption, bgColor string) error

	// RenderAnimated renders a generic animated placeholder clip of the
	// exact target duration.
	RenderAnimated(ctx context.Context, output string, durationSec float64, w, h int) error

	// RenderSolid renders a flat single-color clip of the exact target
	// duration.
	RenderSolid(ctx context.Context, output string, durationSec float64, w, h int, color string) error
}
