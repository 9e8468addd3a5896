package tier

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yzamari/clipforge/internal/imagen"
	"github.com/yzamari/clipforge/internal/media"
)

// framesPerClip is how many stills the image-sequence tier generates
// for one clip.
const framesPerClip = 4

// ImageSequenceAdapter builds a clip from generated still frames when
// both video tiers are unavailable. It generates a handful of images
// for the prompt and assembles them into a slideshow at the exact
// target duration.
type ImageSequenceAdapter struct {
	client   imagen.Client
	renderer media.Renderer
	model    string
}

// NewImageSequenceAdapter creates the image-sequence tier generator.
func NewImageSequenceAdapter(client imagen.Client, renderer media.Renderer, model string) *ImageSequenceAdapter {
	return &ImageSequenceAdapter{client: client, renderer: renderer, model: model}
}

// Tier identifies which tier this generator serves.
func (a *ImageSequenceAdapter) Tier() Tier {
	return ImageSequence
}

// SupportsContinuity reports that still-frame generation does not take
// a conditioning image.
func (a *ImageSequenceAdapter) SupportsContinuity() bool {
	return false
}

// Reachable reports whether the image API responds.
func (a *ImageSequenceAdapter) Reachable(ctx context.Context) error {
	return a.client.Reachable(ctx)
}

// Generate produces framesPerClip stills and assembles them into a
// video. Image API failures come back classified; renderer failures
// are transient.
func (a *ImageSequenceAdapter) Generate(ctx context.Context, req Request) (string, error) {
	frameDir, err := os.MkdirTemp("", "imageseq-*")
	if err != nil {
		return "", NewFailure(KindTransient, ImageSequence, fmt.Errorf("create frame dir: %w", err))
	}
	defer func() { _ = os.RemoveAll(frameDir) }()

	framePaths := make([]string, 0, framesPerClip)
	for i := 0; i < framesPerClip; i++ {
		prompt := fmt.Sprintf("%s, cinematic still, scene moment %d of %d", req.Prompt, i+1, framesPerClip)
		data, err := a.client.GenerateImage(ctx, a.model, prompt)
		if err != nil {
			return "", NewFailure(kindFromStatus(imagen.StatusCodeOf(err)), ImageSequence, err)
		}

		framePath := filepath.Join(frameDir, fmt.Sprintf("frame_%02d.png", i))
		if err := os.WriteFile(framePath, data, 0600); err != nil {
			return "", NewFailure(KindTransient, ImageSequence, fmt.Errorf("write frame: %w", err))
		}
		framePaths = append(framePaths, framePath)
	}

	if err := a.renderer.RenderSlideshow(ctx, framePaths, req.OutputPath, req.Duration.Seconds(), req.Width, req.Height); err != nil {
		return "", NewFailure(KindTransient, ImageSequence, err)
	}

	if err := verifyArtifact(req.OutputPath); err != nil {
		return "", NewFailure(KindArtifactVerification, ImageSequence, err)
	}
	return req.OutputPath, nil
}

// Compile-time check that ImageSequenceAdapter implements Generator.
var _ Generator = (*ImageSequenceAdapter)(nil)
