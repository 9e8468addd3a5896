package tier

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/yzamari/clipforge/internal/veo"
)

// VideoAdapter adapts the Veo client to the Generator interface for a
// single model. The premium and standard tiers are the same client
// pointed at different models.
type VideoAdapter struct {
	client veo.Client
	tier   Tier
	model  string
}

// NewPremiumVideoAdapter creates the premium video tier generator.
func NewPremiumVideoAdapter(client veo.Client, model string) *VideoAdapter {
	return &VideoAdapter{client: client, tier: PremiumVideo, model: model}
}

// NewStandardVideoAdapter creates the standard video tier generator.
func NewStandardVideoAdapter(client veo.Client, model string) *VideoAdapter {
	return &VideoAdapter{client: client, tier: StandardVideo, model: model}
}

// Tier identifies which tier this generator serves.
func (a *VideoAdapter) Tier() Tier {
	return a.tier
}

// SupportsContinuity reports that video models accept a conditioning
// image.
func (a *VideoAdapter) SupportsContinuity() bool {
	return true
}

// Reachable reports whether the video API responds.
func (a *VideoAdapter) Reachable(ctx context.Context) error {
	return a.client.Reachable(ctx)
}

// Generate runs one submit/poll/download cycle and verifies the
// resulting artifact. Failures come back classified.
func (a *VideoAdapter) Generate(ctx context.Context, req Request) (string, error) {
	submit := veo.SubmitRequest{
		Model:           a.model,
		Prompt:          req.Prompt,
		DurationSeconds: int(req.Duration.Seconds()),
	}

	if req.ContinuityRef != "" {
		data, err := os.ReadFile(req.ContinuityRef) // #nosec G304 - path produced by the continuity extractor
		if err != nil {
			// A missing conditioning image degrades to unconditioned
			// generation, it never fails the attempt.
			submit.ImageBase64 = ""
		} else {
			submit.ImageBase64 = base64.StdEncoding.EncodeToString(data)
		}
	}

	if err := a.client.GenerateClip(ctx, submit, req.OutputPath); err != nil {
		return "", NewFailure(kindFromStatus(veo.StatusCodeOf(err)), a.tier, err)
	}

	if err := verifyArtifact(req.OutputPath); err != nil {
		return "", NewFailure(KindArtifactVerification, a.tier, err)
	}
	return req.OutputPath, nil
}

// verifyArtifact checks that the artifact exists and is plausibly
// sized.
func verifyArtifact(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("artifact missing: %w", err)
	}
	if info.Size() < MinArtifactBytes {
		return fmt.Errorf("artifact implausibly small: %d bytes", info.Size())
	}
	return nil
}

// Compile-time check that VideoAdapter implements Generator.
var _ Generator = (*VideoAdapter)(nil)
