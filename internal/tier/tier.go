// Package tier defines the ranked generation tiers, the Generator port
// that provider adapters implement, and the typed failure taxonomy the
// orchestrator switches on.
package tier

import (
	"context"
	"time"
)

// Tier identifies one ranked source of generated media.
type Tier string

// Tiers in static quality/cost preference order.
const (
	// PremiumVideo is the highest-quality, most quota-constrained tier.
	PremiumVideo Tier = "premium_video"
	// StandardVideo is the mid-quality video tier.
	StandardVideo Tier = "standard_video"
	// ImageSequence assembles a clip from generated still frames.
	ImageSequence Tier = "image_sequence"
	// ProceduralFallback is the deterministic last-resort tier.
	ProceduralFallback Tier = "procedural"
)

// Preference returns all tiers in static preference order.
func Preference() []Tier {
	return []Tier{PremiumVideo, StandardVideo, ImageSequence, ProceduralFallback}
}

// QuotaGated reports whether attempts against this tier consume the
// shared provider quota.
func (t Tier) QuotaGated() bool {
	switch t {
	case PremiumVideo, StandardVideo, ImageSequence:
		return true
	default:
		return false
	}
}

// Rank returns the preference rank of the tier, lower is better.
// Unknown tiers rank last.
func (t Tier) Rank() int {
	for i, p := range Preference() {
		if t == p {
			return i
		}
	}
	return len(Preference())
}

// Request carries the inputs for one generation attempt.
type Request struct {
	// Prompt is the generation prompt text.
	Prompt string
	// Duration is the target clip duration.
	Duration time.Duration
	// Width and Height are the target resolution.
	Width  int
	Height int
	// ContinuityRef is the path to a conditioning image derived from
	// the previous clip, empty when continuity is off or unavailable.
	ContinuityRef string
	// OutputPath is where the generator must place the artifact.
	OutputPath string
}

// Generator is the port a generation tier adapter implements.
// Generate is one blocking call covering the provider's submit/poll/
// fetch cycle, bounded by the adapter's own polling budget. Failures
// are reported as *Failure values so the orchestrator can switch on
// the kind.
type Generator interface {
	// Tier identifies which tier this generator serves.
	Tier() Tier

	// SupportsContinuity reports whether Generate honors ContinuityRef.
	SupportsContinuity() bool

	// Reachable reports whether the backing provider is currently
	// usable. Used by the probe; a non-nil error excludes the tier.
	Reachable(ctx context.Context) error

	// Generate produces a media artifact for the request and returns
	// its path.
	Generate(ctx context.Context, req Request) (artifactPath string, err error)
}
