// Package plan defines the clip planning model: the immutable ClipSpec
// requests produced from a total target duration and the terminal
// ClipResult records the orchestrator resolves them to.
package plan

import (
	"time"

	"github.com/yzamari/clipforge/internal/tier"
)

// DefaultClipUnit is the fixed per-clip duration the generation
// providers accept.
const DefaultClipUnit = 8 * time.Second

// ClipSpec describes one clip slot in a generation plan.
// It is immutable once created by the planner.
type ClipSpec struct {
	// Index is the zero-based position of this clip in the plan.
	Index int
	// TotalClips is the number of clips in the whole plan.
	TotalClips int
	// Duration is the target clip duration.
	Duration time.Duration
	// Prompt is the generation prompt text for this clip.
	Prompt string
	// ContinuityEnabled requests conditioning on the previous clip's
	// terminal frame where the tier supports it.
	ContinuityEnabled bool
	// ContinuityRef is the path to the conditioning image, if any.
	ContinuityRef string
}

// ClipResult is the terminal record for one ClipSpec. It is created
// exactly once per spec and never mutated afterwards.
type ClipResult struct {
	// Spec is the clip specification this result resolves.
	Spec ClipSpec
	// ArtifactPath is the path to the produced media artifact.
	ArtifactPath string
	// TierUsed is the tier that produced the artifact. Empty when the
	// artifact came from fallback synthesis.
	TierUsed tier.Tier
	// SizeBytes is the artifact size on disk.
	SizeBytes int64
	// Fallback reports whether the artifact was produced by the
	// deterministic fallback synthesizer rather than a generative tier.
	Fallback bool
}

// Options configures plan construction.
type Options struct {
	// ClipUnit is the fixed per-clip duration imposed by the providers.
	ClipUnit time.Duration
	// Continuity enables frame-continuity conditioning between clips.
	Continuity bool
}

// Build splits a total target duration into fixed-size clip specs.
// The total is floored to a whole number of clip units; any remainder
// is dropped rather than stretched. Prompts are assigned round-robin
// when there are fewer prompts than clips.
func Build(total time.Duration, prompts []string, opts Options) []ClipSpec {
	if opts.ClipUnit <= 0 || total < opts.ClipUnit || len(prompts) == 0 {
		return nil
	}

	count := int(total / opts.ClipUnit)
	specs := make([]ClipSpec, 0, count)
	for i := 0; i < count; i++ {
		specs = append(specs, ClipSpec{
			Index:             i,
			TotalClips:        count,
			Duration:          opts.ClipUnit,
			Prompt:            prompts[i%len(prompts)],
			ContinuityEnabled: opts.Continuity,
		})
	}
	return specs
}

// Remainder returns the duration dropped by flooring total to whole
// clip units. Exposed so callers can log the truncation.
func Remainder(total, unit time.Duration) time.Duration {
	if unit <= 0 {
		return 0
	}
	return total % unit
}
