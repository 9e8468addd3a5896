// Package orchestrator drives a generation plan through quota-gated,
// tier-ordered attempts. Each clip runs a small state machine: wait on
// the quota tracker, attempt the preferred tier, retry or advance on
// classified failures, and fall back to deterministic synthesis when
// every tier is spent. The orchestrator never returns an error for an
// individual clip; every ClipSpec resolves to exactly one ClipResult.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/yzamari/clipforge/internal/continuity"
	"github.com/yzamari/clipforge/internal/fallback"
	"github.com/yzamari/clipforge/internal/plan"
	"github.com/yzamari/clipforge/internal/probe"
	"github.com/yzamari/clipforge/internal/quota"
	"github.com/yzamari/clipforge/internal/tier"
)

// Defaults for the per-tier retry policy.
const (
	// DefaultMaxAttempts is the per-tier attempt cap for transient
	// failures.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the fixed delay between same-tier retries.
	DefaultRetryDelay = 60 * time.Second
)

// Options configures the orchestrator's attempt policy and output
// resolution.
type Options struct {
	// MaxAttempts caps same-tier attempts on transient failures.
	MaxAttempts int
	// RetryDelay is the fixed wait between same-tier retries.
	RetryDelay time.Duration
	// Width and Height are the target clip resolution.
	Width  int
	Height int
}

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = DefaultMaxAttempts
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = DefaultRetryDelay
	}
	if o.Width <= 0 {
		o.Width = 720
	}
	if o.Height <= 0 {
		o.Height = 1280
	}
	return o
}

// Summary aggregates plan-level outcomes for the caller, which decides
// whether the generative-to-fallback ratio is acceptable.
type Summary struct {
	// Generated counts clips produced by a generative tier.
	Generated int
	// Fallback counts clips produced by fallback synthesis.
	Fallback int
	// PerTier counts successful clips per generative tier.
	PerTier map[tier.Tier]int
}

// attempt outcomes, used for control flow and structured logging.
type outcome string

const (
	outcomeSuccess       outcome = "success"
	outcomeQuotaRejected outcome = "quota_rejected"
	outcomeQuotaSkipped  outcome = "quota_skipped"
	outcomeTierFailed    outcome = "tier_failed"
	outcomeFatalForTier  outcome = "fatal_for_tier"
	outcomeCancelled     outcome = "cancelled"
)

// Orchestrator turns a plan of clip specifications into a plan of clip
// results. It exclusively owns the quota tracker for the session and
// runs clips strictly in order: continuity conditioning creates a data
// dependency between consecutive clips, and all tiers share one
// rate-limited budget.
type Orchestrator struct {
	prober    *probe.Prober
	tracker   *quota.Tracker
	extractor *continuity.Extractor
	synth     *fallback.Synthesizer
	opts      Options
	logger    *slog.Logger

	// sleep is the cancellable wait primitive, injectable in tests.
	sleep func(ctx context.Context, d time.Duration) error

	// tierExhausted marks tiers that rejected an attempt for quota
	// reasons; they are skipped for the rest of the session rather than
	// re-paying wait costs. sessionExhausted widens the skip to every
	// quota-gated tier once a whole clip exhausted its ladder on quota.
	// Both clear only when the tracker rolls to a new calendar day.
	tierExhausted    map[tier.Tier]bool
	sessionExhausted bool
	exhaustedDay     time.Time
}

// New creates an Orchestrator.
func New(
	prober *probe.Prober,
	tracker *quota.Tracker,
	extractor *continuity.Extractor,
	synth *fallback.Synthesizer,
	opts Options,
	logger *slog.Logger,
) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		prober:        prober,
		tracker:       tracker,
		extractor:     extractor,
		synth:         synth,
		opts:          opts.withDefaults(),
		logger:        logger,
		sleep:         sleepContext,
		tierExhausted: make(map[tier.Tier]bool),
	}
}

// Run resolves every clip spec to a result. It never returns an error:
// a plan with fallback clips is a normal terminal state, communicated
// per clip through the Fallback flag. Cancellation stops generative
// work immediately; remaining clips still resolve through fallback
// synthesis so the one-result-per-spec invariant holds.
func (o *Orchestrator) Run(ctx context.Context, specs []plan.ClipSpec, outputDir string) ([]plan.ClipResult, Summary) {
	summary := Summary{PerTier: make(map[tier.Tier]int)}
	results := make([]plan.ClipResult, 0, len(specs))

	generators := o.prober.Probe(ctx)

	nextContinuityRef := ""
	for _, spec := range specs {
		o.maybeResetSessionExhaustion()

		if spec.ContinuityEnabled {
			spec.ContinuityRef = nextContinuityRef
		}

		result := o.generateClip(ctx, spec, generators, outputDir)
		results = append(results, result)

		if result.Fallback {
			summary.Fallback++
			nextContinuityRef = ""
		} else {
			summary.Generated++
			summary.PerTier[result.TierUsed]++
			if spec.ContinuityEnabled {
				nextContinuityRef = o.extractor.ExtractLastFrame(ctx, result.ArtifactPath)
			}
		}
	}

	o.logger.Info("plan complete",
		slog.Int("clips", len(specs)),
		slog.Int("generated", summary.Generated),
		slog.Int("fallback", summary.Fallback),
	)
	return results, summary
}

// generateClip runs the per-clip state machine across the tier ladder.
func (o *Orchestrator) generateClip(ctx context.Context, spec plan.ClipSpec, generators []tier.Generator, outputDir string) plan.ClipResult {
	outputPath := clipPath(outputDir, spec.Index)
	quotaDriven := false

	for _, gen := range generators {
		if ctx.Err() != nil {
			o.logAttempt(gen.Tier(), spec.Index, 0, outcomeCancelled, 0)
			break
		}

		if gen.Tier().QuotaGated() && (o.sessionExhausted || o.tierExhausted[gen.Tier()]) {
			o.logAttempt(gen.Tier(), spec.Index, 0, outcomeQuotaSkipped, 0)
			quotaDriven = true
			continue
		}

		res, ok := o.attemptTier(ctx, gen, spec, outputPath, &quotaDriven)
		if ok {
			return res
		}
	}

	if quotaDriven && !o.sessionExhausted {
		o.sessionExhausted = true
		o.exhaustedDay = o.tracker.Day()
		o.logger.Warn("session quota exhausted, remaining clips skip quota-gated tiers",
			slog.Int("clip_index", spec.Index),
		)
	}

	// Fallback synthesis is deterministic and local; let it finish even
	// when the caller has cancelled the generative work.
	synthCtx := context.WithoutCancel(ctx)
	artifact := o.synth.Synthesize(synthCtx, spec, outputPath)
	return plan.ClipResult{
		Spec:         spec,
		ArtifactPath: artifact,
		SizeBytes:    fileSize(artifact),
		Fallback:     true,
	}
}

// attemptTier drives one tier for one clip: quota wait, bounded
// same-tier retries on transient failures, immediate advance on quota
// rejection, zero retries on fatal kinds. Returns ok=true with the
// result on success, ok=false to advance to the next tier.
func (o *Orchestrator) attemptTier(ctx context.Context, gen tier.Generator, spec plan.ClipSpec, outputPath string, quotaDriven *bool) (plan.ClipResult, bool) {
	t := gen.Tier()

	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		if t.QuotaGated() {
			if o.tracker.IsExhausted() {
				o.logAttempt(t, spec.Index, attempt, outcomeQuotaSkipped, 0)
				*quotaDriven = true
				return plan.ClipResult{}, false
			}
			wait := o.tracker.CheckAndWait()
			if wait > 0 {
				o.logger.Info("quota wait",
					slog.String("tier", string(t)),
					slog.Int("clip_index", spec.Index),
					slog.Duration("wait", wait),
				)
				if err := o.sleep(ctx, wait); err != nil {
					o.logAttempt(t, spec.Index, attempt, outcomeCancelled, wait)
					return plan.ClipResult{}, false
				}
			}
		}

		if ctx.Err() != nil {
			o.logAttempt(t, spec.Index, attempt, outcomeCancelled, 0)
			return plan.ClipResult{}, false
		}

		req := tier.Request{
			Prompt:     spec.Prompt,
			Duration:   spec.Duration,
			Width:      o.opts.Width,
			Height:     o.opts.Height,
			OutputPath: outputPath,
		}
		if spec.ContinuityEnabled && gen.SupportsContinuity() {
			req.ContinuityRef = spec.ContinuityRef
		}

		artifact, err := gen.Generate(ctx, req)
		if err == nil {
			if t.QuotaGated() {
				o.tracker.RecordSuccess()
			}
			o.logAttempt(t, spec.Index, attempt, outcomeSuccess, 0)
			return plan.ClipResult{
				Spec:         spec,
				ArtifactPath: artifact,
				TierUsed:     t,
				SizeBytes:    fileSize(artifact),
			}, true
		}

		kind := tier.KindOf(err)
		switch {
		case kind == tier.KindQuotaExceeded:
			// Never retry the same tier on a quota rejection, and skip
			// this tier for the rest of the session.
			o.tracker.RecordQuotaRejection()
			o.tierExhausted[t] = true
			o.exhaustedDay = o.tracker.Day()
			*quotaDriven = true
			o.logAttempt(t, spec.Index, attempt, outcomeQuotaRejected, 0)
			return plan.ClipResult{}, false

		case tier.FatalForTier(kind):
			// Misconfiguration, not load: waiting cannot fix it.
			o.logger.Error("tier attempt fatal",
				slog.String("tier", string(t)),
				slog.Int("clip_index", spec.Index),
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()),
			)
			o.logAttempt(t, spec.Index, attempt, outcomeFatalForTier, 0)
			return plan.ClipResult{}, false

		default:
			// Transient or artifact verification: bounded same-tier
			// retries with a fixed delay.
			o.logger.Warn("tier attempt failed",
				slog.String("tier", string(t)),
				slog.Int("clip_index", spec.Index),
				slog.Int("attempt", attempt),
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()),
			)
			if attempt < o.opts.MaxAttempts {
				if err := o.sleep(ctx, o.opts.RetryDelay); err != nil {
					o.logAttempt(t, spec.Index, attempt, outcomeCancelled, o.opts.RetryDelay)
					return plan.ClipResult{}, false
				}
			}
		}
	}

	o.logAttempt(t, spec.Index, o.opts.MaxAttempts, outcomeTierFailed, 0)
	return plan.ClipResult{}, false
}

// maybeResetSessionExhaustion clears the exhaustion marks when the
// tracker has rolled to a new calendar day.
func (o *Orchestrator) maybeResetSessionExhaustion() {
	if !o.sessionExhausted && len(o.tierExhausted) == 0 {
		return
	}
	if !o.tracker.Day().Equal(o.exhaustedDay) {
		o.sessionExhausted = false
		o.tierExhausted = make(map[tier.Tier]bool)
		o.logger.Info("new day, session quota exhaustion cleared")
	}
}

// logAttempt emits the per-attempt structured event used for quota
// health diagnosis.
func (o *Orchestrator) logAttempt(t tier.Tier, clipIndex, attempt int, out outcome, wait time.Duration) {
	o.logger.Info("generation attempt",
		slog.String("tier", string(t)),
		slog.Int("clip_index", clipIndex),
		slog.Int("attempt", attempt),
		slog.String("outcome", string(out)),
		slog.Duration("wait", wait),
	)
}

// sleepContext blocks for d or until ctx is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func clipPath(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("clip_%03d.mp4", index))
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
