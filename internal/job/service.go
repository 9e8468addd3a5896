package job

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/yzamari/clipforge/internal/orchestrator"
	"github.com/yzamari/clipforge/internal/plan"
	"github.com/yzamari/clipforge/internal/storage"
)

// Runner drives one generation plan through the tier ladder and resolves
// every clip spec to exactly one result.
type Runner interface {
	Run(ctx context.Context, specs []plan.ClipSpec, outputDir string) ([]plan.ClipResult, orchestrator.Summary)
}

// GeneratePlanInput contains the input parameters for a generation plan.
type GeneratePlanInput struct {
	// Prompts are the generation prompts, assigned to clips round-robin.
	Prompts []string
	// TotalDuration is the requested target duration.
	TotalDuration time.Duration
	// Continuity enables frame-continuity conditioning between clips.
	Continuity bool
	// PushToS3 indicates whether to upload finished clips to S3.
	PushToS3 bool
}

// PlanService orchestrates the clip generation workflow.
// It coordinates the planner, the generation orchestrator, and storage,
// and keeps plan state in the repository.
//
// Plans run one at a time: the orchestrator and its quota tracker are
// single-owner, so processing is serialized behind runMu.
type PlanService struct {
	repo     Repository
	runner   Runner
	store    storage.Storage
	clipUnit time.Duration
	logger   *slog.Logger

	runMu sync.Mutex
}

// NewPlanService creates a new PlanService.
func NewPlanService(repo Repository, runner Runner, store storage.Storage, clipUnit time.Duration, logger *slog.Logger) *PlanService {
	if logger == nil {
		logger = slog.Default()
	}
	if clipUnit <= 0 {
		clipUnit = plan.DefaultClipUnit
	}
	return &PlanService{
		repo:     repo,
		runner:   runner,
		store:    store,
		clipUnit: clipUnit,
		logger:   logger,
	}
}

// CreatePlan creates a new plan and persists it to the repository.
// The plan is created in IN_QUEUE status, ready for processing.
func (s *PlanService) CreatePlan(ctx context.Context, input GeneratePlanInput) (*Job, error) {
	j := New()
	j.Prompts = input.Prompts
	j.TotalDuration = input.TotalDuration
	j.Continuity = input.Continuity
	j.PushToS3 = input.PushToS3

	s.logger.Info("creating generation plan",
		slog.String("plan_id", j.ID),
		slog.Duration("total_duration", input.TotalDuration),
		slog.Int("prompts", len(input.Prompts)),
		slog.Bool("continuity", input.Continuity),
		slog.Bool("push_to_s3", input.PushToS3),
	)

	if err := s.repo.Save(ctx, j); err != nil {
		s.logger.Error("failed to save plan",
			slog.String("plan_id", j.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return j, nil
}

// GetPlan retrieves a plan by ID.
func (s *PlanService) GetPlan(ctx context.Context, id string) (*Job, error) {
	return s.repo.FindByID(ctx, id)
}

// ListPlans returns all plans.
func (s *PlanService) ListPlans(ctx context.Context) ([]*Job, error) {
	return s.repo.List(ctx)
}

// ProcessExistingPlan runs the generation workflow for a previously
// created plan. Every clip in the plan resolves to exactly one artifact,
// falling back to synthetic clips when generation is unavailable.
//
// A cancelled context still resolves all remaining clips through
// fallback; the plan then ends CANCELLED rather than COMPLETED.
func (s *PlanService) ProcessExistingPlan(ctx context.Context, planID string) (*Job, error) {
	j, err := s.repo.FindByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	if err := j.Start(); err != nil {
		return nil, fmt.Errorf("start plan %s: %w", planID, err)
	}
	if err := s.repo.Save(ctx, j); err != nil {
		return nil, err
	}

	specs := plan.Build(j.TotalDuration, j.Prompts, plan.Options{
		ClipUnit:   s.clipUnit,
		Continuity: j.Continuity,
	})
	if len(specs) == 0 {
		return s.failPlan(ctx, j, fmt.Sprintf("total duration %s is shorter than one clip unit (%s) or no prompts given", j.TotalDuration, s.clipUnit))
	}

	if rem := plan.Remainder(j.TotalDuration, s.clipUnit); rem > 0 {
		s.logger.Warn("dropping remainder below one clip unit",
			slog.String("plan_id", j.ID),
			slog.Duration("remainder", rem),
		)
	}
	j.SetPlanShape(len(specs), plan.Remainder(j.TotalDuration, s.clipUnit))

	sessionDir, err := s.store.SessionDir(ctx, j.ID)
	if err != nil {
		return s.failPlan(ctx, j, fmt.Sprintf("create session directory: %v", err))
	}

	s.runMu.Lock()
	results, summary := s.runner.Run(ctx, specs, sessionDir)
	s.runMu.Unlock()

	clips := make([]Clip, 0, len(results))
	for _, r := range results {
		c := Clip{
			Index:        r.Spec.Index,
			ArtifactPath: r.ArtifactPath,
			Tier:         r.TierUsed,
			SizeBytes:    r.SizeBytes,
			Fallback:     r.Fallback,
		}
		if j.PushToS3 {
			key := filepath.ToSlash(filepath.Join(j.ID, filepath.Base(r.ArtifactPath)))
			// Uploads use a detached context so a cancelled plan still
			// delivers the artifacts it produced.
			url, uploadErr := s.store.UploadArtifact(context.WithoutCancel(ctx), key, r.ArtifactPath)
			if uploadErr != nil {
				s.logger.Error("failed to upload clip artifact",
					slog.String("plan_id", j.ID),
					slog.Int("clip_index", r.Spec.Index),
					slog.String("error", uploadErr.Error()),
				)
			} else {
				c.URL = url
			}
		}
		clips = append(clips, c)
	}

	j.SetClips(clips, summary.Generated, summary.Fallback)

	if ctx.Err() != nil {
		if err := j.Cancel(); err != nil {
			return nil, err
		}
	} else {
		if err := j.Complete(); err != nil {
			return nil, err
		}
	}

	s.logger.Info("plan processed",
		slog.String("plan_id", j.ID),
		slog.String("status", string(j.GetStatus())),
		slog.Int("generated", summary.Generated),
		slog.Int("fallback", summary.Fallback),
	)

	// Persist with a detached context so results survive cancellation.
	if err := s.repo.Save(context.WithoutCancel(ctx), j); err != nil {
		return nil, err
	}
	return j, nil
}

func (s *PlanService) failPlan(ctx context.Context, j *Job, msg string) (*Job, error) {
	s.logger.Error("plan failed",
		slog.String("plan_id", j.ID),
		slog.String("error", msg),
	)
	if err := j.Fail(msg); err != nil {
		return nil, err
	}
	if err := s.repo.Save(context.WithoutCancel(ctx), j); err != nil {
		return nil, err
	}
	return j, nil
}
