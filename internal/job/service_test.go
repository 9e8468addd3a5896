package job

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/yzamari/clipforge/internal/orchestrator"
	"github.com/yzamari/clipforge/internal/plan"
	"github.com/yzamari/clipforge/internal/tier"
)

// stubRunner resolves every spec to a premium-tier artifact, optionally
// marking some indices as fallback.
type stubRunner struct {
	fallbackFrom int // clips at or past this index are fallback; -1 for none
	specs        []plan.ClipSpec
	outputDir    string
}

func (r *stubRunner) Run(_ context.Context, specs []plan.ClipSpec, outputDir string) ([]plan.ClipResult, orchestrator.Summary) {
	r.specs = specs
	r.outputDir = outputDir

	results := make([]plan.ClipResult, 0, len(specs))
	summary := orchestrator.Summary{PerTier: make(map[tier.Tier]int)}
	for _, spec := range specs {
		res := plan.ClipResult{
			Spec:         spec,
			ArtifactPath: filepath.Join(outputDir, fmt.Sprintf("clip_%03d.mp4", spec.Index)),
			SizeBytes:    2048,
		}
		if r.fallbackFrom >= 0 && spec.Index >= r.fallbackFrom {
			res.Fallback = true
			summary.Fallback++
		} else {
			res.TierUsed = "premium_video"
			summary.Generated++
		}
		results = append(results, res)
	}
	return results, summary
}

// stubStorage keeps session dirs in memory and fabricates upload URLs.
type stubStorage struct {
	uploadErr error
	uploads   []string
}

func (s *stubStorage) SessionDir(_ context.Context, planID string) (string, error) {
	return "/tmp/clipforge-test/" + planID, nil
}

func (s *stubStorage) UploadArtifact(_ context.Context, key, _ string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	s.uploads = append(s.uploads, key)
	return "https://clips.s3.us-east-1.amazonaws.com/" + key, nil
}

func (s *stubStorage) Cleanup(_ context.Context, _ []string) error {
	return nil
}

func newTestService(runner Runner) (*PlanService, *MemoryRepository) {
	repo := NewMemoryRepository()
	return NewPlanService(repo, runner, &stubStorage{}, 8*time.Second, nil), repo
}

func TestPlanService_CreatePlan(t *testing.T) {
	svc, repo := newTestService(&stubRunner{fallbackFrom: -1})
	ctx := context.Background()

	input := GeneratePlanInput{
		Prompts:       []string{"a city street at dusk", "rain on a window"},
		TotalDuration: 24 * time.Second,
		Continuity:    true,
		PushToS3:      true,
	}

	j, err := svc.CreatePlan(ctx, input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if j.ID == "" {
		t.Error("expected plan ID to be set")
	}
	if j.Status != StatusInQueue {
		t.Errorf("expected status %s, got %s", StatusInQueue, j.Status)
	}
	if len(j.Prompts) != 2 {
		t.Errorf("expected 2 prompts, got %d", len(j.Prompts))
	}
	if j.TotalDuration != 24*time.Second {
		t.Errorf("expected 24s, got %s", j.TotalDuration)
	}
	if !j.Continuity {
		t.Error("expected Continuity to be true")
	}
	if !j.PushToS3 {
		t.Error("expected PushToS3 to be true")
	}

	// Verify plan was saved
	saved, err := repo.FindByID(ctx, j.ID)
	if err != nil {
		t.Fatalf("plan should be saved in repository: %v", err)
	}
	if saved.ID != j.ID {
		t.Errorf("saved plan ID mismatch: expected %s, got %s", j.ID, saved.ID)
	}
}

func TestPlanService_GetPlan_NotFound(t *testing.T) {
	svc, _ := newTestService(&stubRunner{fallbackFrom: -1})

	_, err := svc.GetPlan(context.Background(), "nonexistent")
	if err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestPlanService_ProcessExistingPlan(t *testing.T) {
	runner := &stubRunner{fallbackFrom: -1}
	svc, repo := newTestService(runner)
	ctx := context.Background()

	created, _ := svc.CreatePlan(ctx, GeneratePlanInput{
		Prompts:       []string{"a"},
		TotalDuration: 30 * time.Second,
	})

	j, err := svc.ProcessExistingPlan(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if j.Status != StatusCompleted {
		t.Errorf("expected status %s, got %s", StatusCompleted, j.Status)
	}
	if j.TotalClips != 3 {
		t.Errorf("expected 3 clips planned, got %d", j.TotalClips)
	}
	if j.DroppedRemainder != 6*time.Second {
		t.Errorf("expected 6s remainder, got %s", j.DroppedRemainder)
	}
	if len(j.Clips) != 3 {
		t.Errorf("expected 3 clip records, got %d", len(j.Clips))
	}
	if j.Generated != 3 {
		t.Errorf("expected 3 generated, got %d", j.Generated)
	}
	if len(runner.specs) != 3 {
		t.Errorf("expected runner to receive 3 specs, got %d", len(runner.specs))
	}

	// Terminal state is persisted
	saved, _ := repo.FindByID(ctx, j.ID)
	if saved.Status != StatusCompleted {
		t.Errorf("expected persisted status %s, got %s", StatusCompleted, saved.Status)
	}
}

func TestPlanService_ProcessExistingPlan_NotFound(t *testing.T) {
	svc, _ := newTestService(&stubRunner{fallbackFrom: -1})

	_, err := svc.ProcessExistingPlan(context.Background(), "nonexistent")
	if err != ErrJobNotFound {
		t.Errorf("expected ErrJobNotFound, got %v", err)
	}
}

func TestPlanService_ProcessExistingPlan_TooShort(t *testing.T) {
	svc, _ := newTestService(&stubRunner{fallbackFrom: -1})
	ctx := context.Background()

	created, _ := svc.CreatePlan(ctx, GeneratePlanInput{
		Prompts:       []string{"a"},
		TotalDuration: 5 * time.Second,
	})

	j, err := svc.ProcessExistingPlan(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Status != StatusFailed {
		t.Errorf("expected status %s, got %s", StatusFailed, j.Status)
	}
	if j.Error == "" {
		t.Error("expected error message on failed plan")
	}
}

func TestPlanService_ProcessExistingPlan_PushToS3(t *testing.T) {
	runner := &stubRunner{fallbackFrom: -1}
	repo := NewMemoryRepository()
	store := &stubStorage{}
	svc := NewPlanService(repo, runner, store, 8*time.Second, nil)
	ctx := context.Background()

	created, _ := svc.CreatePlan(ctx, GeneratePlanInput{
		Prompts:       []string{"a"},
		TotalDuration: 16 * time.Second,
		PushToS3:      true,
	})

	j, err := svc.ProcessExistingPlan(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(store.uploads))
	}
	for _, c := range j.Clips {
		if c.URL == "" {
			t.Errorf("expected clip %d to have an upload URL", c.Index)
		}
	}
}

func TestPlanService_ProcessExistingPlan_UploadFailureDoesNotFailPlan(t *testing.T) {
	runner := &stubRunner{fallbackFrom: -1}
	repo := NewMemoryRepository()
	store := &stubStorage{uploadErr: fmt.Errorf("bucket unavailable")}
	svc := NewPlanService(repo, runner, store, 8*time.Second, nil)
	ctx := context.Background()

	created, _ := svc.CreatePlan(ctx, GeneratePlanInput{
		Prompts:       []string{"a"},
		TotalDuration: 8 * time.Second,
		PushToS3:      true,
	})

	j, err := svc.ProcessExistingPlan(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Status != StatusCompleted {
		t.Errorf("expected status %s, got %s", StatusCompleted, j.Status)
	}
	if j.Clips[0].URL != "" {
		t.Error("expected no URL when upload fails")
	}
}

func TestPlanService_ProcessExistingPlan_CancelledContext(t *testing.T) {
	runner := &stubRunner{fallbackFrom: 0}
	svc, _ := newTestService(runner)

	ctx, cancel := context.WithCancel(context.Background())
	created, _ := svc.CreatePlan(ctx, GeneratePlanInput{
		Prompts:       []string{"a"},
		TotalDuration: 16 * time.Second,
	})
	cancel()

	j, err := svc.ProcessExistingPlan(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Every clip still resolves, but the plan ends CANCELLED.
	if j.Status != StatusCancelled {
		t.Errorf("expected status %s, got %s", StatusCancelled, j.Status)
	}
	if len(j.Clips) != 2 {
		t.Errorf("expected 2 clip records, got %d", len(j.Clips))
	}
	if j.Fallback != 2 {
		t.Errorf("expected 2 fallback clips, got %d", j.Fallback)
	}
}

func TestPlanService_FallbackTally(t *testing.T) {
	runner := &stubRunner{fallbackFrom: 1}
	svc, _ := newTestService(runner)
	ctx := context.Background()

	created, _ := svc.CreatePlan(ctx, GeneratePlanInput{
		Prompts:       []string{"a"},
		TotalDuration: 24 * time.Second,
	})

	j, err := svc.ProcessExistingPlan(ctx, created.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if j.Generated != 1 {
		t.Errorf("expected 1 generated, got %d", j.Generated)
	}
	if j.Fallback != 2 {
		t.Errorf("expected 2 fallback, got %d", j.Fallback)
	}
	if !j.Clips[1].Fallback {
		t.Error("expected clip 1 to be fallback")
	}
}
