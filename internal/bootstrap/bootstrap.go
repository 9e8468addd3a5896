// Package bootstrap provides dependency initialization for the clip
// generation service.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yzamari/clipforge/internal/config"
	"github.com/yzamari/clipforge/internal/continuity"
	"github.com/yzamari/clipforge/internal/fallback"
	"github.com/yzamari/clipforge/internal/imagen"
	"github.com/yzamari/clipforge/internal/job"
	"github.com/yzamari/clipforge/internal/media"
	"github.com/yzamari/clipforge/internal/orchestrator"
	"github.com/yzamari/clipforge/internal/probe"
	"github.com/yzamari/clipforge/internal/quota"
	"github.com/yzamari/clipforge/internal/storage"
	"github.com/yzamari/clipforge/internal/tier"
	"github.com/yzamari/clipforge/internal/veo"
)

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	PlanService *job.PlanService
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	// Initialize storage
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	// Initialize generative API clients
	veoClient, err := veo.NewClient(
		veo.WithAPIKey(cfg.GeminiAPIKey),
		veo.WithPollBudget(cfg.PollMaxChecks, time.Duration(cfg.PollIntervalSec)*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("create video client: %w", err)
	}

	imagenClient, err := imagen.NewClient(imagen.WithAPIKey(cfg.GeminiAPIKey))
	if err != nil {
		return nil, fmt.Errorf("create image client: %w", err)
	}

	// Initialize the renderer and the generative tier ladder
	renderer := media.NewFFmpegRenderer(cfg.FFmpegPath)

	generators := []tier.Generator{
		tier.NewPremiumVideoAdapter(veoClient, cfg.PremiumVideoModel),
		tier.NewStandardVideoAdapter(veoClient, cfg.StandardVideoModel),
		tier.NewImageSequenceAdapter(imagenClient, renderer, cfg.ImageModel),
	}

	disabled := make([]tier.Tier, 0, len(cfg.DisabledTiers))
	for _, name := range cfg.DisabledTiers {
		disabled = append(disabled, tier.Tier(name))
	}
	prober := probe.NewProber(generators, logger, probe.WithDisabledTiers(disabled))

	// Initialize the quota tracker and seed it from a pre-flight probe
	tracker := quota.NewTracker(quota.Config{
		RPMLimit:   cfg.QuotaRPMLimit,
		DailyLimit: cfg.QuotaDailyLimit,
	})
	seedQuota(ctx, veoClient, cfg.PremiumVideoModel, tracker, logger)

	extractor := continuity.NewExtractor(renderer, logger)
	synth := fallback.NewSynthesizer(renderer, cfg.Width, cfg.Height, logger)

	orch := orchestrator.New(prober, tracker, extractor, synth, orchestrator.Options{
		MaxAttempts: cfg.MaxTierAttempts,
		RetryDelay:  time.Duration(cfg.RetryDelaySec) * time.Second,
		Width:       cfg.Width,
		Height:      cfg.Height,
	}, logger)

	// Initialize plan repository and service
	repo := job.NewMemoryRepository()
	svc := job.NewPlanService(repo, orch, store, time.Duration(cfg.ClipUnitSec)*time.Second, logger)

	return &Dependencies{
		PlanService: svc,
	}, nil
}

// seedQuota marks the daily budget exhausted up front when the
// pre-flight probe reports the quota is already gone. Probe failures
// are informational; the tracker learns the truth from real attempts.
func seedQuota(ctx context.Context, client veo.Client, model string, tracker *quota.Tracker, logger *slog.Logger) {
	status, err := client.CheckQuota(ctx, model)
	if err != nil {
		logger.Warn("pre-flight quota probe failed",
			slog.String("model", model),
			slog.String("error", err.Error()),
		)
		return
	}
	if status == veo.QuotaExhausted {
		tracker.MarkDayExhausted()
		logger.Warn("quota already exhausted for today",
			slog.String("model", model),
		)
	}
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.StorageDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 storage configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("storage_dir", cfg.StorageDir),
	)
	return localStore, nil
}
