package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yzamari/clipforge/internal/job"
)

// Handlers contains the HTTP handlers for the API.
type Handlers struct {
	service            *job.PlanService
	validator          *validator.Validate
	logger             *slog.Logger
	enableAsyncProcess bool
}

// HandlerOption is a function that configures a Handlers instance.
type HandlerOption func(*Handlers)

// WithAsyncProcessing enables or disables background processing.
// When disabled, CreatePlan only creates the plan and returns immediately
// without starting background processing.
func WithAsyncProcessing(enabled bool) HandlerOption {
	return func(h *Handlers) {
		h.enableAsyncProcess = enabled
	}
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(service *job.PlanService, logger *slog.Logger, opts ...HandlerOption) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handlers{
		service:            service,
		validator:          validator.New(),
		logger:             logger,
		enableAsyncProcess: true, // Default to enabled
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Health handles GET /health requests.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// CreatePlan handles POST /plans requests.
func (h *Handlers) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode request body",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, "invalid JSON body", "INVALID_JSON")
		return
	}

	// Validate request
	if err := h.validator.Struct(req); err != nil {
		h.logger.Warn("request validation failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusBadRequest, err.Error(), "VALIDATION_ERROR")
		return
	}

	input := job.GeneratePlanInput{
		Prompts:       req.Prompts,
		TotalDuration: time.Duration(req.TotalDurationSec) * time.Second,
		Continuity:    req.Continuity,
		PushToS3:      req.PushToS3,
	}

	// Create plan first (synchronously)
	created, err := h.service.CreatePlan(r.Context(), input)
	if err != nil {
		h.logger.Error("failed to create plan",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create plan", "PLAN_CREATION_FAILED")
		return
	}

	// Start processing in background with a detached context
	// Use context.WithoutCancel to prevent cancellation when the request ends
	if h.enableAsyncProcess {
		go func(ctx context.Context, planID string) {
			_, processErr := h.service.ProcessExistingPlan(ctx, planID)
			if processErr != nil {
				h.logger.Error("background processing failed",
					slog.String("plan_id", planID),
					slog.String("error", processErr.Error()),
				)
			}
		}(context.WithoutCancel(r.Context()), created.ID)
	}

	h.logger.Info("plan created",
		slog.String("plan_id", created.ID),
		slog.Int("total_duration_sec", req.TotalDurationSec),
		slog.Int("prompts", len(req.Prompts)),
	)

	writeJSON(w, http.StatusAccepted, CreatePlanResponse{
		ID:     created.ID,
		Status: string(created.Status),
	})
}

// GetPlan handles GET /plans/{id} requests.
func (h *Handlers) GetPlan(w http.ResponseWriter, r *http.Request) {
	planID := r.PathValue("id")
	if planID == "" {
		writeError(w, http.StatusBadRequest, "plan ID is required", "MISSING_PLAN_ID")
		return
	}

	found, err := h.service.GetPlan(r.Context(), planID)
	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			writeError(w, http.StatusNotFound, "plan not found", "PLAN_NOT_FOUND")
			return
		}
		h.logger.Error("failed to get plan",
			slog.String("plan_id", planID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get plan", "PLAN_FETCH_FAILED")
		return
	}

	writeJSON(w, http.StatusOK, planResponse(found))
}

// ListPlans handles GET /plans requests.
func (h *Handlers) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		h.logger.Error("failed to list plans",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list plans", "PLAN_LIST_FAILED")
		return
	}

	resp := ListPlansResponse{Plans: make([]PlanSummary, 0, len(plans))}
	for _, p := range plans {
		resp.Plans = append(resp.Plans, PlanSummary{
			ID:         p.ID,
			Status:     string(p.Status),
			TotalClips: p.TotalClips,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// planResponse maps the Job aggregate to its HTTP representation.
func planResponse(j *job.Job) PlanResponse {
	resp := PlanResponse{
		ID:                  j.ID,
		Status:              string(j.Status),
		TotalClips:          j.TotalClips,
		DroppedRemainderSec: int(j.DroppedRemainder.Seconds()),
		Generated:           j.Generated,
		Fallback:            j.Fallback,
		Error:               j.Error,
	}
	for _, c := range j.Clips {
		resp.Clips = append(resp.Clips, ClipResponse{
			Index:     c.Index,
			Tier:      string(c.Tier),
			Fallback:  c.Fallback,
			SizeBytes: c.SizeBytes,
			URL:       c.URL,
		})
	}
	return resp
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
	}
}

// writeError writes an error response in the standard format.
func writeError(w http.ResponseWriter, status int, message, code string) {
	writeJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
