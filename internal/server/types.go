// Package server provides the HTTP server for the clip generation API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// CreatePlanRequest is the HTTP request body for creating a generation plan.
type CreatePlanRequest struct {
	// Prompts are the generation prompts, assigned to clips round-robin.
	Prompts []string `json:"prompts" validate:"required,min=1,dive,required"`
	// TotalDurationSec is the requested target duration in seconds.
	TotalDurationSec int `json:"total_duration_sec" validate:"required,min=1,max=3600"`
	// Continuity enables frame-continuity conditioning between clips.
	Continuity bool `json:"continuity"`
	// PushToS3 indicates whether to upload finished clips to S3.
	PushToS3 bool `json:"push_to_s3"`
}

// CreatePlanResponse is the HTTP response after creating a plan.
type CreatePlanResponse struct {
	// ID is the unique identifier for the created plan.
	ID string `json:"id"`
	// Status is the initial plan status.
	Status string `json:"status"`
}

// ClipResponse describes one clip in a plan response.
type ClipResponse struct {
	// Index is the position of this clip in the plan.
	Index int `json:"index"`
	// Tier is the tier that produced the clip, empty for fallback clips.
	Tier string `json:"tier,omitempty"`
	// Fallback reports whether the clip came from fallback synthesis.
	Fallback bool `json:"fallback"`
	// SizeBytes is the artifact size on disk.
	SizeBytes int64 `json:"size_bytes"`
	// URL is the S3 URL if the clip was uploaded.
	URL string `json:"url,omitempty"`
}

// PlanResponse is the HTTP response for getting plan details.
type PlanResponse struct {
	// ID is the unique identifier for the plan.
	ID string `json:"id"`
	// Status is the current plan status.
	Status string `json:"status"`
	// TotalClips is the number of clips planned.
	TotalClips int `json:"total_clips"`
	// DroppedRemainderSec is the duration in seconds dropped when
	// flooring the total to whole clip units.
	DroppedRemainderSec int `json:"dropped_remainder_sec,omitempty"`
	// Generated is the number of clips produced by a generative tier.
	Generated int `json:"generated"`
	// Fallback is the number of clips resolved through fallback synthesis.
	Fallback int `json:"fallback"`
	// Error contains any error message if the plan failed.
	Error string `json:"error,omitempty"`
	// Clips contains the per-clip records once processing finished.
	Clips []ClipResponse `json:"clips,omitempty"`
}

// PlanSummary is one entry in the plan list response.
type PlanSummary struct {
	// ID is the unique identifier for the plan.
	ID string `json:"id"`
	// Status is the current plan status.
	Status string `json:"status"`
	// TotalClips is the number of clips planned.
	TotalClips int `json:"total_clips"`
}

// ListPlansResponse is the HTTP response for listing plans.
type ListPlansResponse struct {
	// Plans contains one summary per known plan.
	Plans []PlanSummary `json:"plans"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
