// Package job provides the Job aggregate for clip generation plans.
// It includes the Job entity with state machine transitions, the
// repository port for persistence, and the plan generation service.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/yzamari/clipforge/internal/job/id"
	"github.com/yzamari/clipforge/internal/tier"
)

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the plan is waiting to be processed.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the plan is being processed.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates the plan finished with one artifact per clip.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the plan could not be processed at all.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the plan was cancelled; remaining clips
	// were resolved through fallback synthesis.
	StatusCancelled Status = "CANCELLED"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Clip is the per-clip record kept on the job after processing.
type Clip struct {
	// Index is the position of this clip in the plan.
	Index int
	// ArtifactPath is the local path to the produced artifact.
	ArtifactPath string
	// Tier is the tier that produced the artifact, empty for fallback.
	Tier tier.Tier
	// SizeBytes is the artifact size on disk.
	SizeBytes int64
	// Fallback reports whether the artifact came from fallback synthesis.
	Fallback bool
	// URL is the S3 URL if the artifact was uploaded.
	URL string
}

// Job represents a clip generation plan aggregate.
// It contains all state related to turning a total target duration and
// a set of prompts into a sequence of clip artifacts.
type Job struct {
	mu sync.RWMutex

	// ID is the unique identifier for this plan.
	ID string
	// Status is the current plan state.
	Status Status
	// Prompts are the generation prompts, assigned to clips round-robin.
	Prompts []string
	// TotalDuration is the requested target duration.
	TotalDuration time.Duration
	// Continuity enables frame-continuity conditioning between clips.
	Continuity bool
	// PushToS3 indicates whether to upload finished clips to S3.
	PushToS3 bool
	// TotalClips is the number of clips planned, set when processing starts.
	TotalClips int
	// DroppedRemainder is the duration lost to flooring the total to
	// whole clip units.
	DroppedRemainder time.Duration
	// Clips contains the per-clip records after processing.
	Clips []Clip
	// Generated is the number of clips produced by a generative tier.
	Generated int
	// Fallback is the number of clips resolved through fallback synthesis.
	Fallback int
	// Error contains any error message if the plan failed.
	Error string
	// CreatedAt is when the plan was created.
	CreatedAt time.Time
	// UpdatedAt is when the plan was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a new Job with a generated ID and initial IN_QUEUE status.
func New() *Job {
	return NewWithID(id.Generate())
}

// NewWithID creates a new Job with the specified ID and initial IN_QUEUE status.
// Useful for testing or when ID needs to be externally generated.
func NewWithID(planID string) *Job {
	now := time.Now()
	return &Job{
		ID:        planID,
		Status:    StatusInQueue,
		Clips:     make([]Clip, 0),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED state.
func (j *Job) Complete() error {
	return j.TransitionTo(StatusCompleted)
}

// Fail transitions the job to FAILED state with an error message.
func (j *Job) Fail(errMsg string) error {
	j.mu.Lock()
	j.Error = errMsg
	j.mu.Unlock()
	return j.TransitionTo(StatusFailed)
}

// Cancel transitions the job to CANCELLED state.
func (j *Job) Cancel() error {
	return j.TransitionTo(StatusCancelled)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetPlanShape records the clip count and dropped remainder once the
// total duration has been split into clip units.
func (j *Job) SetPlanShape(totalClips int, droppedRemainder time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.TotalClips = totalClips
	j.DroppedRemainder = droppedRemainder
	j.UpdatedAt = time.Now()
}

// SetClips records the per-clip results and the generated/fallback tallies.
func (j *Job) SetClips(clips []Clip, generated, fallback int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Clips = clips
	j.Generated = generated
	j.Fallback = fallback
	j.UpdatedAt = time.Now()
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted ||
		j.Status == StatusFailed ||
		j.Status == StatusCancelled
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	clips := make([]Clip, len(j.Clips))
	copy(clips, j.Clips)
	prompts := make([]string, len(j.Prompts))
	copy(prompts, j.Prompts)

	return &Job{
		ID:               j.ID,
		Status:           j.Status,
		Prompts:          prompts,
		TotalDuration:    j.TotalDuration,
		Continuity:       j.Continuity,
		PushToS3:         j.PushToS3,
		TotalClips:       j.TotalClips,
		DroppedRemainder: j.DroppedRemainder,
		Clips:            clips,
		Generated:        j.Generated,
		Fallback:         j.Fallback,
		Error:            j.Error,
		CreatedAt:        j.CreatedAt,
		UpdatedAt:        j.UpdatedAt,
		StartedAt:        j.StartedAt,
		CompletedAt:      j.CompletedAt,
	}
}
