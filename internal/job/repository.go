package job

import (
	"context"
	"errors"
)

// ErrJobNotFound is returned when a plan cannot be found by ID.
var ErrJobNotFound = errors.New("plan not found")

// Repository defines the interface for plan persistence.
// It acts as a port in the hexagonal architecture pattern.
type Repository interface {
	// Save persists a plan to the storage.
	// If the plan already exists, it should be updated.
	Save(ctx context.Context, job *Job) error

	// FindByID retrieves a plan by its unique identifier.
	// Returns ErrJobNotFound if the plan does not exist.
	FindByID(ctx context.Context, id string) (*Job, error)

	// List returns all plans.
	List(ctx context.Context) ([]*Job, error)

	// Delete removes a plan from storage.
	// Returns ErrJobNotFound if the plan does not exist.
	Delete(ctx context.Context, id string) error
}
