// ABOUTME: Store interface and data types for saved-plan persistence
// ABOUTME: Defines the Plan struct and owner-scoped CRUD operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested plan does not exist or belongs
// to a different user.
var ErrNotFound = errors.New("not found")

// Plan represents a saved itinerary owned by a single user. Stops and
// Metadata hold free-form JSON documents built by the API layer; the store
// round-trips them without inspecting their contents.
type Plan struct {
	ID            string
	UserID        string
	Name          string
	Description   *string
	Vibe          *string
	TotalDuration int
	TotalDistance float64
	Stops         []map[string]any
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Store defines persistence operations for plans. Reads, updates, and
// deletes are scoped to the owning user.
type Store interface {
	// CreatePlan persists a new plan
	CreatePlan(ctx context.Context, plan *Plan) error

	// GetPlan retrieves a plan by ID.
	// Returns ErrNotFound if the plan doesn't exist or is owned by another user.
	GetPlan(ctx context.Context, userID, planID string) (*Plan, error)

	// ListPlans retrieves all plans owned by the user, newest first
	ListPlans(ctx context.Context, userID string) ([]*Plan, error)

	// UpdatePlan overwrites an existing plan's content fields.
	// Returns ErrNotFound if the plan doesn't exist or is owned by another user.
	UpdatePlan(ctx context.Context, plan *Plan) error

	// DeletePlan removes a plan.
	// Returns ErrNotFound if the plan doesn't exist or is owned by another user.
	DeletePlan(ctx context.Context, userID, planID string) error

	// Close closes the underlying database connection
	Close() error
}
