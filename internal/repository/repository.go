// Package repository defines the case and user stores consumed by the services,
// with a gorm (MySQL) implementation and an in-memory implementation.
package repository

import (
	"context"
	"time"

	"caseflow/internal/model"
	"caseflow/internal/policy"
)

// StatusUpdate is a validated transition to persist. The write only succeeds if
// the stored case still has ExpectedVersion and ExpectedStatus.
type StatusUpdate struct {
	ExpectedVersion int64
	ExpectedStatus  model.CaseStatus
	Status          model.CaseStatus
	AssignedTo      *string
	AssignedTeam    *string
	Event           model.WorkflowEvent
	UpdatedAt       time.Time
}

// GroupCount is one row of an aggregate count.
type GroupCount struct {
	Grp   string
	Count int64
}

// CaseRepository defines case persistence operations.
type CaseRepository interface {
	// InsertCase persists a new case together with its history.
	InsertCase(ctx context.Context, c *model.Case) error
	// FindCaseByID returns the case with its full history in order.
	FindCaseByID(ctx context.Context, id string) (*model.Case, error)
	// FindCases returns cases matching the filter, newest first, without history.
	FindCases(ctx context.Context, filter policy.Filter) ([]model.Case, error)
	// UpdateCaseStatusAndAppendHistory applies u atomically or returns ErrConflict.
	UpdateCaseStatusAndAppendHistory(ctx context.Context, id string, u StatusUpdate) error
	// NextSequence increments and returns the (caseType, year) counter.
	NextSequence(ctx context.Context, caseType model.CaseType, year int) (int64, error)
	// CountByStatus and CountByType aggregate over all cases.
	CountByStatus(ctx context.Context) ([]GroupCount, error)
	CountByType(ctx context.Context) ([]GroupCount, error)
	// CountAssignedTo counts cases currently assigned to userID.
	CountAssignedTo(ctx context.Context, userID string) (int64, error)
	// WithTransaction runs fn so that its writes commit together or not at all.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo CaseRepository) error) error
}

// UserRepository defines user persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindActive(ctx context.Context) ([]model.User, error)
}
