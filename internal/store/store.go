// Package store declares the transactional relational store the engine runs against.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"nafsAPI/internal/types/challenge"
	"nafsAPI/internal/types/daily_task"
	"nafsAPI/internal/types/dimension"
	"nafsAPI/internal/types/user"
)

var (
	ErrNotFound = errors.New("store: not found")
	// ErrConflict reports a uniqueness violation the caller did not expect to hit.
	ErrConflict = errors.New("store: conflict")
)

// Store runs fn inside a single transaction. The transaction commits iff fn
// returns nil; any error (or panic) rolls back every write made through tx.
type Store interface {
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

type Tx interface {
	Users
	Dimensions
	Challenges
	Enrollments
	DailyTasks
	Completions
}

type Users interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*user.User, error)
	GetUserByClerkID(ctx context.Context, clerkID string) (*user.User, error)
	// LockUser reads the user row and holds it until the transaction ends.
	LockUser(ctx context.Context, id uuid.UUID) (*user.User, error)
	UpdateProfile(ctx context.Context, clerkID string, req *user.UpdateProfileRequest) (*user.User, error)
	DeleteUserByClerkID(ctx context.Context, clerkID string) error
	UpdateStreak(ctx context.Context, id uuid.UUID, current, longest int, lastActive time.Time) error
	SetCurrentChallenge(ctx context.Context, id uuid.UUID, challengeID *uuid.UUID) error
	IncrementLevel(ctx context.Context, id uuid.UUID) (int, error)
}

type Dimensions interface {
	UpsertDimension(ctx context.Context, d *dimension.Dimension) error
	ListDimensions(ctx context.Context) ([]dimension.Dimension, error)
	GetDimension(ctx context.Context, id uuid.UUID) (*dimension.Dimension, error)
	// CreateDimensionValues inserts a baseline row per dimension, skipping existing (user, dimension) pairs.
	CreateDimensionValues(ctx context.Context, userID uuid.UUID, dimensionIDs []uuid.UUID, baseline int) error
	// IncrementDimensionValue atomically adds delta and returns the new score.
	IncrementDimensionValue(ctx context.Context, userID, dimensionID uuid.UUID, delta int) (int, error)
	ListDimensionValues(ctx context.Context, userID uuid.UUID) ([]dimension.DimensionValueWithDimension, error)
}

type Challenges interface {
	// UpsertChallenge inserts or replaces the template row and its ordered task list.
	UpsertChallenge(ctx context.Context, c *challenge.Challenge) error
	GetChallenge(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error)
	ListPredefinedChallenges(ctx context.Context) ([]challenge.Challenge, error)
}

type Enrollments interface {
	CreateUserChallenge(ctx context.Context, uc *challenge.UserChallenge) error
	GetUserChallenge(ctx context.Context, id uuid.UUID) (*challenge.UserChallenge, error)
	// GetActiveUserChallenge returns the user's enrollment that is neither completed nor abandoned.
	GetActiveUserChallenge(ctx context.Context, userID uuid.UUID) (*challenge.UserChallenge, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkAbandoned(ctx context.Context, id uuid.UUID, at time.Time) error
	// CountProgress counts scheduled instances of the enrollment (its tasks, within its window)
	// and how many of them have a completion.
	CountProgress(ctx context.Context, uc *challenge.UserChallenge) (completed, total int, err error)
}

type DailyTasks interface {
	// InsertDailyTasks skips rows whose (user, task, date) already exists and returns how many were inserted.
	InsertDailyTasks(ctx context.Context, tasks []daily_task.DailyTask) (int, error)
	GetDailyTask(ctx context.Context, id uuid.UUID) (*daily_task.DailyTaskWithStatus, error)
	// ListDailyTasks returns the user's instances with from <= date < to, ordered by date then task name.
	ListDailyTasks(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]daily_task.DailyTaskWithStatus, error)
	// LatestScheduledDay returns the most recent date before `before` holding an instance, or ErrNotFound.
	LatestScheduledDay(ctx context.Context, userID uuid.UUID, before time.Time) (time.Time, error)
}

type Completions interface {
	// InsertCompletion reports false when the daily task already has a completion.
	InsertCompletion(ctx context.Context, c *daily_task.CompletedTask) (bool, error)
}
