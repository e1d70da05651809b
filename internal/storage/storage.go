// Package storage declares the repositories the task API is built on.
// Implementations live in the postgres and sqlite subpackages.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/adanyl0v/go-todo-web/internal/models"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

type TaskRepository interface {
	// Create inserts the task and fills its ID.
	Create(ctx context.Context, task *models.Task) error

	// Get returns the task with the given id owned by userID, or ErrNotFound.
	Get(ctx context.Context, userID string, id int64) (*models.Task, error)

	// List returns one page of the tasks matching the filter together
	// with the total number of matching tasks.
	List(ctx context.Context, filter TaskFilter) ([]*models.Task, int, error)

	// Update applies the non-nil fields of upd and returns the stored task.
	Update(ctx context.Context, userID string, id int64, upd TaskUpdate, now time.Time) (*models.Task, error)

	// Toggle sets completed to *value, or flips it when value is nil,
	// in a single conditional write.
	Toggle(ctx context.Context, userID string, id int64, value *bool, now time.Time) (*models.Task, error)

	Delete(ctx context.Context, userID string, id int64) error
}

type UserRepository interface {
	// Create inserts the user; a taken username yields ErrAlreadyExists.
	Create(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type RefreshSessionRepository interface {
	Create(ctx context.Context, session *models.RefreshSession) error
	GetByToken(ctx context.Context, refreshToken string) (*models.RefreshSession, error)

	// Rotate replaces the refresh token of the session identified by
	// oldToken. It returns ErrNotFound when oldToken is no longer current.
	Rotate(ctx context.Context, oldToken string, session *models.RefreshSession) error

	DeleteByToken(ctx context.Context, refreshToken string) error
}

// TaskUpdate holds the fields of a partial update; nil means unchanged.
type TaskUpdate struct {
	Title       *string
	Description *string
	Completed   *bool
}
