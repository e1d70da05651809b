package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/adanyl0v/go-todo-web/internal/models"
)

var (
	ErrTaskNotFound         = errors.New("task not found")
	ErrInvalidPage          = errors.New("invalid page")
	ErrUserNotFound         = errors.New("user not found")
	ErrUserAlreadyExists    = errors.New("user already exists")
	ErrUserPasswordMismatch = errors.New("user password mismatch")
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionExpired       = errors.New("session expired")
	ErrInvalidToken         = errors.New("invalid token")
)

// ValidationError carries caller-correctable problems keyed by field name.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("validation failed:")
	for _, name := range names {
		b.WriteString(" ")
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.Join(e.Fields[name], "; "))
		b.WriteString(".")
	}
	return b.String()
}

func (e *ValidationError) add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], message)
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

type TaskService interface {
	// CreateTask stores a task owned by params.UserID. Any owner
	// information in the payload is ignored by construction.
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)

	// GetTask returns ErrTaskNotFound both for missing tasks and for
	// tasks owned by somebody else.
	GetTask(ctx context.Context, userID string, id int64) (*models.Task, error)

	ListTasks(ctx context.Context, params ListTasksParams) (*TaskPage, error)
	UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error)

	// ToggleTask sets completed to params.Completed when it is given and
	// flips it otherwise. The read and the write happen in one statement.
	ToggleTask(ctx context.Context, params ToggleTaskParams) (*models.Task, error)

	DeleteTask(ctx context.Context, userID string, id int64) error
}

type AuthService interface {
	// Register a user with the given username and password.
	//
	// It returns ErrUserAlreadyExists if the username is taken.
	Register(ctx context.Context, params RegisterParams) (*models.User, error)

	// Login authenticates the user by username and password and issues
	// a new access/refresh token pair.
	//
	// It returns ErrUserNotFound or ErrUserPasswordMismatch.
	Login(ctx context.Context, params LoginParams) (*LoginResult, error)

	// Refresh exchanges a refresh token for a new pair. The old refresh
	// token stops working.
	//
	// It returns ErrSessionNotFound or ErrSessionExpired.
	Refresh(ctx context.Context, refreshToken string) (*LoginResult, error)

	// Revoke invalidates the refresh token. Unknown tokens are ignored.
	Revoke(ctx context.Context, refreshToken string) error

	// ParseAccessToken validates an access token and returns the user ID
	// it was issued for, or an error wrapping ErrInvalidToken.
	ParseAccessToken(token string) (string, error)
}

type CreateTaskParams struct {
	UserID      string
	Title       string
	Description string
	Completed   bool
}

type ListTasksParams struct {
	UserID    string
	Completed *bool

	// Lower bounds are inclusive, upper bounds exclusive.
	CreatedFrom  *time.Time
	CreatedUntil *time.Time
	UpdatedFrom  *time.Time
	UpdatedUntil *time.Time

	Search   string
	Ordering string
	Page     int
	PageSize int
}

type TaskPage struct {
	Tasks    []*models.Task
	Count    int
	Page     int
	PageSize int
}

func (p *TaskPage) HasNext() bool {
	return p.Page*p.PageSize < p.Count
}

func (p *TaskPage) HasPrevious() bool {
	return p.Page > 1
}

type UpdateTaskParams struct {
	UserID      string
	ID          int64
	Title       *string
	Description *string
	Completed   *bool
}

type ToggleTaskParams struct {
	UserID    string
	ID        int64
	Completed *bool
}

type RegisterParams struct {
	Username string
	Password string
}

type LoginParams struct {
	Username string
	Password string
}

type LoginResult struct {
	UserID                string
	AccessToken           string
	AccessTokenExpiresAt  time.Time
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
}
