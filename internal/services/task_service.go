package services

import (
	"context"
	"math"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo-web/internal/models"
	"github.com/adanyl0v/go-todo-web/internal/storage"
)

type taskServiceImpl struct {
	logger zerolog.Logger
	tasks  storage.TaskRepository
	now    func() time.Time
}

func NewTaskService(
	logger zerolog.Logger,
	tasks storage.TaskRepository,
) TaskService {
	return &taskServiceImpl{
		logger: logger,
		tasks:  tasks,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *taskServiceImpl) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	title, err := normalizeTitle(params.Title)
	if err != nil {
		return nil, err
	}

	now := s.now()
	task := &models.Task{
		UserID:      params.UserID,
		Title:       title,
		Description: params.Description,
		Completed:   params.Completed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.tasks.Create(ctx, task)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", params.UserID).
			Msg("failed to insert task")
		return nil, err
	}

	s.logger.Info().
		Int64("task_id", task.ID).
		Str("user_id", task.UserID).
		Msg("created task")
	return task, nil
}

func (s *taskServiceImpl) GetTask(ctx context.Context, userID string, id int64) (*models.Task, error) {
	task, err := s.tasks.Get(ctx, userID, id)
	if err != nil {
		return nil, s.taskError(err, userID, id, "failed to select task")
	}
	s.logger.Debug().
		Int64("task_id", id).
		Str("user_id", userID).
		Msg("selected task")
	return task, nil
}

func (s *taskServiceImpl) ListTasks(ctx context.Context, params ListTasksParams) (*TaskPage, error) {
	page := params.Page
	if page == 0 {
		page = 1
	}
	if page < 0 {
		return nil, ErrInvalidPage
	}
	pageSize := storage.ClampPageSize(params.PageSize)
	// The offset must fit in an int.
	if page-1 > (math.MaxInt-1)/pageSize {
		s.logger.Debug().
			Int("page", page).
			Str("user_id", params.UserID).
			Msg("page out of range")
		return nil, ErrInvalidPage
	}

	filter := storage.TaskFilter{
		UserID:       params.UserID,
		Completed:    params.Completed,
		CreatedFrom:  params.CreatedFrom,
		CreatedUntil: params.CreatedUntil,
		UpdatedFrom:  params.UpdatedFrom,
		UpdatedUntil: params.UpdatedUntil,
		SearchTerms:  storage.SplitSearchTerms(params.Search),
		Ordering:     storage.ParseOrdering(params.Ordering),
		Limit:        pageSize,
		Offset:       (page - 1) * pageSize,
	}

	tasks, count, err := s.tasks.List(ctx, filter)
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("user_id", params.UserID).
			Msg("failed to select tasks")
		return nil, err
	}

	// Only the first page may be empty.
	if page > 1 && filter.Offset >= count {
		s.logger.Debug().
			Int("page", page).
			Int("count", count).
			Str("user_id", params.UserID).
			Msg("page out of range")
		return nil, ErrInvalidPage
	}

	s.logger.Debug().
		Int("count", count).
		Int("page", page).
		Str("user_id", params.UserID).
		Msg("selected tasks")
	return &TaskPage{
		Tasks:    tasks,
		Count:    count,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func (s *taskServiceImpl) UpdateTask(ctx context.Context, params UpdateTaskParams) (*models.Task, error) {
	upd := storage.TaskUpdate{
		Description: params.Description,
		Completed:   params.Completed,
	}
	if params.Title != nil {
		title, err := normalizeTitle(*params.Title)
		if err != nil {
			return nil, err
		}
		upd.Title = &title
	}

	task, err := s.tasks.Update(ctx, params.UserID, params.ID, upd, s.now())
	if err != nil {
		return nil, s.taskError(err, params.UserID, params.ID, "failed to update task")
	}

	s.logger.Info().
		Int64("task_id", task.ID).
		Str("user_id", task.UserID).
		Msg("updated task")
	return task, nil
}

func (s *taskServiceImpl) ToggleTask(ctx context.Context, params ToggleTaskParams) (*models.Task, error) {
	task, err := s.tasks.Toggle(ctx, params.UserID, params.ID, params.Completed, s.now())
	if err != nil {
		return nil, s.taskError(err, params.UserID, params.ID, "failed to toggle task")
	}

	s.logger.Info().
		Int64("task_id", task.ID).
		Str("user_id", task.UserID).
		Bool("completed", task.Completed).
		Msg("toggled task")
	return task, nil
}

func (s *taskServiceImpl) DeleteTask(ctx context.Context, userID string, id int64) error {
	err := s.tasks.Delete(ctx, userID, id)
	if err != nil {
		return s.taskError(err, userID, id, "failed to delete task")
	}

	s.logger.Info().
		Int64("task_id", id).
		Str("user_id", userID).
		Msg("deleted task")
	return nil
}

// taskError maps storage.ErrNotFound to ErrTaskNotFound and logs
// anything else under msg.
func (s *taskServiceImpl) taskError(err error, userID string, id int64, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		s.logger.Debug().
			Int64("task_id", id).
			Str("user_id", userID).
			Msg("task not found")
		return ErrTaskNotFound
	}

	s.logger.Error().
		Err(err).
		Int64("task_id", id).
		Str("user_id", userID).
		Msg(msg)
	return err
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)

	var verr ValidationError
	switch {
	case title == "":
		verr.add("title", "this field may not be blank")
	case utf8.RuneCountInString(title) > models.TitleMaxLength:
		verr.add("title", "ensure this field has no more than 255 characters")
	}
	if err := verr.orNil(); err != nil {
		return "", err
	}
	return title, nil
}
