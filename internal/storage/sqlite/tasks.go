package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/adanyl0v/go-todo-web/internal/models"
	"github.com/adanyl0v/go-todo-web/internal/storage"
)

type taskRepository struct {
	db *gorm.DB
}

func NewTaskRepository(db *gorm.DB) storage.TaskRepository {
	return &taskRepository{db: db}
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	rec := taskRecord{
		UserID:      task.UserID,
		Title:       task.Title,
		Description: task.Description,
		Completed:   task.Completed,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	task.ID = rec.ID
	return nil
}

func (r *taskRepository) Get(ctx context.Context, userID string, id int64) (*models.Task, error) {
	return r.get(r.db.WithContext(ctx), userID, id)
}

func (r *taskRepository) get(tx *gorm.DB, userID string, id int64) (*models.Task, error) {
	var rec taskRecord
	err := tx.Where("id = ? AND user_id = ?", id, userID).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select task: %w", err)
	}
	return rec.toModel(), nil
}

func (r *taskRepository) List(ctx context.Context, filter storage.TaskFilter) ([]*models.Task, int, error) {
	query := r.db.WithContext(ctx).Model(&taskRecord{}).Where("user_id = ?", filter.UserID)
	if filter.Completed != nil {
		query = query.Where("completed = ?", *filter.Completed)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", filter.CreatedFrom.UTC())
	}
	if filter.CreatedUntil != nil {
		query = query.Where("created_at < ?", filter.CreatedUntil.UTC())
	}
	if filter.UpdatedFrom != nil {
		query = query.Where("updated_at >= ?", filter.UpdatedFrom.UTC())
	}
	if filter.UpdatedUntil != nil {
		query = query.Where("updated_at < ?", filter.UpdatedUntil.UTC())
	}
	for _, term := range filter.SearchTerms {
		pattern := "%" + storage.EscapeLike(term) + "%"
		query = query.Where(`(title LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	// A new session makes the filtered query reusable for count and find.
	query = query.Session(&gorm.Session{})

	var count int64
	err := query.Count(&count).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	if count == 0 {
		return []*models.Task{}, 0, nil
	}

	ordering := filter.Ordering
	if len(ordering) == 0 {
		ordering = storage.ParseOrdering("")
	}
	find := query
	for _, f := range ordering {
		find = find.Order(clause.OrderByColumn{Column: clause.Column{Name: f.Column}, Desc: f.Desc})
	}

	var recs []taskRecord
	err = find.Limit(storage.ClampPageSize(filter.Limit)).Offset(filter.Offset).Find(&recs).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to select tasks: %w", err)
	}

	tasks := make([]*models.Task, len(recs))
	for i := range recs {
		tasks[i] = recs[i].toModel()
	}
	return tasks, int(count), nil
}

func (r *taskRepository) Update(
	ctx context.Context,
	userID string,
	id int64,
	upd storage.TaskUpdate,
	now time.Time,
) (*models.Task, error) {
	values := map[string]any{"updated_at": now.UTC()}
	if upd.Title != nil {
		values["title"] = *upd.Title
	}
	if upd.Description != nil {
		values["description"] = *upd.Description
	}
	if upd.Completed != nil {
		values["completed"] = *upd.Completed
	}
	return r.updateAndFetch(ctx, userID, id, values)
}

func (r *taskRepository) Toggle(
	ctx context.Context,
	userID string,
	id int64,
	value *bool,
	now time.Time,
) (*models.Task, error) {
	values := map[string]any{"updated_at": now.UTC()}
	if value != nil {
		values["completed"] = *value
	} else {
		values["completed"] = gorm.Expr("NOT completed")
	}
	return r.updateAndFetch(ctx, userID, id, values)
}

// updateAndFetch writes and re-reads the row inside one transaction so
// the returned task is the one this write produced.
func (r *taskRepository) updateAndFetch(
	ctx context.Context,
	userID string,
	id int64,
	values map[string]any,
) (*models.Task, error) {
	var task *models.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&taskRecord{}).
			Where("id = ? AND user_id = ?", id, userID).
			Updates(values)
		if res.Error != nil {
			return fmt.Errorf("failed to update task: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return storage.ErrNotFound
		}

		var err error
		task, err = r.get(tx, userID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (r *taskRepository) Delete(ctx context.Context, userID string, id int64) error {
	res := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&taskRecord{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (rec *taskRecord) toModel() *models.Task {
	return &models.Task{
		ID:          rec.ID,
		UserID:      rec.UserID,
		Title:       rec.Title,
		Description: rec.Description,
		Completed:   rec.Completed,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
}
