package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adanyl0v/go-todo-web/internal/models"
	"github.com/adanyl0v/go-todo-web/internal/storage"
)

const taskColumns = `id,
       user_id,
       title,
       description,
       completed,
       created_at,
       updated_at`

type taskRepository struct {
	pgPool *pgxpool.Pool
}

func NewTaskRepository(pgPool *pgxpool.Pool) storage.TaskRepository {
	return &taskRepository{pgPool: pgPool}
}

func (r *taskRepository) Create(ctx context.Context, task *models.Task) error {
	const insertTaskQuery = `
INSERT INTO tasks (user_id,
                   title,
                   description,
                   completed,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`
	err := r.pgPool.QueryRow(
		ctx,
		insertTaskQuery,
		task.UserID,
		task.Title,
		task.Description,
		task.Completed,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

func (r *taskRepository) Get(ctx context.Context, userID string, id int64) (*models.Task, error) {
	const selectTaskQuery = `
SELECT ` + taskColumns + `
FROM tasks
WHERE id = $1 AND user_id = $2
`
	return scanTask(r.pgPool.QueryRow(ctx, selectTaskQuery, id, userID))
}

func (r *taskRepository) List(ctx context.Context, filter storage.TaskFilter) ([]*models.Task, int, error) {
	where, args := buildTaskWhere(filter)

	var count int
	err := r.pgPool.QueryRow(ctx, "SELECT count(*) FROM tasks WHERE "+where, args...).Scan(&count)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count tasks: %w", err)
	}
	if count == 0 {
		return []*models.Task{}, 0, nil
	}

	limit := storage.ClampPageSize(filter.Limit)
	args = append(args, limit, filter.Offset)
	selectTasksQuery := "SELECT " + taskColumns + "\nFROM tasks\nWHERE " + where +
		"\nORDER BY " + buildOrderBy(filter.Ordering) +
		"\nLIMIT $" + strconv.Itoa(len(args)-1) + " OFFSET $" + strconv.Itoa(len(args))

	rows, err := r.pgPool.Query(ctx, selectTasksQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to select tasks: %w", err)
	}
	defer rows.Close()

	tasks := make([]*models.Task, 0, limit)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, task)
	}

	err = rows.Err()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to iterate over rows: %w", err)
	}
	return tasks, count, nil
}

func (r *taskRepository) Update(
	ctx context.Context,
	userID string,
	id int64,
	upd storage.TaskUpdate,
	now time.Time,
) (*models.Task, error) {
	const updateTaskQuery = `
UPDATE tasks
SET title = COALESCE($3::varchar, title),
    description = COALESCE($4::text, description),
    completed = COALESCE($5::boolean, completed),
    updated_at = $6
WHERE id = $1 AND user_id = $2
RETURNING ` + taskColumns
	return scanTask(r.pgPool.QueryRow(
		ctx,
		updateTaskQuery,
		id,
		userID,
		upd.Title,
		upd.Description,
		upd.Completed,
		now,
	))
}

func (r *taskRepository) Toggle(
	ctx context.Context,
	userID string,
	id int64,
	value *bool,
	now time.Time,
) (*models.Task, error) {
	// The row lock taken by UPDATE makes concurrent toggles serialize:
	// each one reads the value committed by the previous one.
	const toggleTaskQuery = `
UPDATE tasks
SET completed = COALESCE($3::boolean, NOT completed),
    updated_at = $4
WHERE id = $1 AND user_id = $2
RETURNING ` + taskColumns
	return scanTask(r.pgPool.QueryRow(
		ctx,
		toggleTaskQuery,
		id,
		userID,
		value,
		now,
	))
}

func (r *taskRepository) Delete(ctx context.Context, userID string, id int64) error {
	const deleteTaskQuery = `
DELETE FROM tasks
WHERE id = $1 AND user_id = $2
`
	tag, err := r.pgPool.Exec(ctx, deleteTaskQuery, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	task := new(models.Task)
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}
	return task, nil
}

func buildTaskWhere(filter storage.TaskFilter) (string, []any) {
	args := []any{filter.UserID}
	conds := []string{"user_id = $1"}
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.Completed != nil {
		conds = append(conds, "completed = "+next(*filter.Completed))
	}
	if filter.CreatedFrom != nil {
		conds = append(conds, "created_at >= "+next(*filter.CreatedFrom))
	}
	if filter.CreatedUntil != nil {
		conds = append(conds, "created_at < "+next(*filter.CreatedUntil))
	}
	if filter.UpdatedFrom != nil {
		conds = append(conds, "updated_at >= "+next(*filter.UpdatedFrom))
	}
	if filter.UpdatedUntil != nil {
		conds = append(conds, "updated_at < "+next(*filter.UpdatedUntil))
	}
	for _, term := range filter.SearchTerms {
		p := next("%" + storage.EscapeLike(term) + "%")
		conds = append(conds, "(title ILIKE "+p+" OR description ILIKE "+p+")")
	}
	return strings.Join(conds, " AND "), args
}

// Column names come from storage.ParseOrdering's allow-list.
func buildOrderBy(fields []storage.OrderField) string {
	if len(fields) == 0 {
		fields = storage.ParseOrdering("")
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		dir := "ASC"
		if f.Desc {
			dir = "DESC"
		}
		parts = append(parts, f.Column+" "+dir)
	}
	return strings.Join(parts, ", ")
}
