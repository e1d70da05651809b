package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adanyl0v/go-todo-web/internal/models"
	"github.com/adanyl0v/go-todo-web/internal/storage"
)

type userRepository struct {
	pgPool *pgxpool.Pool
}

func NewUserRepository(pgPool *pgxpool.Pool) storage.UserRepository {
	return &userRepository{pgPool: pgPool}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	const insertUserQuery = `
INSERT INTO users (id,
                   username,
                   password,
                   created_at,
                   updated_at)
VALUES ($1, $2, $3, $4, $5)
`
	_, err := r.pgPool.Exec(
		ctx,
		insertUserQuery,
		user.ID,
		user.Username,
		user.Password,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	const selectUserByUsernameQuery = `
SELECT id,
       username,
       password,
       created_at,
       updated_at
FROM users
WHERE username = $1
`
	return scanUser(r.pgPool.QueryRow(ctx, selectUserByUsernameQuery, username))
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	const selectUserByIDQuery = `
SELECT id,
       username,
       password,
       created_at,
       updated_at
FROM users
WHERE id = $1
`
	return scanUser(r.pgPool.QueryRow(ctx, selectUserByIDQuery, id))
}

func scanUser(row pgx.Row) (*models.User, error) {
	user := new(models.User)
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}
