package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adanyl0v/go-todo-web/internal/models"
	"github.com/adanyl0v/go-todo-web/internal/storage"
)

type refreshSessionRepository struct {
	pgPool *pgxpool.Pool
}

func NewRefreshSessionRepository(pgPool *pgxpool.Pool) storage.RefreshSessionRepository {
	return &refreshSessionRepository{pgPool: pgPool}
}

func (r *refreshSessionRepository) Create(ctx context.Context, session *models.RefreshSession) error {
	const insertSessionQuery = `
INSERT INTO refresh_sessions (id,
                              user_id,
                              refresh_token,
                              expires_at,
                              created_at,
                              updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
`
	_, err := r.pgPool.Exec(
		ctx,
		insertSessionQuery,
		session.ID,
		session.UserID,
		session.RefreshToken,
		session.ExpiresAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *refreshSessionRepository) GetByToken(ctx context.Context, refreshToken string) (*models.RefreshSession, error) {
	const selectSessionByRefreshTokenQuery = `
SELECT id,
       user_id,
       refresh_token,
       expires_at,
       created_at,
       updated_at
FROM refresh_sessions
WHERE refresh_token = $1
`
	session := new(models.RefreshSession)
	err := r.pgPool.QueryRow(
		ctx,
		selectSessionByRefreshTokenQuery,
		refreshToken,
	).Scan(
		&session.ID,
		&session.UserID,
		&session.RefreshToken,
		&session.ExpiresAt,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select session by refresh token: %w", err)
	}
	return session, nil
}

func (r *refreshSessionRepository) Rotate(ctx context.Context, oldToken string, session *models.RefreshSession) error {
	const updateSessionQuery = `
UPDATE refresh_sessions
SET refresh_token = $1,
    expires_at = $2,
    updated_at = $3
WHERE id = $4 AND refresh_token = $5
`
	tag, err := r.pgPool.Exec(
		ctx,
		updateSessionQuery,
		session.RefreshToken,
		session.ExpiresAt,
		session.UpdatedAt,
		session.ID,
		oldToken,
	)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *refreshSessionRepository) DeleteByToken(ctx context.Context, refreshToken string) error {
	const deleteSessionQuery = `
DELETE FROM refresh_sessions
       WHERE refresh_token = $1
`
	_, err := r.pgPool.Exec(ctx, deleteSessionQuery, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
