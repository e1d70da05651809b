package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/adanyl0v/go-todo-web/internal/models"
	"github.com/adanyl0v/go-todo-web/internal/storage"
)

type refreshSessionRepository struct {
	db *gorm.DB
}

func NewRefreshSessionRepository(db *gorm.DB) storage.RefreshSessionRepository {
	return &refreshSessionRepository{db: db}
}

func (r *refreshSessionRepository) Create(ctx context.Context, session *models.RefreshSession) error {
	rec := refreshSessionRecord{
		ID:           session.ID,
		UserID:       session.UserID,
		RefreshToken: session.RefreshToken,
		ExpiresAt:    session.ExpiresAt,
		CreatedAt:    session.CreatedAt,
		UpdatedAt:    session.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (r *refreshSessionRepository) GetByToken(ctx context.Context, refreshToken string) (*models.RefreshSession, error) {
	var rec refreshSessionRecord
	err := r.db.WithContext(ctx).Where("refresh_token = ?", refreshToken).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select session by refresh token: %w", err)
	}
	return &models.RefreshSession{
		ID:           rec.ID,
		UserID:       rec.UserID,
		RefreshToken: rec.RefreshToken,
		ExpiresAt:    rec.ExpiresAt,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}, nil
}

func (r *refreshSessionRepository) Rotate(ctx context.Context, oldToken string, session *models.RefreshSession) error {
	res := r.db.WithContext(ctx).
		Model(&refreshSessionRecord{}).
		Where("id = ? AND refresh_token = ?", session.ID, oldToken).
		Updates(map[string]any{
			"refresh_token": session.RefreshToken,
			"expires_at":    session.ExpiresAt,
			"updated_at":    session.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to update session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (r *refreshSessionRepository) DeleteByToken(ctx context.Context, refreshToken string) error {
	err := r.db.WithContext(ctx).
		Where("refresh_token = ?", refreshToken).
		Delete(&refreshSessionRecord{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
