package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/adanyl0v/go-todo-web/internal/models"
	"github.com/adanyl0v/go-todo-web/internal/storage"
)

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) storage.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	rec := userRecord{
		ID:        user.ID,
		Username:  user.Username,
		Password:  user.Password,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	err := r.db.WithContext(ctx).Create(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.take(ctx, "username = ?", username)
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.take(ctx, "id = ?", id)
}

func (r *userRepository) take(ctx context.Context, cond string, arg any) (*models.User, error) {
	var rec userRecord
	err := r.db.WithContext(ctx).Where(cond, arg).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	return &models.User{
		ID:        rec.ID,
		Username:  rec.Username,
		Password:  rec.Password,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}, nil
}
