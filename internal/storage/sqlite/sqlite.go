// Package sqlite implements the storage repositories on top of gorm and
// SQLite. It backs local runs (STORAGE_DRIVER=sqlite) and the handler tests.
package sqlite

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type userRecord struct {
	ID        string    `gorm:"primarykey;size:36"`
	Username  string    `gorm:"size:150;not null;uniqueIndex"`
	Password  string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (userRecord) TableName() string {
	return "users"
}

type refreshSessionRecord struct {
	ID           string    `gorm:"primarykey;size:36"`
	UserID       string    `gorm:"size:36;not null;index"`
	RefreshToken string    `gorm:"not null;uniqueIndex"`
	ExpiresAt    time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (refreshSessionRecord) TableName() string {
	return "refresh_sessions"
}

type taskRecord struct {
	ID          int64     `gorm:"primarykey;autoIncrement"`
	UserID      string    `gorm:"size:36;not null;index"`
	Title       string    `gorm:"size:255;not null"`
	Description string    `gorm:"not null;default:''"`
	Completed   bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (taskRecord) TableName() string {
	return "tasks"
}

// Open opens the database at path (":memory:" for a private in-memory
// database) and migrates the schema. Writes are funnelled through a single
// connection, which is also what keeps an in-memory database shared.
func Open(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(&userRecord{}, &refreshSessionRecord{}, &taskRecord{})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite database: %w", err)
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
