package models

import "time"

const TitleMaxLength = 255

type Task struct {
	ID          int64
	UserID      string
	Title       string
	Description string
	Completed   bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
