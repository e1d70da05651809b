package models

import "time"

const UsernameMaxLength = 150

type User struct {
	ID        string
	Username  string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
