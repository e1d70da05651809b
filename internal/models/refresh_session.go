package models

import "time"

// RefreshSession is the server-side record behind an issued refresh token.
type RefreshSession struct {
	ID           string
	UserID       string
	RefreshToken string
	ExpiresAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
