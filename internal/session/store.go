// Package session keeps browser session state on the server: the API
// tokens of a logged-in user and the flash messages waiting to be shown.
// The browser only holds an opaque session id in a cookie.
package session

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("session not found")

type Flash struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Data is what a Store persists for one session id.
type Data struct {
	AccessToken  string  `json:"access_token,omitempty"`
	RefreshToken string  `json:"refresh_token,omitempty"`
	Flashes      []Flash `json:"flashes,omitempty"`
}

func (d *Data) empty() bool {
	return d.AccessToken == "" && d.RefreshToken == "" && len(d.Flashes) == 0
}

type Store interface {
	// Get returns ErrNotFound for unknown or expired ids.
	Get(ctx context.Context, id string) (*Data, error)
	Save(ctx context.Context, id string, data *Data) error
	Delete(ctx context.Context, id string) error
}
