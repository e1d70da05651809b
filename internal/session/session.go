package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Session is the state of one browser session for the duration of a
// request. Changes are kept in memory until Manager.Save.
type Session struct {
	id    string
	data  Data
	dirty bool
}

func (s *Session) ID() string { return s.id }

func (s *Session) AccessToken() string { return s.data.AccessToken }

func (s *Session) RefreshToken() string { return s.data.RefreshToken }

func (s *Session) IsAuthenticated() bool { return s.data.AccessToken != "" }

func (s *Session) SetTokens(access, refresh string) {
	s.data.AccessToken = access
	s.data.RefreshToken = refresh
	s.dirty = true
}

// Clear drops the tokens and any pending flashes.
func (s *Session) Clear() {
	s.data = Data{}
	s.dirty = true
}

func (s *Session) AddFlash(level, message string) {
	s.data.Flashes = append(s.data.Flashes, Flash{Level: level, Message: message})
	s.dirty = true
}

// PopFlashes returns the pending flashes and forgets them.
func (s *Session) PopFlashes() []Flash {
	flashes := s.data.Flashes
	if len(flashes) > 0 {
		s.data.Flashes = nil
		s.dirty = true
	}
	return flashes
}

// Manager binds sessions to requests through a cookie.
type Manager struct {
	logger       zerolog.Logger
	store        Store
	cookieName   string
	ttl          time.Duration
	cookieSecure bool
}

func NewManager(
	logger zerolog.Logger,
	store Store,
	cookieName string,
	ttl time.Duration,
	cookieSecure bool,
) *Manager {
	return &Manager{
		logger:       logger,
		store:        store,
		cookieName:   cookieName,
		ttl:          ttl,
		cookieSecure: cookieSecure,
	}
}

// Load returns the session named by the request cookie. A missing cookie,
// a malformed or unknown id and a store failure all start a fresh session.
func (m *Manager) Load(r *http.Request) *Session {
	cookie, err := r.Cookie(m.cookieName)
	if err != nil || uuid.Validate(cookie.Value) != nil {
		return m.newSession()
	}

	data, err := m.store.Get(r.Context(), cookie.Value)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.logger.Error().
				Err(err).
				Msg("failed to load session")
		}
		return m.newSession()
	}
	return &Session{id: cookie.Value, data: *data}
}

// WriteCookie sets the session cookie on the response, replacing one set
// earlier in the same response. It has to run before the body is written.
func (m *Manager) WriteCookie(w http.ResponseWriter, s *Session) {
	header := w.Header()
	cookies := header.Values("Set-Cookie")
	header.Del("Set-Cookie")
	for _, c := range cookies {
		if !strings.HasPrefix(c, m.cookieName+"=") {
			header.Add("Set-Cookie", c)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cookieName,
		Value:    s.id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		Secure:   m.cookieSecure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// Renew moves the session to a new id and drops the record stored under
// the old one. Call it before a session gains credentials.
func (m *Manager) Renew(ctx context.Context, w http.ResponseWriter, s *Session) {
	oldID := s.id
	if err := m.store.Delete(ctx, oldID); err != nil {
		m.logger.Warn().
			Err(err).
			Str("session_id", oldID).
			Msg("failed to delete renewed session")
	}

	s.id = uuid.NewString()
	s.dirty = true
	m.WriteCookie(w, s)
}

// Save persists the session if it changed. An emptied session is deleted.
func (m *Manager) Save(ctx context.Context, s *Session) error {
	if !s.dirty {
		return nil
	}

	var err error
	if s.data.empty() {
		err = m.store.Delete(ctx, s.id)
	} else {
		err = m.store.Save(ctx, s.id, &s.data)
	}
	if err != nil {
		return err
	}
	s.dirty = false
	return nil
}

func (m *Manager) newSession() *Session {
	return &Session{id: uuid.NewString()}
}
