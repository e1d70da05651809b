// Package gateway is the front end's client for the task API. It attaches
// the bearer token kept in the browser session and, when the API answers
// 401, refreshes the token once and replays the request once.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	// ErrAuthRequired means the caller has to send the user to the login page.
	ErrAuthRequired = errors.New("authentication required")
	// ErrConnection means the API could not be reached. No response exists.
	ErrConnection = errors.New("api unreachable")
)

// Flash levels passed to Session.AddFlash.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelError   = "error"
)

const (
	defaultErrorMessage = "The request could not be completed."
	connectionMessage   = "Could not connect to the task service. Please try again later."
	loginMessage        = "You must log in to continue."
	expiredMessage      = "Your session has expired. Please log in again."
)

// Session is the token store of one browser session together with a sink
// for user-facing notifications.
type Session interface {
	AccessToken() string
	RefreshToken() string
	SetTokens(access, refresh string)
	// Clear drops every value held by the session.
	Clear()
	AddFlash(level, message string)
}

// Request is one logical call to the API.
type Request struct {
	Method string
	// Path is joined to the base URL, e.g. "/42/toggle/".
	Path  string
	Body  any
	Query url.Values
	// Anonymous calls carry no token and never trigger a refresh.
	Anonymous bool
	// SuccessMsg, when set, is flashed on a 2xx response.
	SuccessMsg string
	// ErrorMsg replaces the default message, which carries the status
	// code, flashed on other responses.
	ErrorMsg string
}

// Client calls the task API on behalf of browser sessions.
type Client struct {
	logger     zerolog.Logger
	httpClient *http.Client
	baseURL    string
	refreshURL string
}

// NewClient returns a client for the API at baseURL. refreshPath is
// joined to baseURL unless it is an absolute URL itself.
func NewClient(
	logger zerolog.Logger,
	baseURL string,
	refreshPath string,
	timeout time.Duration,
) *Client {
	c := &Client{
		logger:     logger,
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	c.refreshURL = refreshPath
	if u, err := url.Parse(refreshPath); err != nil || !u.IsAbs() {
		c.refreshURL = c.url(refreshPath, nil)
	}
	return c
}

// Do performs req on behalf of sess. HTTP failures are not errors: any
// response that arrives is returned. The error is ErrAuthRequired when the
// user must log in again and ErrConnection when the API was unreachable.
func (c *Client) Do(ctx context.Context, sess Session, req Request) (*Response, error) {
	if !req.Anonymous && sess.AccessToken() == "" {
		sess.AddFlash(LevelError, loginMessage)
		return nil, ErrAuthRequired
	}

	var body []byte
	if req.Body != nil {
		var err error
		body, err = json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
	}

	var (
		resp *Response
		err  error
		st   = stateInitial
	)
	for st != stateDone {
		var o outcome
		switch st {
		case stateInitial, stateRetried:
			token := ""
			if !req.Anonymous {
				token = sess.AccessToken()
			}
			resp, err = c.send(ctx, req, body, token)
			switch {
			case err != nil:
				o = outcomeTransportFailure
			case resp.StatusCode == http.StatusUnauthorized && !req.Anonymous:
				o = outcomeUnauthorized
			default:
				o = outcomeResponse
			}
		case stateAwaitingRefresh:
			switch c.refresh(ctx, sess) {
			case refreshSucceeded:
				o = outcomeRefreshed
			case refreshRejected:
				resp, err = nil, ErrAuthRequired
				o = outcomeRefreshRejected
			case refreshUnreachable:
				resp, err = nil, ErrConnection
				o = outcomeRefreshUnreachable
			}
		}

		next := transition(st, o)
		c.logger.Trace().
			Stringer("from", st).
			Stringer("outcome", o).
			Stringer("to", next).
			Msg("api call state")
		st = next
	}

	switch {
	case errors.Is(err, ErrConnection):
		sess.AddFlash(LevelError, connectionMessage)
		return nil, err
	case errors.Is(err, ErrAuthRequired):
		sess.AddFlash(LevelError, expiredMessage)
		return nil, err
	case err != nil:
		return nil, err
	}

	if resp.OK() {
		if req.SuccessMsg != "" {
			sess.AddFlash(LevelSuccess, req.SuccessMsg)
		}
	} else {
		msg := req.ErrorMsg
		if msg == "" {
			msg = fmt.Sprintf("%s (HTTP %d)", defaultErrorMessage, resp.StatusCode)
		}
		sess.AddFlash(LevelError, msg)
	}
	return resp, nil
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + "/" + strings.TrimPrefix(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// send performs a single HTTP exchange. Transport failures, timeouts
// included, come back wrapped in ErrConnection.
func (c *Client) send(ctx context.Context, req Request, body []byte, token string) (*Response, error) {
	target := c.url(req.Path, req.Query)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build api request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	return c.exchange(httpReq)
}

func (c *Client) exchange(httpReq *http.Request) (*Response, error) {
	c.logger.Info().
		Str("method", httpReq.Method).
		Str("url", httpReq.URL.String()).
		Bool("auth", httpReq.Header.Get("Authorization") != "").
		Msg("web -> api")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("method", httpReq.Method).
			Str("url", httpReq.URL.String()).
			Msg("api request failed")
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodySize))
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("url", httpReq.URL.String()).
			Msg("failed to read api response")
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       body,
	}

	event := c.logger.Info()
	if !resp.OK() {
		event = c.logger.Warn()
	}
	event.
		Str("method", httpReq.Method).
		Str("url", httpReq.URL.String()).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("api -> web")
	return resp, nil
}
