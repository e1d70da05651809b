package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
)

type refreshResult int

const (
	refreshSucceeded refreshResult = iota
	// refreshRejected means the session was cleared and the user has to
	// log in again.
	refreshRejected
	// refreshUnreachable leaves the session as it was.
	refreshUnreachable
)

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// refresh exchanges the session's refresh token for a new access token.
func (c *Client) refresh(ctx context.Context, sess Session) refreshResult {
	refreshToken := sess.RefreshToken()
	if refreshToken == "" {
		c.logger.Debug().Msg("no refresh token in session")
		sess.Clear()
		return refreshRejected
	}

	body, err := json.Marshal(refreshRequest{Refresh: refreshToken})
	if err != nil {
		c.logger.Error().
			Err(err).
			Msg("failed to encode refresh request")
		return refreshUnreachable
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.refreshURL, bytes.NewReader(body))
	if err != nil {
		c.logger.Error().
			Err(err).
			Msg("failed to build refresh request")
		return refreshUnreachable
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.exchange(httpReq)
	if err != nil {
		return refreshUnreachable
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Info().
			Int("status", resp.StatusCode).
			Msg("refresh rejected, clearing session")
		sess.Clear()
		return refreshRejected
	}

	var tokens refreshResponse
	err = resp.DecodeJSON(&tokens)
	if err != nil || tokens.Access == "" {
		c.logger.Warn().
			Err(err).
			Msg("unusable refresh response, clearing session")
		sess.Clear()
		return refreshRejected
	}

	if tokens.Refresh == "" {
		tokens.Refresh = refreshToken
	}
	sess.SetTokens(tokens.Access, tokens.Refresh)

	c.logger.Debug().Msg("refreshed access token")
	return refreshSucceeded
}
