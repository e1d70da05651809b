package v1

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDCtxKey = "user_id"

func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		h.logger.Debug().Msg("authorization header required")
		abort(c, newUnauthorizedError(errMissingCredentials.Error()))
		return
	}

	const bearerPrefix = "Bearer"
	scheme, accessToken, ok := strings.Cut(header, " ")
	if !ok || scheme != bearerPrefix || accessToken == "" {
		h.logger.Debug().Msg("invalid authorization header")
		abort(c, newUnauthorizedError(errInvalidToken.Error()))
		return
	}

	userID, err := h.auth.ParseAccessToken(accessToken)
	if err != nil {
		h.logger.Debug().
			Err(err).
			Msg("failed to parse access token")
		abort(c, newUnauthorizedError(errInvalidToken.Error()))
		return
	}

	c.Set(userIDCtxKey, userID)
	c.Next()
}

func getStringFromContext(c *gin.Context, key string) (string, bool) {
	value, exists := c.Get(key)
	if !exists {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}
