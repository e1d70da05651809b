package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo-web/internal/services"
)

type registerRequest struct {
	Username string `json:"username" binding:"required,max=150"`
	Password string `json:"password" binding:"required,min=6,max=255"`
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	Refresh string `json:"refresh" binding:"required"`
}

type tokenResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func (h *handlerImpl) HandleRegister(c *gin.Context) {
	var req registerRequest
	if !h.bindJSON(c, &req) {
		return
	}

	user, err := h.auth.Register(c, services.RegisterParams{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			abortWithFieldErrors(c, verr.Fields)
		case errors.Is(err, services.ErrUserAlreadyExists):
			abortWithFieldErrors(c, map[string][]string{
				"username": {"a user with that username already exists"},
			})
		default:
			h.logger.Error().
				Err(err).
				Msg("failed to register user")
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	h.logger.Info().
		Str("user_id", user.ID).
		Msg("register request")
	c.JSON(http.StatusCreated, gin.H{"detail": "user registered successfully"})
}

func (h *handlerImpl) HandleToken(c *gin.Context) {
	var req tokenRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.auth.Login(c, services.LoginParams{
		Username: req.Username,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrUserNotFound),
			errors.Is(err, services.ErrUserPasswordMismatch):
			abort(c, newUnauthorizedError(errInvalidCredentials.Error()))
		default:
			h.logger.Error().
				Err(err).
				Msg("failed to login")
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		Access:  result.AccessToken,
		Refresh: result.RefreshToken,
	})
}

func (h *handlerImpl) HandleRefresh(c *gin.Context) {
	var req refreshRequest
	if !h.bindJSON(c, &req) {
		return
	}

	result, err := h.auth.Refresh(c, req.Refresh)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSessionNotFound),
			errors.Is(err, services.ErrSessionExpired):
			abort(c, newUnauthorizedError(errInvalidToken.Error()))
		default:
			h.logger.Error().
				Err(err).
				Msg("failed to refresh session")
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		Access:  result.AccessToken,
		Refresh: result.RefreshToken,
	})
}

func (h *handlerImpl) HandleRevoke(c *gin.Context) {
	var req refreshRequest
	// Revoking is idempotent, an unusable body has nothing to revoke.
	if err := c.ShouldBindJSON(&req); err == nil {
		err = h.auth.Revoke(c, req.Refresh)
		if err != nil {
			h.logger.Error().
				Err(err).
				Msg("failed to revoke refresh token")
			abort(c, newStatusTextError(http.StatusInternalServerError))
			return
		}
	}

	c.Status(http.StatusNoContent)
}

// bindJSON binds the request body into obj and writes the 400 response
// itself when that fails.
func (h *handlerImpl) bindJSON(c *gin.Context, obj any) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	h.logger.Debug().
		Err(err).
		Msg("failed to bind json")
	if fields, ok := bindErrorFields(err); ok {
		abortWithFieldErrors(c, fields)
	} else {
		abort(c, newBadRequestError(errInvalidRequestBody.Error()))
	}
	return false
}
