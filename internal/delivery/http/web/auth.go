package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo-web/internal/gateway"
)

func (h *handlerImpl) HandleLoginPage(c *gin.Context) {
	if currentSession(c).IsAuthenticated() {
		c.Redirect(http.StatusFound, tasksPath)
		return
	}
	h.render(c, http.StatusOK, "login.html", gin.H{"Form": loginForm{}})
}

func (h *handlerImpl) HandleLogin(c *gin.Context) {
	sess := currentSession(c)

	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusOK, "login.html", gin.H{
			"Form":   form,
			"Errors": formErrors(err, &form),
		})
		return
	}

	resp, err := h.api.Do(c.Request.Context(), sess, gateway.Request{
		Method:    http.MethodPost,
		Path:      "/auth/token/",
		Body:      gin.H{"username": form.Username, "password": form.Password},
		Anonymous: true,
		ErrorMsg:  "Invalid username or password.",
	})
	if err != nil {
		h.handleCallError(c, err, loginPath)
		return
	}

	if resp.StatusCode == http.StatusOK {
		var tokens struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		}
		if err = resp.DecodeJSON(&tokens); err == nil && tokens.Access != "" {
			h.sessions.Renew(c.Request.Context(), c.Writer, sess)
			sess.SetTokens(tokens.Access, tokens.Refresh)
			sess.AddFlash(gateway.LevelSuccess, "Logged in successfully.")
			c.Redirect(http.StatusFound, tasksPath)
			return
		}
		h.logger.Error().
			Err(err).
			Msg("failed to decode token response")
		sess.AddFlash(gateway.LevelError, "Invalid username or password.")
	}

	form.Password = ""
	h.render(c, http.StatusOK, "login.html", gin.H{"Form": form})
}

func (h *handlerImpl) HandleRegisterPage(c *gin.Context) {
	h.render(c, http.StatusOK, "register.html", gin.H{"Form": registerForm{}})
}

func (h *handlerImpl) HandleRegister(c *gin.Context) {
	sess := currentSession(c)

	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		form.Password = ""
		h.render(c, http.StatusOK, "register.html", gin.H{
			"Form":   form,
			"Errors": formErrors(err, &form),
		})
		return
	}

	resp, err := h.api.Do(c.Request.Context(), sess, gateway.Request{
		Method:    http.MethodPost,
		Path:      "/auth/register/",
		Body:      gin.H{"username": form.Username, "password": form.Password},
		Anonymous: true,
		ErrorMsg:  "Could not create the account.",
	})
	if err != nil {
		h.handleCallError(c, err, "/register/")
		return
	}

	if resp.StatusCode == http.StatusCreated {
		sess.AddFlash(gateway.LevelSuccess, "Account created. You can log in now.")
		c.Redirect(http.StatusFound, loginPath)
		return
	}

	form.Password = ""
	data := gin.H{"Form": form}
	if resp.StatusCode == http.StatusBadRequest {
		data["Errors"] = apiFieldErrors(resp.FieldErrors())
	}
	h.render(c, http.StatusOK, "register.html", data)
}

// HandleLogout revokes the refresh token if the API can be reached and
// forgets the session either way.
func (h *handlerImpl) HandleLogout(c *gin.Context) {
	sess := currentSession(c)

	if refresh := sess.RefreshToken(); refresh != "" {
		_, err := h.api.Do(c.Request.Context(), sess, gateway.Request{
			Method:    http.MethodPost,
			Path:      "/auth/token/revoke/",
			Body:      gin.H{"refresh": refresh},
			Anonymous: true,
		})
		if err != nil {
			h.logger.Warn().
				Err(err).
				Msg("failed to revoke refresh token")
		}
	}

	sess.Clear()
	sess.AddFlash(gateway.LevelInfo, "You have been logged out.")
	c.Redirect(http.StatusFound, loginPath)
}
