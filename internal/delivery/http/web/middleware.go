package web

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo-web/internal/gateway"
	"github.com/adanyl0v/go-todo-web/internal/session"
)

const sessionCtxKey = "session"

const loginRequiredMessage = "You must log in to continue."

// HandleSessions loads the browser session before the handler runs and
// persists it afterwards.
func (h *handlerImpl) HandleSessions(c *gin.Context) {
	sess := h.sessions.Load(c.Request)
	h.sessions.WriteCookie(c.Writer, sess)
	c.Set(sessionCtxKey, sess)

	c.Next()

	if err := h.sessions.Save(c.Request.Context(), sess); err != nil {
		h.logger.Error().
			Err(err).
			Str("session_id", sess.ID()).
			Msg("failed to save session")
	}
}

func (h *handlerImpl) HandleRequireSession(c *gin.Context) {
	sess := currentSession(c)
	if !sess.IsAuthenticated() {
		sess.AddFlash(gateway.LevelError, loginRequiredMessage)
		c.Redirect(http.StatusFound, loginPath)
		c.Abort()
		return
	}
	c.Next()
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionCtxKey).(*session.Session)
}
