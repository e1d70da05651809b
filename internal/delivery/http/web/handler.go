package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo-web/internal/gateway"
	"github.com/adanyl0v/go-todo-web/internal/session"
)

const (
	loginPath = "/login/"
	tasksPath = "/tasks/"
)

// APIClient is the part of gateway.Client the pages depend on.
type APIClient interface {
	Do(ctx context.Context, sess gateway.Session, req gateway.Request) (*gateway.Response, error)
}

type Handler interface {
	HandleSessions(c *gin.Context)
	HandleRequireSession(c *gin.Context)

	HandleIndex(c *gin.Context)
	HandleLoginPage(c *gin.Context)
	HandleLogin(c *gin.Context)
	HandleRegisterPage(c *gin.Context)
	HandleRegister(c *gin.Context)
	HandleLogout(c *gin.Context)

	HandleListTasks(c *gin.Context)
	HandleCreateTask(c *gin.Context)
	HandleTaskDetail(c *gin.Context)
	HandleEditTaskPage(c *gin.Context)
	HandleEditTask(c *gin.Context)
	HandleToggleTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)
}

type handlerImpl struct {
	logger   zerolog.Logger
	api      APIClient
	sessions *session.Manager
}

func New(logger zerolog.Logger, api APIClient, sessions *session.Manager) Handler {
	return &handlerImpl{
		logger:   logger,
		api:      api,
		sessions: sessions,
	}
}

// RegisterRoutes installs the page templates and every front-end route.
func RegisterRoutes(router *gin.Engine, h Handler) error {
	tmpl, err := parseTemplates()
	if err != nil {
		return err
	}
	router.SetHTMLTemplate(tmpl)

	router.Use(h.HandleSessions)

	router.GET("/", h.HandleIndex)
	router.GET(loginPath, h.HandleLoginPage)
	router.POST(loginPath, h.HandleLogin)
	router.GET("/register/", h.HandleRegisterPage)
	router.POST("/register/", h.HandleRegister)

	authed := router.Group("", h.HandleRequireSession)
	{
		authed.GET("/logout/", h.HandleLogout)
		authed.POST("/logout/", h.HandleLogout)

		tasks := authed.Group(tasksPath)
		tasks.GET("", h.HandleListTasks)
		tasks.POST("", h.HandleCreateTask)
		tasks.GET("/:id/", h.HandleTaskDetail)
		tasks.GET("/:id/edit/", h.HandleEditTaskPage)
		tasks.POST("/:id/edit/", h.HandleEditTask)
		tasks.POST("/:id/toggle/", h.HandleToggleTask)
		tasks.POST("/:id/delete/", h.HandleDeleteTask)
	}
	return nil
}

func (h *handlerImpl) HandleIndex(c *gin.Context) {
	if currentSession(c).IsAuthenticated() {
		c.Redirect(http.StatusFound, tasksPath)
		return
	}
	c.Redirect(http.StatusFound, loginPath)
}

// render adds the pending flashes and login state to data.
func (h *handlerImpl) render(c *gin.Context, status int, name string, data gin.H) {
	sess := currentSession(c)
	if data == nil {
		data = gin.H{}
	}
	data["Flashes"] = sess.PopFlashes()
	data["Authenticated"] = sess.IsAuthenticated()
	c.HTML(status, name, data)
}

// handleCallError turns a failed gateway call into a redirect. The
// gateway has already flashed what the user needs to know.
func (h *handlerImpl) handleCallError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, gateway.ErrAuthRequired):
		c.Redirect(http.StatusFound, loginPath)
	case errors.Is(err, gateway.ErrConnection):
		c.Redirect(http.StatusFound, fallback)
	default:
		h.logger.Error().
			Err(err).
			Str("path", c.Request.URL.Path).
			Msg("failed to call the task API")
		_ = c.AbortWithError(http.StatusInternalServerError, err)
	}
}
