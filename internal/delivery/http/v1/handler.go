package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/adanyl0v/go-todo-web/internal/services"
)

type Handler interface {
	HandleRegister(c *gin.Context)
	HandleToken(c *gin.Context)
	HandleRefresh(c *gin.Context)
	HandleRevoke(c *gin.Context)
	HandleAuthMiddleware(c *gin.Context)

	HandleListTasks(c *gin.Context)
	HandleCreateTask(c *gin.Context)
	HandleGetTask(c *gin.Context)
	HandleReplaceTask(c *gin.Context)
	HandlePatchTask(c *gin.Context)
	HandleToggleTask(c *gin.Context)
	HandleDeleteTask(c *gin.Context)

	HandleHealth(c *gin.Context)
}

type handlerImpl struct {
	logger zerolog.Logger
	auth   services.AuthService
	tasks  services.TaskService
}

func New(
	logger zerolog.Logger,
	authService services.AuthService,
	taskService services.TaskService,
) Handler {
	useJSONFieldNames()
	return &handlerImpl{
		logger: logger,
		auth:   authService,
		tasks:  taskService,
	}
}

// RegisterRoutes mounts the task API under /api and the health probe at
// the root of router.
func RegisterRoutes(router gin.IRouter, h Handler) {
	router.GET("/healthz", h.HandleHealth)

	api := router.Group("/api")

	authRouter := api.Group("/auth")
	authRouter.POST("/register/", h.HandleRegister)
	authRouter.POST("/token/", h.HandleToken)
	authRouter.POST("/token/refresh/", h.HandleRefresh)
	authRouter.POST("/token/revoke/", h.HandleRevoke)

	tasksRouter := api.Group("", h.HandleAuthMiddleware)
	tasksRouter.GET("/", h.HandleListTasks)
	tasksRouter.POST("/", h.HandleCreateTask)
	tasksRouter.GET("/:id/", h.HandleGetTask)
	tasksRouter.PUT("/:id/", h.HandleReplaceTask)
	tasksRouter.PATCH("/:id/", h.HandlePatchTask)
	tasksRouter.DELETE("/:id/", h.HandleDeleteTask)
	tasksRouter.PATCH("/:id/toggle/", h.HandleToggleTask)
}

func (h *handlerImpl) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
