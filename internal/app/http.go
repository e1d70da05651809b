package app

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-todo-web/internal/config"
	v1 "github.com/adanyl0v/go-todo-web/internal/delivery/http/v1"
	"github.com/adanyl0v/go-todo-web/internal/delivery/http/web"
	"github.com/adanyl0v/go-todo-web/internal/gateway"
	"github.com/adanyl0v/go-todo-web/internal/services"
	"github.com/adanyl0v/go-todo-web/internal/session"
)

// MustListenAndServeAPI serves the task API until SIGINT or SIGTERM.
func MustListenAndServeAPI() {
	cfg := config.Global()
	if cfg.JWT.SigningKey == "" {
		globalLogger.Error().Msg("JWT_SIGNING_KEY is not set")
		panic("JWT_SIGNING_KEY is not set")
	}

	authService := services.NewAuthService(
		globalLogger,
		globalRepositories.users,
		globalRepositories.sessions,
		cfg.JWT.Issuer,
		[]byte(cfg.JWT.SigningKey),
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
	)
	taskService := services.NewTaskService(globalLogger, globalRepositories.tasks)

	router := newRouter(cfg)
	v1.RegisterRoutes(router, v1.New(globalLogger, authService, taskService))

	mustListenAndServe("api", cfg.HTTP.Host, cfg.HTTP.Port, cfg.HTTP.ShutdownTimeout, router)
}

// MustListenAndServeWeb serves the front end until SIGINT or SIGTERM.
func MustListenAndServeWeb() {
	cfg := config.Global()

	client := gateway.NewClient(
		globalLogger,
		cfg.API.BaseURL,
		cfg.API.RefreshPath,
		cfg.API.Timeout,
	)
	manager := session.NewManager(
		globalLogger,
		globalSessionStore,
		cfg.Session.CookieName,
		cfg.Session.TTL,
		cfg.Session.CookieSecure,
	)

	router := newRouter(cfg)
	err := web.RegisterRoutes(router, web.New(globalLogger, client, manager))
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to register web routes")
		panic(err)
	}

	mustListenAndServe("web", cfg.Web.Host, cfg.Web.Port, cfg.Web.ShutdownTimeout, router)
}

func newRouter(cfg *config.Config) *gin.Engine {
	if cfg.Env != config.EnvLocal {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(requestLogger(globalLogger))
	router.Use(gin.Recovery())
	return router
}

func mustListenAndServe(
	name string,
	host string,
	port string,
	shutdownTimeout time.Duration,
	handler http.Handler,
) {
	server := &http.Server{
		Addr:              net.JoinHostPort(host, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		globalLogger.Info().
			Str("server", name).
			Str("host", host).
			Str("port", port).
			Msg("setting up http server")
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			globalLogger.Error().
				Err(err).
				Str("server", name).
				Msg("failed to listen and serve http")
			panic(err)
		}
	}()

	// kill -9 can't be caught, so only SIGINT and SIGTERM are handled.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	globalLogger.Info().
		Str("server", name).
		Msg("shutting down http server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := server.Shutdown(ctx)
	if err != nil {
		globalLogger.Error().
			Err(err).
			Str("server", name).
			Msg("failed to shutdown http server")
		panic(err)
	}
	globalLogger.Info().
		Str("server", name).
		Msg("shut down http server")
}
