package app

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/adanyl0v/go-todo-web/internal/config"
	"github.com/adanyl0v/go-todo-web/internal/session"
)

const redisPingTimeout = 5 * time.Second

var (
	globalRedisClient  *redis.Client
	globalSessionStore session.Store
)

// MustOpenSessionStore sets up the browser session store selected by
// SESSION_DRIVER.
func MustOpenSessionStore() {
	cfg := config.Global()

	switch cfg.Session.Driver {
	case config.SessionDriverMemory:
		globalSessionStore = session.NewMemoryStore(cfg.Session.TTL)
		globalLogger.Info().Msg("using in-memory session store")
	case config.SessionDriverRedis:
		mustConnectRedis()
		globalSessionStore = session.NewRedisStore(globalRedisClient, cfg.Session.TTL)
	}
}

func CloseSessionStore() {
	if globalRedisClient == nil {
		return
	}
	err := globalRedisClient.Close()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Msg("failed to close redis client")
		return
	}
	globalLogger.Info().Msg("disconnected from redis")
}

func mustConnectRedis() {
	cfg := config.Global().Redis

	globalRedisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
	defer cancel()

	err := globalRedisClient.Ping(ctx).Err()
	if err != nil {
		globalLogger.Error().
			Err(err).
			Str("addr", cfg.Addr).
			Msg("failed to ping redis")
		panic(err)
	}
	globalLogger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to redis")
}
