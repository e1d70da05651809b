package app

import (
	"gorm.io/gorm"

	"github.com/adanyl0v/go-todo-web/internal/config"
	"github.com/adanyl0v/go-todo-web/internal/storage"
	"github.com/adanyl0v/go-todo-web/internal/storage/postgres"
	"github.com/adanyl0v/go-todo-web/internal/storage/sqlite"
)

type repositories struct {
	users    storage.UserRepository
	sessions storage.RefreshSessionRepository
	tasks    storage.TaskRepository
}

var (
	globalRepositories repositories
	globalSQLiteDB     *gorm.DB
)

// MustOpenStorage connects the repositories selected by STORAGE_DRIVER.
func MustOpenStorage() {
	cfg := config.Global()

	switch cfg.Storage.Driver {
	case config.StorageDriverPostgres:
		mustConnectPostgres()
		globalRepositories = repositories{
			users:    postgres.NewUserRepository(globalPostgresPool),
			sessions: postgres.NewRefreshSessionRepository(globalPostgresPool),
			tasks:    postgres.NewTaskRepository(globalPostgresPool),
		}
	case config.StorageDriverSQLite:
		db, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			globalLogger.Error().
				Err(err).
				Str("path", cfg.SQLite.Path).
				Msg("failed to open sqlite")
			panic(err)
		}
		globalSQLiteDB = db
		globalRepositories = repositories{
			users:    sqlite.NewUserRepository(db),
			sessions: sqlite.NewRefreshSessionRepository(db),
			tasks:    sqlite.NewTaskRepository(db),
		}
		globalLogger.Info().
			Str("path", cfg.SQLite.Path).
			Msg("opened sqlite")
	}
}

func CloseStorage() {
	switch {
	case globalPostgresPool != nil:
		disconnectPostgres()
	case globalSQLiteDB != nil:
		err := sqlite.Close(globalSQLiteDB)
		if err != nil {
			globalLogger.Error().
				Err(err).
				Msg("failed to close sqlite")
			return
		}
		globalLogger.Info().Msg("closed sqlite")
	}
}
