package config

import "time"

const (
	EnvDev   = "dev"
	EnvProd  = "prod"
	EnvLocal = "local"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverSQLite   = "sqlite"

	SessionDriverMemory = "memory"
	SessionDriverRedis  = "redis"
)

var globalConfig *Config

func Global() *Config {
	return globalConfig
}

func SetGlobal(cfg *Config) {
	globalConfig = cfg
}

type Config struct {
	Env      string `env:"ENV" env-required:"true"`
	HTTP     HTTPConfig
	Storage  StorageConfig
	Postgres PostgresConfig
	SQLite   SQLiteConfig
	JWT      JWTConfig
	Web      WebConfig
	API      APIConfig
	Session  SessionConfig
	Redis    RedisConfig
}

// HTTPConfig configures the task API listener.
type HTTPConfig struct {
	Host            string        `env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `env:"HTTP_PORT" env-default:"8000"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

type StorageConfig struct {
	Driver string `env:"STORAGE_DRIVER" env-default:"postgres"`
}

type PostgresConfig struct {
	Host           string        `env:"POSTGRES_HOST" env-default:"localhost"`
	Port           int           `env:"POSTGRES_PORT" env-default:"5432"`
	Username       string        `env:"POSTGRES_USERNAME" env-default:"postgres"`
	Password       string        `env:"POSTGRES_PASSWORD"`
	Database       string        `env:"POSTGRES_DATABASE" env-default:"todo"`
	SSLMode        string        `env:"POSTGRES_SSL_MODE" env-default:"disable"`
	ConnectTimeout time.Duration `env:"POSTGRES_CONNECT_TIMEOUT" env-default:"10s"`
	PingTimeout    time.Duration `env:"POSTGRES_PING_TIMEOUT" env-default:"10s"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH" env-default:"todo.db"`
}

type JWTConfig struct {
	Issuer          string        `env:"JWT_ISSUER" env-default:"go-todo-web"`
	SigningKey      string        `env:"JWT_SIGNING_KEY"`
	AccessTokenTTL  time.Duration `env:"JWT_ACCESS_TOKEN_TTL" env-default:"5m"`
	RefreshTokenTTL time.Duration `env:"JWT_REFRESH_TOKEN_TTL" env-default:"24h"`
}

// WebConfig configures the front-end listener.
type WebConfig struct {
	Host            string        `env:"WEB_HOST" env-default:"0.0.0.0"`
	Port            string        `env:"WEB_PORT" env-default:"8080"`
	ShutdownTimeout time.Duration `env:"WEB_SHUTDOWN_TIMEOUT" env-default:"5s"`
}

// APIConfig is what the front end needs to know about the task API.
type APIConfig struct {
	BaseURL     string        `env:"API_BASE_URL" env-default:"http://localhost:8000/api"`
	RefreshPath string        `env:"API_REFRESH_PATH" env-default:"/auth/token/refresh/"`
	Timeout     time.Duration `env:"API_TIMEOUT" env-default:"6s"`
}

type SessionConfig struct {
	Driver       string        `env:"SESSION_DRIVER" env-default:"memory"`
	CookieName   string        `env:"SESSION_COOKIE_NAME" env-default:"todo_session"`
	TTL          time.Duration `env:"SESSION_TTL" env-default:"336h"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" env-default:"false"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" env-default:"0"`
}
