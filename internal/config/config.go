package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session backends understood by the portal.
const (
	SessionBackendFile     = "file"
	SessionBackendRedis    = "redis"
	SessionBackendPostgres = "postgres"
	SessionBackendMemory   = "memory"
)

// Config aggregates runtime configuration for the portal and the stub API.
type Config struct {
	App      AppConfig
	API      APIConfig
	Session  SessionConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Stub     StubConfig
}

// AppConfig controls the local portal server.
type AppConfig struct {
	Name    string
	Env     string
	Host    string
	Port    string
	Version string
}

// APIConfig describes the upstream CRM REST API.
type APIConfig struct {
	BaseURL        string
	TimeoutSeconds int
}

// SessionConfig selects where the persisted session record lives.
type SessionConfig struct {
	Backend    string
	StorageKey string
	FilePath   string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string
	Format string
}

// StubConfig drives the development stub of the CRM auth API.
type StubConfig struct {
	Host                   string
	Port                   string
	JWTSecret              string
	AccessTokenTTLMinutes  int
	RefreshTokenTTLMinutes int
	BcryptCost             int
	SeedAdminEmail         string
	SeedAdminPassword      string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	backend := strings.ToLower(getEnv("SESSION_BACKEND", SessionBackendFile))
	switch backend {
	case SessionBackendFile, SessionBackendRedis, SessionBackendPostgres, SessionBackendMemory:
	default:
		return nil, fmt.Errorf("invalid SESSION_BACKEND %q", backend)
	}

	cfg := &Config{
		App: AppConfig{
			Name:    getEnv("APP_NAME", "crm-portal"),
			Env:     getEnv("APP_ENV", "development"),
			Host:    getEnv("APP_HOST", "127.0.0.1"),
			Port:    getEnv("APP_PORT", "5173"),
			Version: getEnv("APP_VERSION", "dev"),
		},
		API: APIConfig{
			BaseURL:        strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:3000/api/v1"), "/"),
			TimeoutSeconds: getEnvAsInt("API_TIMEOUT_SECONDS", 30),
		},
		Session: SessionConfig{
			Backend:    backend,
			StorageKey: getEnv("SESSION_STORAGE_KEY", "auth-storage"),
			FilePath:   getEnv("SESSION_FILE_PATH", defaultSessionFile()),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 4)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 1)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Stub: StubConfig{
			Host:                   getEnv("STUB_HOST", "127.0.0.1"),
			Port:                   getEnv("STUB_PORT", "3000"),
			JWTSecret:              getEnv("STUB_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes:  getEnvAsInt("STUB_ACCESS_TOKEN_TTL_MINUTES", 15),
			RefreshTokenTTLMinutes: getEnvAsInt("STUB_REFRESH_TOKEN_TTL_MINUTES", 60*24*7),
			BcryptCost:             getEnvAsInt("STUB_BCRYPT_COST", 10),
			SeedAdminEmail:         getEnv("STUB_SEED_ADMIN_EMAIL", "admin@example.com"),
			SeedAdminPassword:      getEnv("STUB_SEED_ADMIN_PASSWORD", "admin123"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// Addr returns the stub API bind address.
func (s StubConfig) Addr() string {
	return fmt.Sprintf("%s:%s", s.Host, s.Port)
}

// Timeout returns the per-request upper bound for upstream calls.
func (a APIConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

func defaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crm-portal/session.json"
	}
	return home + "/.crm-portal/session.json"
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
