package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/km-arc/go-inject/framework/inject"
)

// Tag identifies the application configuration in the dependency graph.
// Configuration is an ordinary value-tag dependency: the engine has no
// special case for "environment", it is just a factory that happens to read
// one.
var Tag = inject.NewTag[*Config]("config")

// Config is the central typed configuration struct.
type Config struct {
	App   AppConfig
	DB    DBConfig
	Cache CacheConfig
}

type AppConfig struct {
	Name  string
	Env   string // local | production | testing
	Debug bool
	Port  string
}

type DBConfig struct {
	Driver   string
	Host     string
	Port     string
	Database string
	Username string
	Password string
}

type CacheConfig struct {
	Driver string
	Host   string
	Port   string
	TTL    int // seconds
}

// Load reads .env (if present) and populates a Config from environment
// variables. Call once at bootstrap, or let Layer do it lazily.
func Load(envFiles ...string) *Config {
	files := envFiles
	if len(files) == 0 {
		files = []string{".env"}
	}
	// Non-fatal: .env may not exist in production
	_ = godotenv.Load(files...)

	return &Config{
		App: AppConfig{
			Name:  env("APP_NAME", "go-inject"),
			Env:   env("APP_ENV", "local"),
			Debug: envBool("APP_DEBUG", true),
			Port:  env("APP_PORT", "8000"),
		},
		DB: DBConfig{
			Driver:   env("DB_DRIVER", "postgres"),
			Host:     env("DB_HOST", "127.0.0.1"),
			Port:     env("DB_PORT", "5432"),
			Database: env("DB_DATABASE", ""),
			Username: env("DB_USERNAME", "postgres"),
			Password: env("DB_PASSWORD", ""),
		},
		Cache: CacheConfig{
			Driver: env("CACHE_DRIVER", "memory"),
			Host:   env("CACHE_HOST", "127.0.0.1"),
			Port:   env("CACHE_PORT", "6379"),
			TTL:    GetInt("CACHE_TTL", 300),
		},
	}
}

// Layer provides the loaded configuration under Tag. It requires nothing, so
// it usually sits at the very bottom of the application layer stack.
//
//	app := services.To(repos.To(config.Layer()))
func Layer(envFiles ...string) inject.Layer {
	files := envFiles
	return inject.Service(Tag, nil, func(inject.Resolver) (*Config, error) {
		return Load(files...), nil
	})
}

// Get returns a raw env value, falling back to defaultVal.
func Get(key, defaultVal string) string {
	return env(key, defaultVal)
}

// GetInt returns an int env value.
func GetInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// GetBool returns a bool env value.
func GetBool(key string, defaultVal bool) bool {
	return envBool(key, defaultVal)
}

// ── helpers ─────────────────────────────────────────────────────────────────

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
