package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/kode4food/weave/pkg/util"
)

type (
	// Config holds configuration settings for the block engine
	Config struct {
		// API Server
		APIHost  string
		APIPort  int
		LogLevel string

		// Sandbox
		ScriptLanguage string
		ScriptWorkers  int

		// LLM Cache
		Cache CacheConfig

		ShutdownTimeout time.Duration
	}

	// CacheConfig selects and configures the store backing cached dispatch
	CacheConfig struct {
		Backend    string
		Size       int
		Redis      RedisConfig
		SQLitePath string
		BlobURL    string
		BlobPrefix string
	}

	// RedisConfig holds connection settings for the redis cache store
	RedisConfig struct {
		Addr     string
		Password string
		DB       int
		Prefix   string
	}
)

const (
	CacheBackendNone   = "none"
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
	CacheBackendSQLite = "sqlite"
	CacheBackendBlob   = "blob"

	ScriptLangLua = "lua"
	ScriptLangAle = "ale"
)

const (
	DefaultShutdownTimeout = 10 * time.Second

	DefaultAPIPort = 8080
	DefaultAPIHost = "0.0.0.0"
	MaxTCPPort     = 65535

	DefaultScriptWorkers = 16
	MaxScriptWorkers     = 4096

	DefaultCacheSize    = 10240
	MaxCacheSize        = 10_000_000
	DefaultRedisAddr    = "localhost:6379"
	DefaultRedisPrefix  = "weave"
	DefaultSQLitePath   = "weave-cache.db"
	DefaultBlobPrefix   = "llm-cache/"
	MaxShutdownTimeout  = 10 * time.Minute
	defaultRedisDB      = 0
	shutdownTimeoutName = "SHUTDOWN_TIMEOUT"
)

var (
	ErrInvalidAPIPort        = errors.New("invalid API port")
	ErrInvalidScriptLanguage = errors.New("invalid script language")
	ErrInvalidScriptWorkers  = errors.New("script workers must be positive")
	ErrInvalidCacheBackend   = errors.New("invalid cache backend")
	ErrInvalidCacheSize      = errors.New("cache size must be positive")
	ErrBlobURLRequired       = errors.New("blob cache requires BLOB_URL")
	ErrSQLitePathRequired    = errors.New("sqlite cache requires SQLITE_PATH")
)

var (
	validScriptLanguages = util.SetOf(ScriptLangLua, ScriptLangAle)

	validCacheBackends = util.SetOf(
		CacheBackendNone,
		CacheBackendMemory,
		CacheBackendRedis,
		CacheBackendSQLite,
		CacheBackendBlob,
	)
)

// NewDefaultConfig creates a configuration with sensible defaults for the
// server, sandbox and cache
func NewDefaultConfig() *Config {
	return &Config{
		APIHost:        DefaultAPIHost,
		APIPort:        DefaultAPIPort,
		LogLevel:       "info",
		ScriptLanguage: ScriptLangLua,
		ScriptWorkers:  DefaultScriptWorkers,
		Cache: CacheConfig{
			Backend: CacheBackendMemory,
			Size:    DefaultCacheSize,
			Redis: RedisConfig{
				Addr:   DefaultRedisAddr,
				DB:     defaultRedisDB,
				Prefix: DefaultRedisPrefix,
			},
			SQLitePath: DefaultSQLitePath,
			BlobPrefix: DefaultBlobPrefix,
		},
		ShutdownTimeout: DefaultShutdownTimeout,
	}
}

// LoadFromEnv populates configuration values from environment variables.
// Returns an error if any env var cannot be parsed.
func (c *Config) LoadFromEnv() error {
	if apiHost := os.Getenv("API_HOST"); apiHost != "" {
		c.APIHost = apiHost
	}
	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}
	if lang := os.Getenv("SCRIPT_LANGUAGE"); lang != "" {
		c.ScriptLanguage = lang
	}
	if backend := os.Getenv("CACHE_BACKEND"); backend != "" {
		c.Cache.Backend = backend
	}
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		c.Cache.SQLitePath = path
	}
	if url := os.Getenv("BLOB_URL"); url != "" {
		c.Cache.BlobURL = url
	}
	if prefix := os.Getenv("BLOB_PREFIX"); prefix != "" {
		c.Cache.BlobPrefix = prefix
	}
	LoadRedisConfigFromEnv(&c.Cache.Redis)

	if err := loadEnvInt("API_PORT", &c.APIPort, 0, MaxTCPPort); err != nil {
		return err
	}
	if err := loadEnvInt(
		"SCRIPT_WORKERS", &c.ScriptWorkers, 0, MaxScriptWorkers,
	); err != nil {
		return err
	}
	if err := loadEnvInt(
		"CACHE_SIZE", &c.Cache.Size, 0, MaxCacheSize,
	); err != nil {
		return err
	}

	var timeoutSecs int
	if err := loadEnvInt(
		shutdownTimeoutName, &timeoutSecs, 0, int(MaxShutdownTimeout.Seconds()),
	); err != nil {
		return err
	}
	if timeoutSecs > 0 {
		c.ShutdownTimeout = time.Duration(timeoutSecs) * time.Second
	}
	return nil
}

// Validate checks that all configuration values are valid
func (c *Config) Validate() error {
	if c.APIPort <= 0 || c.APIPort > MaxTCPPort {
		return fmt.Errorf("%w: %d", ErrInvalidAPIPort, c.APIPort)
	}

	if !validScriptLanguages.Contains(c.ScriptLanguage) {
		return fmt.Errorf("%w: %s", ErrInvalidScriptLanguage, c.ScriptLanguage)
	}

	if c.ScriptWorkers <= 0 {
		return ErrInvalidScriptWorkers
	}

	return c.Cache.Validate()
}

// Validate checks that the cache configuration is usable
func (c *CacheConfig) Validate() error {
	if !validCacheBackends.Contains(c.Backend) {
		return fmt.Errorf("%w: %s", ErrInvalidCacheBackend, c.Backend)
	}

	switch c.Backend {
	case CacheBackendMemory:
		if c.Size <= 0 {
			return ErrInvalidCacheSize
		}
	case CacheBackendSQLite:
		if c.SQLitePath == "" {
			return ErrSQLitePathRequired
		}
	case CacheBackendBlob:
		if c.BlobURL == "" {
			return ErrBlobURLRequired
		}
	}
	return nil
}

// LoadRedisConfigFromEnv loads redis cache configuration from environment
// variables
func LoadRedisConfigFromEnv(r *RedisConfig) {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		r.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		r.Password = password
	}
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		db, err := strconv.Atoi(dbStr)
		if err == nil {
			r.DB = db
		}
	}
	if prefix := os.Getenv("REDIS_PREFIX"); prefix != "" {
		r.Prefix = prefix
	}
}

// loadEnvInt reads key from the environment, parses it as an integer, and
// sets *dst if the value is in the range (min, max). Returns an error if
// the value cannot be parsed or falls outside the valid range.
func loadEnvInt[T ~int | ~int64](key string, dst *T, min, max T) error {
	s := os.Getenv(key)
	if s == "" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %q", key, s)
	}
	tv := T(v)
	if tv <= min || tv > max {
		return fmt.Errorf("invalid %s: %d out of range [%d, %d]",
			key, tv, min+1, max)
	}
	*dst = tv
	return nil
}
