package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/kode4food/weave/internal/assert"
	"github.com/kode4food/weave/internal/assert/helpers"
	"github.com/kode4food/weave/internal/config"
)

func TestConfigValidation(t *testing.T) {
	as := assert.New(t)

	t.Run("valid_default_config", func(t *testing.T) {
		as.ConfigValid(config.NewDefaultConfig())
	})

	t.Run("valid_test_config", func(t *testing.T) {
		as.ConfigValid(helpers.NewTestConfig())
	})

	tests := []struct {
		name          string
		configMod     func(*config.Config)
		errorContains string
	}{
		{
			name:          "invalid_api_port_zero",
			configMod:     func(c *config.Config) { c.APIPort = 0 },
			errorContains: "invalid API port",
		},
		{
			name:          "invalid_api_port_too_high",
			configMod:     func(c *config.Config) { c.APIPort = 70000 },
			errorContains: "invalid API port",
		},
		{
			name:          "invalid_script_language",
			configMod:     func(c *config.Config) { c.ScriptLanguage = "js" },
			errorContains: "invalid script language",
		},
		{
			name:          "zero_script_workers",
			configMod:     func(c *config.Config) { c.ScriptWorkers = 0 },
			errorContains: "script workers must be positive",
		},
		{
			name:          "invalid_cache_backend",
			configMod:     func(c *config.Config) { c.Cache.Backend = "disk" },
			errorContains: "invalid cache backend",
		},
		{
			name: "zero_memory_cache_size",
			configMod: func(c *config.Config) {
				c.Cache.Backend = config.CacheBackendMemory
				c.Cache.Size = 0
			},
			errorContains: "cache size must be positive",
		},
		{
			name: "blob_without_url",
			configMod: func(c *config.Config) {
				c.Cache.Backend = config.CacheBackendBlob
				c.Cache.BlobURL = ""
			},
			errorContains: "BLOB_URL",
		},
		{
			name: "sqlite_without_path",
			configMod: func(c *config.Config) {
				c.Cache.Backend = config.CacheBackendSQLite
				c.Cache.SQLitePath = ""
			},
			errorContains: "SQLITE_PATH",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			as := assert.New(t)
			cfg := helpers.NewTestConfig()
			tt.configMod(cfg)
			as.ConfigInvalid(cfg, tt.errorContains)
		})
	}
}

func TestDefaultConfigValues(t *testing.T) {
	as := assert.New(t)

	cfg := config.NewDefaultConfig()

	as.Equal(config.DefaultAPIPort, cfg.APIPort)
	as.Equal("0.0.0.0", cfg.APIHost)
	as.Equal(config.ScriptLangLua, cfg.ScriptLanguage)
	as.Equal(config.DefaultScriptWorkers, cfg.ScriptWorkers)
	as.Equal(config.CacheBackendMemory, cfg.Cache.Backend)
	as.Equal(config.DefaultCacheSize, cfg.Cache.Size)
	as.Equal(config.DefaultShutdownTimeout, cfg.ShutdownTimeout)
	as.Equal("info", cfg.LogLevel)
}

func TestLoadFromEnv(t *testing.T) {
	as := assert.New(t)

	setEnv(t, map[string]string{
		"API_HOST":         "127.0.0.1",
		"API_PORT":         "9090",
		"LOG_LEVEL":        "debug",
		"SCRIPT_LANGUAGE":  "ale",
		"SCRIPT_WORKERS":   "4",
		"CACHE_BACKEND":    "redis",
		"CACHE_SIZE":       "50",
		"REDIS_ADDR":       "redis.example.com:6379",
		"REDIS_PASSWORD":   "secret123",
		"REDIS_DB":         "5",
		"REDIS_PREFIX":     "custom-prefix",
		"SQLITE_PATH":      "/tmp/cache.db",
		"BLOB_URL":         "mem://",
		"BLOB_PREFIX":      "gens/",
		"SHUTDOWN_TIMEOUT": "3",
	})

	cfg := config.NewDefaultConfig()
	as.NoError(cfg.LoadFromEnv())

	as.Equal("127.0.0.1", cfg.APIHost)
	as.Equal(9090, cfg.APIPort)
	as.Equal("debug", cfg.LogLevel)
	as.Equal(config.ScriptLangAle, cfg.ScriptLanguage)
	as.Equal(4, cfg.ScriptWorkers)
	as.Equal(config.CacheBackendRedis, cfg.Cache.Backend)
	as.Equal(50, cfg.Cache.Size)
	as.Equal("redis.example.com:6379", cfg.Cache.Redis.Addr)
	as.Equal("secret123", cfg.Cache.Redis.Password)
	as.Equal(5, cfg.Cache.Redis.DB)
	as.Equal("custom-prefix", cfg.Cache.Redis.Prefix)
	as.Equal("/tmp/cache.db", cfg.Cache.SQLitePath)
	as.Equal("mem://", cfg.Cache.BlobURL)
	as.Equal("gens/", cfg.Cache.BlobPrefix)
	as.Equal(3*time.Second, cfg.ShutdownTimeout)
	as.ConfigValid(cfg)
}

func TestLoadFromEnvErrors(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "api_port_not_number", key: "API_PORT", val: "abc"},
		{name: "api_port_out_of_range", key: "API_PORT", val: "70000"},
		{name: "workers_zero", key: "SCRIPT_WORKERS", val: "0"},
		{name: "cache_size_negative", key: "CACHE_SIZE", val: "-1"},
		{name: "shutdown_not_number", key: "SHUTDOWN_TIMEOUT", val: "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			as := assert.New(t)
			setEnv(t, map[string]string{tt.key: tt.val})

			err := config.NewDefaultConfig().LoadFromEnv()
			as.Assertions.Error(err)
			as.Contains(err.Error(), tt.key)
		})
	}
}

func TestLoadRedisConfigInvalidDBIgnored(t *testing.T) {
	as := assert.New(t)
	setEnv(t, map[string]string{"REDIS_DB": "not_a_number"})

	rc := config.RedisConfig{DB: 2}
	config.LoadRedisConfigFromEnv(&rc)
	as.Equal(2, rc.DB)
}

func setEnv(t *testing.T, vars map[string]string) {
	t.Helper()
	for key, value := range vars {
		_ = os.Setenv(key, value)
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}
}
