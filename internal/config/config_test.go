package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"APP_PORT":   "8080",
		"JWT_SECRET": "s3cr3t",
		"DB_USER":    "app",
		"DB_HOST":    "localhost",
		"DB_PORT":    "3306",
		"DB_NAME":    "users",
	}
}

func TestLoadFrom_Defaults(t *testing.T) {
	cfg, err := LoadFrom(lookup(baseEnv()))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, StorageMySQL, cfg.Storage)
	assert.Equal(t, 15*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 30*24*time.Hour, cfg.RefreshTTL())
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.True(t, cfg.DBMigrate)
	assert.True(t, cfg.LogoutRevokesRefresh)
	assert.False(t, cfg.CookieSecure)
	assert.GreaterOrEqual(t, cfg.WorkerPoolSize, 1)
	assert.Equal(t, "tasks", cfg.Tasks.Queue)
	assert.Equal(t, 3, cfg.Tasks.MaxRetries)
	assert.Equal(t, time.Minute, cfg.Tasks.RetryDelay)
}

func TestLoadFrom_Overrides(t *testing.T) {
	env := baseEnv()
	env["ACCESS_TOKEN_TTL_MIN"] = "5"
	env["REFRESH_TOKEN_TTL_MIN"] = "120"
	env["COOKIE_SECURE"] = "true"
	env["LOGOUT_REVOKES_REFRESH"] = "off"
	env["DB_PASS"] = "legacy"
	env["TASK_RETRY_DELAY"] = "5s"

	cfg, err := LoadFrom(lookup(env))
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.AccessTTL())
	assert.Equal(t, 2*time.Hour, cfg.RefreshTTL())
	assert.True(t, cfg.CookieSecure)
	assert.False(t, cfg.LogoutRevokesRefresh)
	assert.Equal(t, "legacy", cfg.DBPass)
	assert.Equal(t, 5*time.Second, cfg.Tasks.RetryDelay)
}

func TestLoadFrom_MissingRequired(t *testing.T) {
	_, err := LoadFrom(lookup(map[string]string{"APP_PORT": "8080"}))
	require.Error(t, err)

	for _, key := range []string{"JWT_SECRET", "DB_USER", "DB_HOST", "DB_PORT", "DB_NAME"} {
		assert.Contains(t, err.Error(), key)
	}
}

func TestLoadFrom_MemoryStorageSkipsDatabase(t *testing.T) {
	cfg, err := LoadFrom(lookup(map[string]string{
		"APP_PORT":    "8080",
		"JWT_SECRET":  "x",
		"APP_STORAGE": "memory",
	}))
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	env := baseEnv()
	env["BCRYPT_COST"] = "twelve"
	env["COOKIE_SECURE"] = "maybe"
	env["APP_STORAGE"] = "sqlite"
	env["REFRESH_TOKEN_TTL_MIN"] = "10"

	_, err := LoadFrom(lookup(env))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BCRYPT_COST")
	assert.Contains(t, err.Error(), "COOKIE_SECURE")
	assert.Contains(t, err.Error(), "APP_STORAGE")
	assert.Contains(t, err.Error(), "REFRESH_TOKEN_TTL_MIN")
}

func TestLoadCacheConfig(t *testing.T) {
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("CACHE_TTL", "2m")

	cfg := LoadCacheConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 2*time.Minute, cfg.TTL)
	assert.Equal(t, "cache:users", cfg.Prefix)
}

func TestLoadRedisConfig_HostPortWins(t *testing.T) {
	t.Setenv("REDIS_ADDR", "ignored:1")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("REDIS_DB", "2")

	cfg := LoadRedisConfig()
	assert.Equal(t, "redis:6380", cfg.Addr)
	assert.Equal(t, 2, cfg.DB)
}
