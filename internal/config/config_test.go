package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/newsdesk")
	for _, key := range []string{"HTTP_PORT", "USAGE_ENABLED", "SEARCH_PROVIDER", "PROVIDER_REQUEST_TIMEOUT", "SEARCH_CACHE_SIZE"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 25, cfg.Database.MaxOpenConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address)
	assert.False(t, cfg.Usage.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Provider.RequestTimeout)
	assert.Equal(t, "brave", cfg.Search.Provider)
	assert.Equal(t, 256, cfg.Search.CacheSize)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://db/newsdesk")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("USAGE_ENABLED", "true")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("PROVIDER_REQUEST_TIMEOUT", "45s")
	t.Setenv("SEARCH_PROVIDER", "Brave")
	t.Setenv("BRAVE_SEARCH_API_KEY", "bsk")
	t.Setenv("DB_MAX_IDLE_CONNS", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.True(t, cfg.Usage.Enabled)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.Equal(t, 45*time.Second, cfg.Provider.RequestTimeout)
	assert.Equal(t, "brave", cfg.Search.Provider)
	assert.Equal(t, "bsk", cfg.Search.APIKey)
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
}

func TestLoadSearch_WithoutDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("BRAVE_SEARCH_API_KEY", "bsk")
	t.Setenv("SEARCH_TIMEOUT", "4s")
	t.Setenv("SEARCH_CACHE_SIZE", "0")

	cfg := LoadSearch()

	assert.Equal(t, "bsk", cfg.APIKey)
	assert.Equal(t, 4*time.Second, cfg.Timeout)
	assert.Zero(t, cfg.CacheSize)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(path, []byte("NEWSDESK_TEST_FROM_FILE=yes\nNEWSDESK_TEST_PRESET=file\n"), 0o600))

	t.Setenv("NEWSDESK_TEST_PRESET", "env")
	t.Cleanup(func() { os.Unsetenv("NEWSDESK_TEST_FROM_FILE") })

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "yes", os.Getenv("NEWSDESK_TEST_FROM_FILE"))
	assert.Equal(t, "env", os.Getenv("NEWSDESK_TEST_PRESET"))

	assert.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"1", false, true},
		{"TRUE", false, true},
		{"off", true, false},
		{"maybe", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("NEWSDESK_TEST_BOOL", tt.value)
			assert.Equal(t, tt.want, getEnvBool("NEWSDESK_TEST_BOOL", tt.def))
		})
	}
}
