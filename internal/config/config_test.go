package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PORT", "9090")
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("DEBUG_MODE", "false")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "30")
	t.Setenv("AUTH_SECRET_KEY", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.False(t, cfg.DebugMode)
	assert.Equal(t, 2*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 30, cfg.RateLimitPerMinute)
	assert.DirExists(t, filepath.Join(dir, "data"))
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("TOKEN_TTL", "soon")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "many")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)

	t.Setenv("RATE_LIMIT_PER_MINUTE", "-1")
	_, err = Load()
	assert.Error(t, err)
}

func TestInitConfigPersistsFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))

	require.NoError(t, InitConfig(dir))
	assert.FileExists(t, filepath.Join(dir, "config.json"))

	require.NoError(t, UpdateAllowedOrigins([]string{"https://console.example.com"}))

	// 重新初始化后保留文件中的来源设置
	require.NoError(t, InitConfig(dir))
	cfg := GetCurrentConfig()
	assert.Equal(t, []string{"https://console.example.com"}, cfg.AllowedOrigins)

	cfg.AllowedOrigins[0] = "mutated"
	assert.Equal(t, "https://console.example.com", GetCurrentConfig().AllowedOrigins[0])

	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "allowed_origins")
}
