package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "./executions", cfg.ExecutionDir)
	assert.Equal(t, "./dependencies-cache", cfg.CacheDir)
	assert.Equal(t, 60000, cfg.DefaultTimeoutMs)
	assert.Equal(t, "1GB", cfg.CacheSizeLimit)
	assert.Equal(t, 100, cfg.ExecutionsDataPruneMaxCount)
	assert.False(t, cfg.AuthEnabled())
}

func TestLoadYAML(t *testing.T) {
	yamlContent := `
port: 8080
execution_dir: "/var/run/exec"
secret_key: "yaml-secret"
cache_size_limit: "2GB"
`
	tmpDir := t.TempDir()
	yamlPath := filepath.Join(tmpDir, "test.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlContent), 0644))

	cfg, err := Load(yamlPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "/var/run/exec", cfg.ExecutionDir)
	assert.Equal(t, "yaml-secret", cfg.SecretKey)
	assert.Equal(t, "2GB", cfg.CacheSizeLimit)
	assert.True(t, cfg.AuthEnabled())
}

func TestLoadYAMLMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Port)
}

func TestLoadYAMLInvalid(t *testing.T) {
	tmpDir := t.TempDir()
	yamlPath := filepath.Join(tmpDir, "bad.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("{{{{invalid yaml"), 0644))

	_, err := Load(yamlPath)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("EXECUTION_DIR", "/tmp/exec")
	t.Setenv("CACHE_DIR", "/tmp/cache")
	t.Setenv("SECRET_KEY", "env-secret")
	t.Setenv("DEFAULT_TIMEOUT", "15000")
	t.Setenv("CACHE_SIZE_LIMIT", "500MB")
	t.Setenv("EXECUTIONS_DATA_PRUNE_MAX_COUNT", "10")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "/tmp/exec", cfg.ExecutionDir)
	assert.Equal(t, "/tmp/cache", cfg.CacheDir)
	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, 15000, cfg.DefaultTimeoutMs)
	assert.Equal(t, "500MB", cfg.CacheSizeLimit)
	assert.Equal(t, 10, cfg.ExecutionsDataPruneMaxCount)
}

func TestEnvOverridesYAML(t *testing.T) {
	yamlContent := `
port: 3000
secret_key: "yaml-secret"
`
	tmpDir := t.TempDir()
	yamlPath := filepath.Join(tmpDir, "test.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlContent), 0644))

	t.Setenv("SECRET_KEY", "env-secret")

	cfg, err := Load(yamlPath)
	require.NoError(t, err)

	assert.Equal(t, "env-secret", cfg.SecretKey)
	assert.Equal(t, 3000, cfg.Port)
}

func TestEnvOverrideInvalidValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("DEFAULT_TIMEOUT", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, 60000, cfg.DefaultTimeoutMs)
}

func TestCacheSizeLimitBytes(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(1024*1024*1024), cfg.CacheSizeLimitBytes())
}
