package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiredFieldMissing(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Equal(t, "missing required config: DATABASE_FILE_PATH (database_file_path)", err.Error())
}

func TestNew_MultipleRequiredFieldsMissing(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "")
	t.Setenv("JWT_SECRET", "")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	_, err := New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_FILE_PATH (database_file_path)")
	assert.Contains(t, err.Error(), "JWT_SECRET (jwt_secret)")
}

func TestNew_WithEnvVar(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/test.db", cfg.DatabaseFilePath)
	assert.Equal(t, "test-secret-key", cfg.JWTSecret)
}

func TestNew_WithConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/library.db
server_port: 9000
database_debug: true
jwt_secret: test-secret-from-file
catalog_api_key: catalog-key
catalog_timeout: 3s
advisory_temperature: 0.2
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("DATABASE_FILE_PATH", "")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("DATABASE_FILE_PATH")
	os.Unsetenv("JWT_SECRET")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/library.db", cfg.DatabaseFilePath)
	assert.Equal(t, 9000, cfg.ServerPort)
	assert.True(t, cfg.DatabaseDebug)
	assert.Equal(t, "catalog-key", cfg.CatalogAPIKey)
	assert.Equal(t, 3*time.Second, cfg.CatalogTimeout)
	assert.InDelta(t, 0.2, cfg.AdvisoryTemperature, 0.0001)
}

func TestNew_EnvVarOverridesConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
database_file_path: /data/from-file.db
server_port: 9000
jwt_secret: test-secret-from-file
`
	err := os.WriteFile(configPath, []byte(configContent), 0644)
	require.NoError(t, err)

	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("DATABASE_FILE_PATH", "/data/from-env.db")
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("JWT_SECRET", "test-secret-from-env")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "/data/from-env.db", cfg.DatabaseFilePath)
	assert.Equal(t, 9090, cfg.ServerPort)
	assert.Equal(t, "test-secret-from-env", cfg.JWTSecret)
}

func TestNew_Defaults(t *testing.T) {
	t.Setenv("DATABASE_FILE_PATH", "/tmp/test.db")
	t.Setenv("JWT_SECRET", "test-secret-key")
	t.Setenv("CONFIG_FILE", "/nonexistent/config.yaml")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "/config/cache", cfg.CacheDir)
	assert.Equal(t, 5*time.Second, cfg.DatabaseBusyTimeout)
	assert.Equal(t, 5, cfg.DatabaseConnectRetryCount)
	assert.Equal(t, 2*time.Second, cfg.DatabaseConnectRetryDelay)
	assert.False(t, cfg.DatabaseDebug)
	assert.Equal(t, "0.0.0.0", cfg.ServerHost)
	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "https://www.googleapis.com/books/v1", cfg.CatalogBaseURL)
	assert.Equal(t, 24*time.Hour, cfg.CatalogCacheTTL)
	assert.Equal(t, "https://vision.googleapis.com/v1", cfg.TextRecognitionBaseURL)
	assert.Equal(t, "gpt-3.5-turbo", cfg.AdvisoryModel)
	assert.Equal(t, 500, cfg.AdvisoryMaxTokens)
	assert.InDelta(t, 0.7, cfg.AdvisoryTemperature, 0.0001)
}

func TestNewForTest(t *testing.T) {
	cfg := NewForTest()
	assert.Equal(t, ":memory:", cfg.DatabaseFilePath)
	assert.Equal(t, "127.0.0.1", cfg.ServerHost)
	assert.Empty(t, cfg.CacheDir)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.Equal(t, 10*time.Second, cfg.CatalogTimeout)
}
