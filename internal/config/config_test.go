package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.local:5000/")
	t.Setenv("API_TOKEN", "secret")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "http://api.local:5000", cfg.APIBaseURL)
	assert.Equal(t, "task_dashboard.db", cfg.DatabaseURL)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 5*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 5*time.Hour, cfg.ReportInterval)
	assert.Equal(t, 15*time.Second, cfg.APITimeout)
	assert.Equal(t, 5, cfg.DefaultPageSize)
	assert.True(t, cfg.APIAdminLogin)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.local")
	t.Setenv("API_EMAIL", "admin@example.com")
	t.Setenv("API_PASSWORD", "pw")
	t.Setenv("REFRESH_INTERVAL", "90s")
	t.Setenv("REPORT_INTERVAL_HOURS", "3")
	t.Setenv("DEFAULT_PAGE_SIZE", "25")
	t.Setenv("API_ADMIN_LOGIN", "false")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 3*time.Hour, cfg.ReportInterval)
	assert.Equal(t, 25, cfg.DefaultPageSize)
	assert.False(t, cfg.APIAdminLogin)
}

func TestLoadFromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("API_BASE_URL=http://from-file\nAPI_TOKEN=tok\n"), 0o644))
	t.Setenv("API_BASE_URL", "")
	t.Setenv("API_TOKEN", "")
	os.Unsetenv("API_BASE_URL")
	os.Unsetenv("API_TOKEN")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://from-file", cfg.APIBaseURL)
	assert.Equal(t, "tok", cfg.APIToken)
}

func TestLoadRequiresAPI(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("API_TOKEN", "")
	_, err := Load(missingEnvFile(t))
	assert.Error(t, err)

	t.Setenv("API_BASE_URL", "http://api.local")
	t.Setenv("API_EMAIL", "")
	_, err = Load(missingEnvFile(t))
	assert.Error(t, err)
}

func TestLoadScheduleSettings(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://api.local")
	t.Setenv("API_TOKEN", "tok")
	t.Setenv("DIGEST_TIME", "08:30")
	t.Setenv("TIMEZONE", "UTC")

	cfg, err := Load(missingEnvFile(t))
	require.NoError(t, err)
	assert.Equal(t, "08:30", cfg.DigestTime)
	assert.Equal(t, time.UTC, cfg.Timezone)

	t.Setenv("TIMEZONE", "Nowhere/Atlantis")
	_, err = Load(missingEnvFile(t))
	assert.Error(t, err)
}
