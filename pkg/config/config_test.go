package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DATA_PATH", "SORT_COLUMN", "GITHUB_API_URL", "DAYS_BACK",
		"EXCLUDE_PRIVATE", "ONLY_ORGANIZATIONS", "REFRESH_INTERVAL", "HTTP_TIMEOUT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "data/people.csv", cfg.Storage.DataPath)
	assert.Equal(t, "fullname", cfg.Storage.SortColumn)
	assert.Equal(t, "https://api.github.com/", cfg.GitHub.APIURL)
	assert.Equal(t, 30*time.Second, cfg.GitHub.HTTPTimeout)
	assert.Equal(t, 365, cfg.Refresh.DaysBack)
	assert.False(t, cfg.Refresh.ExcludePrivate)
	assert.False(t, cfg.Refresh.OnlyOrganizations)
	assert.Equal(t, 24*time.Hour, cfg.Refresh.Interval)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("DATA_PATH", "/tmp/devs.xlsx")
	t.Setenv("SORT_COLUMN", "score")
	t.Setenv("GITHUB_API_URL", "https://ghe.example.com/api/graphql")
	t.Setenv("DAYS_BACK", "90")
	t.Setenv("EXCLUDE_PRIVATE", "true")
	t.Setenv("ONLY_ORGANIZATIONS", "1")
	t.Setenv("REFRESH_INTERVAL", "6h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/devs.xlsx", cfg.Storage.DataPath)
	assert.Equal(t, "score", cfg.Storage.SortColumn)
	assert.Equal(t, "https://ghe.example.com/api/", cfg.GitHub.APIURL)
	assert.Equal(t, 90, cfg.Refresh.DaysBack)
	assert.True(t, cfg.Refresh.ExcludePrivate)
	assert.True(t, cfg.Refresh.OnlyOrganizations)
	assert.Equal(t, 6*time.Hour, cfg.Refresh.Interval)
}

func TestLoadIgnoresInvalidValues(t *testing.T) {
	t.Setenv("DAYS_BACK", "a year")
	t.Setenv("EXCLUDE_PRIVATE", "maybe")
	t.Setenv("REFRESH_INTERVAL", "-5m")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 365, cfg.Refresh.DaysBack)
	assert.False(t, cfg.Refresh.ExcludePrivate)
	assert.Equal(t, 24*time.Hour, cfg.Refresh.Interval)
}

func TestLoadReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\nDAYS_BACK=30\n"), 0644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	// godotenv never overrides variables that are already present
	for _, key := range []string{"LOG_LEVEL", "DAYS_BACK"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30, cfg.Refresh.DaysBack)
}
