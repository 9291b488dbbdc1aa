package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "meetbrew.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetbrew.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: \":9000\"\nretention_days: 7\nreserved_ids: []\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Listen)
	assert.Equal(t, 7*24*time.Hour, cfg.Retention())
	assert.Equal(t, "0 4 * * *", cfg.PurgeCron)
	assert.Empty(t, cfg.ReservedIDs)
	assert.Equal(t, 30*time.Second, cfg.GridCacheTTL())
	assert.False(t, cfg.AllowPrivateCalendarURLs)
}

func TestLoadKeepsExplicitZeroCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetbrew.yaml")
	require.NoError(t, os.WriteFile(path, []byte("grid_cache_seconds: 0\nallow_private_calendar_urls: true\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), cfg.GridCacheTTL())
	assert.True(t, cfg.AllowPrivateCalendarURLs)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
}

func TestLoadRejectsBadValues(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "cron.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("purge: \"every tuesday\"\n"), 0o600))
	_, err := Load(bad)
	assert.ErrorContains(t, err, "purge")

	zone := filepath.Join(dir, "zone.yaml")
	require.NoError(t, os.WriteFile(zone, []byte("default_timezone: Mars/Base\n"), 0o600))
	_, err = Load(zone)
	assert.ErrorContains(t, err, "default_timezone")

	garbled := filepath.Join(dir, "garbled.yaml")
	require.NoError(t, os.WriteFile(garbled, []byte("listen: [\n"), 0o600))
	_, err = Load(garbled)
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meetbrew.yaml")
	cfg := DefaultConfig()
	cfg.Listen = "0.0.0.0:80"
	cfg.MaxDates = 14
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	assert.Error(t, Save(path, nil))
}
