package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir 切到一个没有 config.yaml / .env 的临时目录
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, 3, cfg.Storage.UploadAttempts)
	assert.Equal(t, 10, cfg.Listing.SampleSize)
	assert.Equal(t, time.Duration(0), cfg.Views.DedupWindow)
	assert.True(t, cfg.Views.Async)
	assert.Equal(t, time.Hour, cfg.JWT.TTL)
	assert.Equal(t, 240*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, "orion.asset_cleanup.queue", cfg.RabbitMQ.CleanupQueue)
	assert.Equal(t, 30*time.Second, cfg.RabbitMQ.CleanupRetryBase)
	assert.Equal(t, 30*time.Minute, cfg.RabbitMQ.CleanupRetryMax)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("ORION_SERVER_PORT", "9090")
	t.Setenv("ORION_STORAGE_DRIVER", "s3")
	t.Setenv("ORION_VIEWS_DEDUP_WINDOW", "30s")
	t.Setenv("ORION_LISTING_SAMPLE_SIZE", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "s3", cfg.Storage.Driver)
	assert.Equal(t, 30*time.Second, cfg.Views.DedupWindow)
	assert.Equal(t, 5, cfg.Listing.SampleSize)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	yaml := []byte("storage:\n  bucket: from-file\nlisting:\n  max_limit: 50\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Storage.Bucket)
	assert.Equal(t, 50, cfg.Listing.MaxLimit)
	// 文件中没写的键保持默认值
	assert.Equal(t, 10, cfg.Listing.DefaultLimit)
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage: [unclosed"), 0o644))

	_, err := Load()
	assert.Error(t, err)
}
