package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 8, cfg.LinkConcurrency)

	level, err := cfg.Level()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelWarn, level)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "timeout: 5s\nlogLevel: debug\npackageFilter: \"Coll*\"\nlinkConcurrency: 2\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("WEBSIDE_URL", "http://localhost:9001")
	t.Setenv("WEBSIDE_DEVELOPER", "guille")
	t.Setenv("WEBSIDE_TIMEOUT", "2s")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9001", cfg.BackendURL)
	assert.Equal(t, "guille", cfg.Developer)
	assert.Equal(t, 2*time.Second, cfg.Timeout, "env wins over file")
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "Coll*", cfg.PackageFilter)
	assert.Equal(t, 2, cfg.LinkConcurrency)
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logLevel: loud\n"), 0644))
	_, err := Load(path)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte("timeout: [\n"), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := Default()
	cfg.PackageFilter = "Kernel"
	cfg.BackendURL = "http://not-saved"
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Kernel", loaded.PackageFilter)
	assert.Empty(t, loaded.BackendURL, "connection settings live in the credential store")
}

func TestEnvIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("WEBSIDE_TIMEOUT", "soon")
	t.Setenv("WEBSIDE_LINK_CONCURRENCY", "many")
	cfg := FromEnv()
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 8, cfg.LinkConcurrency)
}
