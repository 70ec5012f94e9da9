package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(writeConfig(t, ""), "diffscope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "hunk", cfg.General.Granularity)
	assert.Equal(t, "info", cfg.General.LogLevel)
	assert.Equal(t, 30, cfg.Search.TimeoutSeconds)
	assert.Equal(t, 256, cfg.Search.CacheSize)
	assert.Equal(t, ".diffscopeignore", cfg.Search.IgnoreFile)
	assert.Equal(t, 3, cfg.Publish.MaxSecondaryRetries)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := writeConfig(t, `
[general]
granularity = "file"

[search]
timeout_seconds = 5

[github]
token = "tok"
owner = "acme"
repo = "widgets"
`)
	cfg, err := Load(filepath.Join(dir, "diffscope.toml"))
	require.NoError(t, err)

	assert.Equal(t, "file", cfg.General.Granularity)
	assert.Equal(t, 5, cfg.Search.TimeoutSeconds)
	assert.Equal(t, "acme", cfg.GitHub.Owner)
	// Untouched keys keep their defaults.
	assert.Equal(t, 256, cfg.Search.CacheSize)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := writeConfig(t, `
[github]
token = "from-file"
`)
	t.Setenv("DIFFSCOPE_GITHUB_TOKEN", "from-env")

	cfg, err := Load(filepath.Join(dir, "diffscope.toml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.GitHub.Token)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.ErrorContains(t, err, "error loading config")
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(writeConfig(t, ""), "diffscope.toml"))
	require.NoError(t, err)

	require.NoError(t, cfg.Validate(false))

	err = cfg.Validate(true)
	assert.ErrorContains(t, err, "github.token")

	cfg.GitHub.Token = "tok"
	err = cfg.Validate(true)
	assert.ErrorContains(t, err, "github.owner")

	cfg.GitHub.Owner = "acme"
	cfg.GitHub.Repo = "widgets"
	require.NoError(t, cfg.Validate(true))

	cfg.General.Granularity = "paragraph"
	assert.ErrorContains(t, cfg.Validate(false), "granularity")
}

func TestInitRefusesToOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diffscope.toml")
	require.NoError(t, Init(path))
	assert.ErrorContains(t, Init(path), "already exists")

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "[general]")
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "diffscope.toml"), []byte(content), 0o644))
	return dir
}
