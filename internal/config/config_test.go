package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, 1, cfg.FilterDays)
	assert.Equal(t, []string{"RSS", "Twitter"}, cfg.PreferredSources)
	assert.NotEmpty(t, cfg.Hotspot.Boards)
	assert.NotEmpty(t, cfg.RSS.Feeds)
	assert.Equal(t, "少数派", cfg.Hotspot.NameMap["sspai"])
}

func TestLoadMissingPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().DataDir, cfg.DataDir)
}

func TestLoadNamedMissingFileFails(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	assert.Error(t, err)
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_dir: /var/lib/wisecrawl
workers: 8
tech_only: true
hotspot:
  boards: [sspai]
llm:
  model: deepseek-r1:14b
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/wisecrawl", cfg.DataDir)
	assert.Equal(t, 8, cfg.Workers)
	assert.True(t, cfg.TechOnly)
	assert.Equal(t, []string{"sspai"}, cfg.Hotspot.Boards)
	assert.Equal(t, "deepseek-r1:14b", cfg.LLM.Model)
	assert.Equal(t, 1, cfg.FilterDays, "unset keys keep their defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("LLM_API_KEY", "secret-key")
	t.Setenv("MAX_WORKERS", "3")
	t.Setenv("WEBHOOK_URL", "https://hook.example.com")
	t.Setenv("TECH_ONLY", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.LLM.APIKey)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "https://hook.example.com", cfg.Notify.WebhookURL)
	assert.True(t, cfg.TechOnly)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: [not an int"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadSanitizesNonPositiveValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("workers: 0\nfilter_days: -1\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, 1, cfg.FilterDays)
}
