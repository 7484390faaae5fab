package model

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultAppConfigIsValid(t *testing.T) {
	cfg := DefaultAppConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 700, cfg.Summarizer.MaxInputTokens)
	assert.Equal(t, "backend_only", cfg.Extraction.EndpointPolicy)
	assert.Equal(t, "0.0.0.0:3000", cfg.Server.Addr())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	d := DefaultAppConfig()
	assert.Equal(t, d.Server.Port, cfg.Server.Port)
	assert.Equal(t, d.Tracks, cfg.Tracks)
	assert.Equal(t, d.Announcements.Signals, cfg.Announcements.Signals)
}

func TestLoadConfigFileOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  port: 8080
tracks:
  catalog: legacy
  policy: drop
summarizer:
  provider: none
log:
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "legacy", cfg.Tracks.Catalog)
	assert.Equal(t, "drop", cfg.Tracks.Policy)
	assert.Equal(t, "none", cfg.Summarizer.Provider)
	assert.Equal(t, "console", cfg.Log.Format)
	// Untouched keys keep their defaults.
	assert.Equal(t, 120, cfg.Summarizer.MaxLength)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "xoxb-test", cfg.Slack.BotToken.Value())
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("summarizer:\n  provider: gpt\n"), 0o600))

	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.Summarizer.MinLength = 200
	cfg.Extraction.EndpointPolicy = "sometimes"
	cfg.Fanout.Concurrency = 0
	cfg.SMTP.Enabled = true

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{"exceeds max_length", "endpoint_policy", "fanout.concurrency", "smtp"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestSaveConfigOmitsSecrets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultAppConfig()
	cfg.Server.Port = 4000
	cfg.Slack.BotToken = "xoxb-secret"
	cfg.SMTP.Password = "hunter2"
	require.NoError(t, SaveConfig(path, cfg))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "xoxb-secret")
	assert.NotContains(t, string(raw), "hunter2")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4000, loaded.Server.Port)
	assert.False(t, loaded.Slack.BotToken.IsSet())

	// The caller's config is left untouched.
	assert.Equal(t, Secret("xoxb-secret"), cfg.Slack.BotToken)
}

func TestSecretRedacts(t *testing.T) {
	s := Secret("token")
	assert.Equal(t, "[REDACTED]", s.String())
	assert.Equal(t, "[REDACTED]", fmt.Sprint(s))
	assert.Equal(t, "token", s.Value())
	assert.Equal(t, "", Secret("").String())
}
