package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[server]
port = 8000
host = "127.0.0.1"
cors_allowed_origins = ["*"]

[logging]
level = "info"
format = "console"

[storage]
type = "sqlite"
sqlite_path = "data/test.db"

[recognition]
api_key = "dg-key"

[summarizer]
api_key = "oa-key"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndValidate(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 8000, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "dg-key", cfg.Recognition.APIKey)

	// Defaults applied during validation
	assert.Equal(t, "uploads", cfg.Uploads.BaseDir)
	assert.Equal(t, "uploads/transcripts", cfg.Uploads.TranscriptsDir)
	assert.Equal(t, 100, cfg.Uploads.MaxSizeMB)
	assert.Equal(t, "https://api.deepgram.com", cfg.Recognition.BaseURL)
	assert.Equal(t, "general", cfg.Recognition.Model)
	assert.Equal(t, "nova", cfg.Recognition.Tier)
	assert.Equal(t, "gpt-4o-mini", cfg.Summarizer.Model)
	require.NotNil(t, cfg.Summarizer.Temperature)
	assert.InDelta(t, 0.7, *cfg.Summarizer.Temperature, 0.001)
	assert.Equal(t, "https://api.trello.com", cfg.Trello.BaseURL)
	assert.Equal(t, 1, cfg.LiveKit.TokenTTLHours)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestEnvOverlayFillsEmptyCredentials(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "env-dg-key")
	t.Setenv("TRELLO_TOKEN", "env-trello-token")

	cfg, err := Load(writeConfig(t, `
[server]
port = 8000

[logging]
level = "info"
format = "console"

[storage]
type = "sqlite"
sqlite_path = "data/test.db"
`))
	require.NoError(t, err)

	assert.Equal(t, "env-dg-key", cfg.Recognition.APIKey)
	assert.Equal(t, "env-trello-token", cfg.Trello.Token)
}

func TestEnvOverlayDoesNotOverrideFileValues(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "env-dg-key")

	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "dg-key", cfg.Recognition.APIKey)
}

func TestSummarizerTemperatureZeroIsRespected(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig+`
temperature = 0.0
`))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.NotNil(t, cfg.Summarizer.Temperature)
	assert.Zero(t, *cfg.Summarizer.Temperature)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad storage type", func(c *Config) { c.Storage.Type = "postgres" }},
		{"missing sqlite path", func(c *Config) { c.Storage.SQLitePath = "" }},
		{"bad temperature", func(c *Config) { temp := 3.5; c.Summarizer.Temperature = &temp }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, sampleConfig))
			require.NoError(t, err)
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
