package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileAndDefaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	path := writeConfig(t, `
server:
  port: 9090
ledger:
  workbook_path: /srv/ledger.xlsx
worker:
  poll_interval: 2s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "sk-env", cfg.OpenAI.APIKey)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "gpt-4o", cfg.OpenAI.VisionModel)
	assert.Equal(t, "/srv/ledger.xlsx", cfg.Ledger.WorkbookPath)
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, 5, cfg.Worker.BatchSize)
	assert.True(t, cfg.Worker.Enabled)
	assert.Equal(t, "configs/prompts.yaml", cfg.PromptsPath)
	assert.False(t, cfg.LarkEnabled())
}

func TestLoad_EnvironmentOnly(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("LEDGER_WORKBOOK_PATH", "/tmp/ledger.xlsx")
	t.Setenv("LARK_APP_ID", "cli_1")
	t.Setenv("LARK_APP_SECRET", "secret")
	t.Setenv("LARK_REVIEWER_OPEN_ID", "ou_1")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/ledger.xlsx", cfg.Ledger.WorkbookPath)
	assert.True(t, cfg.LarkEnabled())
	assert.Equal(t, "ou_1", cfg.Lark.ReviewerOpenID)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")

	t.Setenv("OPENAI_API_KEY", "")
	_, err = Load(writeConfig(t, "ledger:\n  workbook_path: x.xlsx\n"))
	assert.ErrorContains(t, err, "openai.api_key")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			OpenAI:      OpenAIConfig{APIKey: "k"},
			Ledger:      LedgerConfig{WorkbookPath: "l.xlsx"},
			Database:    DatabaseConfig{Path: "d.db"},
			PromptsPath: "p.yaml",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid without lark", func(c *Config) {}, ""},
		{"missing ledger", func(c *Config) { c.Ledger.WorkbookPath = "" }, "ledger.workbook_path"},
		{"missing database", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"missing prompts", func(c *Config) { c.PromptsPath = "" }, "prompts_path"},
		{"lark without secret", func(c *Config) { c.Lark.AppID = "cli" }, "lark.app_secret"},
		{"lark without reviewer", func(c *Config) { c.Lark.AppID = "cli"; c.Lark.AppSecret = "s" }, "lark.reviewer_open_id"},
		{"lark complete", func(c *Config) {
			c.Lark = LarkConfig{AppID: "cli", AppSecret: "s", ReviewerOpenID: "ou"}
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.ErrorContains(t, err, tt.wantErr)
			}
		})
	}
}
