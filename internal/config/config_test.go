package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad(t *testing.T) {
	configPath := writeConfig(t, `
server:
  port: 9090
  host: "0.0.0.0"

tiers:
  upcoming_max: 0
  recently_due_max: 29

resolver:
  fuzzy_threshold: 0.75
  low_trust_sources:
    - "revelry buyers list"
  always_cc:
    - "ar@picc.example"
  handler_emails:
    "Jordan Lake": "jordan@picc.example"

email:
  from_address: "ar@picc.example"
  cooldown_days: 5

ingest:
  aging_report_path: "./data/aging.xlsx"
  contacts_path: "./data/contacts.xlsx"
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "0.0.0.0:9090", cfg.ListenAddr())

	assert.Equal(t, 0, cfg.Tiers.UpcomingMax)
	assert.Equal(t, 29, cfg.Tiers.RecentlyDueMax)

	assert.Equal(t, 0.75, cfg.Resolver.FuzzyThreshold)
	assert.Equal(t, []string{"revelry buyers list"}, cfg.Resolver.LowTrustSources)
	assert.Equal(t, "jordan@picc.example", cfg.Resolver.HandlerEmails["Jordan Lake"])

	assert.Equal(t, "ar@picc.example", cfg.Email.FromAddress)
	assert.Equal(t, 5, cfg.Email.CooldownDays)
}

func TestLoadDefaults(t *testing.T) {
	configPath := writeConfig(t, `
email:
  from_address: "ar@picc.example"
`)

	cfg, err := Load(configPath)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 0, cfg.Tiers.UpcomingMax)
	assert.Equal(t, 29, cfg.Tiers.RecentlyDueMax)
	assert.Equal(t, -7, cfg.Tiers.MinLeadDays)
	assert.Equal(t, 0.70, cfg.Resolver.FuzzyThreshold)
	assert.Equal(t, 7, cfg.Email.CooldownDays)
	assert.Equal(t, "us-west-2", cfg.SES.Region)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadRejectsInvertedTiers(t *testing.T) {
	configPath := writeConfig(t, `
tiers:
  upcoming_max: 30
  recently_due_max: 10
`)

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recently_due_max")
}

func TestLoadRejectsLeadWindowPastUpcoming(t *testing.T) {
	configPath := writeConfig(t, `
tiers:
  min_lead_days: 3
`)

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min_lead_days")
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	configPath := writeConfig(t, `
resolver:
  fuzzy_threshold: 1.5
`)

	_, err := Load(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuzzy_threshold")
}

func TestLoadFromEnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
database:
  url: "postgres://local/ar"
`)

	t.Setenv("DATABASE_URL", "postgres://prod/ar")
	t.Setenv("AWS_SES_REGION", "us-east-1")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadFromEnv(configPath)
	require.NoError(t, err)

	assert.Equal(t, "postgres://prod/ar", cfg.Database.URL)
	assert.Equal(t, "us-east-1", cfg.SES.Region)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}
