package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{"JOURNAL_MARKET", "JOURNAL_SIZING_MODE", "JOURNAL_OPEN_POLICY", "JOURNAL_STORE", "JOURNAL_STORE_PATH", "JOURNAL_LOG_LEVEL", "JOURNAL_EMA_PERIOD"} {
		t.Setenv(k, "")
	}
}

func TestLoadCreatesTemplate(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := Load(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "config.toml"))
	require.NoError(t, err, "template written on first run")
	assert.FileExists(t, filepath.Join(dir, ".env.example"))

	assert.Equal(t, models.MarketUSA, cfg.Market())
	assert.Equal(t, models.RiskDriven, cfg.SizingMode())
	assert.Equal(t, models.OpenFlat, cfg.OpenTradePolicy())
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, filepath.Join(dir, "journal.db"), cfg.Store.Path)
	assert.Equal(t, 500000.0, cfg.Markets.India.AccountSize)

	// The written template loads back to the same values.
	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	body := `
[journal]
default_market = "india"
sizing_mode = "size"
open_trade_policy = "assume_stop"

[store]
driver = "file"
path = "/tmp/j.msgpack"

[markets.india]
account_size = 250000.0
risk_percent = 0.5
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, models.MarketIndia, cfg.Market())
	assert.Equal(t, models.SizeDriven, cfg.SizingMode())
	assert.Equal(t, models.OpenAssumeStop, cfg.OpenTradePolicy())
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, models.RiskConfig{AccountSize: 250000, RiskPercent: 0.5}, cfg.Markets.RiskSettings().For(models.MarketIndia))
	assert.Equal(t, models.DefaultRiskConfig(), cfg.Markets.USA, "unset sections keep defaults")
	assert.Equal(t, 20, cfg.Journal.EMAPeriod)
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("JOURNAL_MARKET", "india")
	t.Setenv("JOURNAL_STORE", "file")
	t.Setenv("JOURNAL_STORE_PATH", "/tmp/override.json")
	t.Setenv("JOURNAL_LOG_LEVEL", "debug")
	t.Setenv("JOURNAL_EMA_PERIOD", "21")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, models.MarketIndia, cfg.Market())
	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, "/tmp/override.json", cfg.Store.Path)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 21, cfg.Journal.EMAPeriod)
}

func TestDotEnvInConfigDir(t *testing.T) {
	clearEnv(t)
	os.Unsetenv("JOURNAL_OPEN_POLICY")
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JOURNAL_OPEN_POLICY=assume_stop\n"), 0644))
	t.Cleanup(func() { os.Unsetenv("JOURNAL_OPEN_POLICY") })

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, models.OpenAssumeStop, cfg.OpenTradePolicy())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"market", func(c *Config) { c.Journal.DefaultMarket = "mars" }},
		{"sizing", func(c *Config) { c.Journal.SizingMode = "yolo" }},
		{"policy", func(c *Config) { c.Journal.OpenTradePolicy = "hope" }},
		{"driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"account", func(c *Config) { c.Markets.USA.AccountSize = -1 }},
		{"risk", func(c *Config) { c.Markets.India.RiskPercent = -0.5 }},
		{"level", func(c *Config) { c.Logging.Level = "loud" }},
		{"ema", func(c *Config) { c.Journal.EMAPeriod = -3 }},
	}
	require.NoError(t, Default().Validate())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfigInvalid))
		})
	}
}
