// Package config provides configuration management for the trade journal.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"trade-journal/internal/errors"
	"trade-journal/internal/logging"
	"trade-journal/internal/models"
)

// Store drivers.
const (
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// Config holds all application configuration.
type Config struct {
	Journal JournalConfig     `mapstructure:"journal" json:"journal"`
	Store   StoreConfig       `mapstructure:"store" json:"store"`
	Markets MarketsConfig     `mapstructure:"markets" json:"markets"`
	Logging logging.LogConfig `mapstructure:"logging" json:"logging"`
	Dir     string            `mapstructure:"-" json:"dir"`
}

// JournalConfig holds journal behaviour settings.
type JournalConfig struct {
	DefaultMarket   string `mapstructure:"default_market" json:"default_market"`
	SizingMode      string `mapstructure:"sizing_mode" json:"sizing_mode"`
	OpenTradePolicy string `mapstructure:"open_trade_policy" json:"open_trade_policy"`
	DefaultStrategy string `mapstructure:"default_strategy" json:"default_strategy"`
	EMAPeriod       int    `mapstructure:"ema_period" json:"ema_period"`
}

// StoreConfig selects the snapshot backend.
type StoreConfig struct {
	Driver string `mapstructure:"driver" json:"driver"` // sqlite, file
	Path   string `mapstructure:"path" json:"path"`
}

// MarketsConfig holds the seed risk configuration of each market. Values
// saved in the journal take precedence once they exist.
type MarketsConfig struct {
	USA   models.RiskConfig `mapstructure:"usa" json:"usa"`
	India models.RiskConfig `mapstructure:"india" json:"india"`
}

// RiskSettings returns the market configuration as a lookup table.
func (m MarketsConfig) RiskSettings() models.RiskSettings {
	return models.RiskSettings{
		models.MarketUSA:   m.USA,
		models.MarketIndia: m.India,
	}
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/trade-journal"
	}
	return filepath.Join(home, ".config", "trade-journal")
}

// Default returns the configuration used when no file exists yet.
func Default() *Config {
	dir := DefaultConfigDir()
	return &Config{
		Journal: JournalConfig{
			DefaultMarket:   string(models.MarketUSA),
			SizingMode:      string(models.RiskDriven),
			OpenTradePolicy: string(models.OpenFlat),
			EMAPeriod:       20,
		},
		Store: StoreConfig{
			Driver: DriverSQLite,
			Path:   filepath.Join(dir, "journal.db"),
		},
		Markets: MarketsConfig{
			USA:   models.DefaultRiskConfig(),
			India: models.RiskConfig{AccountSize: 500000, RiskPercent: 1},
		},
		Logging: logging.DefaultLogConfig(),
		Dir:     dir,
	}
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory. A missing
// config.toml is replaced by a commented template and defaults are used.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	// .env in the working directory or the config directory; either may be absent.
	_ = godotenv.Load(filepath.Join(configDir, ".env"))
	_ = godotenv.Load()

	cfg := Default()
	cfg.Dir = configDir
	if configDir != DefaultConfigDir() {
		cfg.Store.Path = filepath.Join(configDir, "journal.db")
		cfg.Logging.FilePath = filepath.Join(configDir, "logs", "journal.log")
	}

	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, cfg *Config) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)
	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		if err := createTemplateConfig(configDir, name); err != nil {
			return err
		}
	}

	return v.Unmarshal(cfg)
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("journal.default_market", cfg.Journal.DefaultMarket)
	v.SetDefault("journal.sizing_mode", cfg.Journal.SizingMode)
	v.SetDefault("journal.open_trade_policy", cfg.Journal.OpenTradePolicy)
	v.SetDefault("journal.default_strategy", cfg.Journal.DefaultStrategy)
	v.SetDefault("journal.ema_period", cfg.Journal.EMAPeriod)
	v.SetDefault("store.driver", cfg.Store.Driver)
	v.SetDefault("store.path", cfg.Store.Path)
	v.SetDefault("markets.usa.account_size", cfg.Markets.USA.AccountSize)
	v.SetDefault("markets.usa.risk_percent", cfg.Markets.USA.RiskPercent)
	v.SetDefault("markets.india.account_size", cfg.Markets.India.AccountSize)
	v.SetDefault("markets.india.risk_percent", cfg.Markets.India.RiskPercent)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.console", cfg.Logging.Console)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.file_path", cfg.Logging.FilePath)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("JOURNAL_MARKET"); v != "" {
		cfg.Journal.DefaultMarket = v
	}
	if v := os.Getenv("JOURNAL_SIZING_MODE"); v != "" {
		cfg.Journal.SizingMode = v
	}
	if v := os.Getenv("JOURNAL_OPEN_POLICY"); v != "" {
		cfg.Journal.OpenTradePolicy = v
	}
	if v := os.Getenv("JOURNAL_STORE"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv("JOURNAL_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("JOURNAL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("JOURNAL_EMA_PERIOD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Journal.EMAPeriod = n
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := models.ParseMarket(c.Journal.DefaultMarket); err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, err.Error())
	}
	if _, err := models.ParseSizingMode(c.Journal.SizingMode); err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, err.Error())
	}
	if _, err := models.ParseOpenTradePolicy(c.Journal.OpenTradePolicy); err != nil {
		return errors.Wrap(errors.ErrConfigInvalid, err.Error())
	}
	if c.Journal.EMAPeriod < 0 {
		return errors.Wrapf(errors.ErrConfigInvalid, "ema_period must be non-negative (got %d)", c.Journal.EMAPeriod)
	}

	switch strings.ToLower(c.Store.Driver) {
	case DriverSQLite, DriverFile:
	default:
		return errors.Wrapf(errors.ErrConfigInvalid, "invalid store driver: %s (must be 'sqlite' or 'file')", c.Store.Driver)
	}

	for name, rc := range map[string]models.RiskConfig{"usa": c.Markets.USA, "india": c.Markets.India} {
		if rc.AccountSize < 0 {
			return errors.Wrapf(errors.ErrConfigInvalid, "markets.%s.account_size must be non-negative", name)
		}
		if rc.RiskPercent < 0 {
			return errors.Wrapf(errors.ErrConfigInvalid, "markets.%s.risk_percent must be non-negative", name)
		}
	}

	if c.Logging.Level != "" && !logging.ValidLevel(c.Logging.Level) {
		return errors.Wrapf(errors.ErrConfigInvalid, "invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// Market returns the parsed default market.
func (c *Config) Market() models.Market {
	m, err := models.ParseMarket(c.Journal.DefaultMarket)
	if err != nil {
		return models.MarketUSA
	}
	return m
}

// SizingMode returns the parsed sizing mode.
func (c *Config) SizingMode() models.SizingMode {
	m, err := models.ParseSizingMode(c.Journal.SizingMode)
	if err != nil {
		return models.RiskDriven
	}
	return m
}

// OpenTradePolicy returns the parsed open-trade policy.
func (c *Config) OpenTradePolicy() models.OpenTradePolicy {
	p, err := models.ParseOpenTradePolicy(c.Journal.OpenTradePolicy)
	if err != nil {
		return models.OpenFlat
	}
	return p
}

// ConfigFile returns the path of config.toml.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.Dir, "config.toml")
}
