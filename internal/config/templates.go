package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Trade Journal Configuration

[journal]
# Market used when --market is not given: "usa" or "india"
default_market = "usa"
# Sizing mode: "risk" derives position size from the risk budget,
# "size" takes the entered size and derives the risk amount from it
sizing_mode = "risk"
# Valuation of trades without an exit: "flat" (zero P&L) or
# "assume_stop" (full stop-loss outcome)
open_trade_policy = "flat"
# Strategy tag applied when a trade is added without one
default_strategy = ""
# EMA period used by the EMA-distance breakdown
ema_period = 20

[store]
# Snapshot backend: "sqlite" or "file" (.json or .msgpack by extension)
driver = "sqlite"
# path = "~/.config/trade-journal/journal.db"

# Seed risk configuration per market. Values set with 'journal risk set'
# are stored in the journal and take precedence.
[markets.usa]
account_size = 10000.0
risk_percent = 1.0

[markets.india]
account_size = 500000.0
risk_percent = 1.0

[logging]
# Log level: debug, info, warn, error
level = "warn"
console = true
file = true
# Rotation limits (megabytes, files, days)
max_size = 20
max_backups = 5
max_age = 30
`

const envTemplate = `# Trade Journal environment overrides
# JOURNAL_MARKET=india
# JOURNAL_SIZING_MODE=size
# JOURNAL_OPEN_POLICY=assume_stop
# JOURNAL_STORE=file
# JOURNAL_STORE_PATH=/path/to/journal.msgpack
# JOURNAL_LOG_LEVEL=debug
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	envPath := filepath.Join(configDir, ".env.example")
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		if err := os.WriteFile(envPath, []byte(envTemplate), 0644); err != nil {
			return fmt.Errorf("writing env template: %w", err)
		}
	}

	return nil
}
