package models

// Risk percent bounds applied to every configuration and override.
const (
	MinRiskPercent = 0.01
	MaxRiskPercent = 20.0
)

// RiskConfig is the account-level risk configuration for one market.
type RiskConfig struct {
	AccountSize float64 `json:"account_size" mapstructure:"account_size"`
	RiskPercent float64 `json:"risk_percent" mapstructure:"risk_percent"`
}

// DefaultRiskConfig returns the configuration used when nothing is stored.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{AccountSize: 10000, RiskPercent: 1}
}

// ResolvedRisk is the effective account size and risk percent for one trade.
type ResolvedRisk struct {
	AccountSize float64
	RiskPercent float64
}

// RiskAmount is the planned monetary risk, account × percent / 100.
func (r ResolvedRisk) RiskAmount() float64 {
	return r.AccountSize * r.RiskPercent / 100
}

// RiskSettings carries the per-market configurations.
type RiskSettings map[Market]RiskConfig

// For returns the configuration for the market, or the default.
func (s RiskSettings) For(m Market) RiskConfig {
	if cfg, ok := s[m]; ok {
		return cfg
	}
	return DefaultRiskConfig()
}
