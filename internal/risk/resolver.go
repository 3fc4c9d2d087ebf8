// Package risk resolves the effective account size and risk percent for a
// trade. Per-trade overrides win when strictly positive; otherwise the
// configuration of the trade's market applies.
package risk

import (
	"math"

	"trade-journal/internal/models"
	"trade-journal/internal/numeric"
)

// Resolve returns the account size and risk percent used to derive raw.
func Resolve(raw *models.RawTrade, settings models.RiskSettings, market models.Market) models.ResolvedRisk {
	return ResolveWith(raw, settings.For(market))
}

// ResolveWith applies raw's overrides on top of cfg.
func ResolveWith(raw *models.RawTrade, cfg models.RiskConfig) models.ResolvedRisk {
	account := cfg.AccountSize
	if v := numeric.Finite(raw.AccountSize); v > 0 {
		account = v
	}
	pct := cfg.RiskPercent
	if v := numeric.Finite(raw.RiskPercent); v > 0 {
		pct = v
	}
	return models.ResolvedRisk{
		AccountSize: math.Max(numeric.Finite(account), 0),
		RiskPercent: ClampPercent(pct),
	}
}

// ClampPercent limits a risk percent to the supported range.
func ClampPercent(pct float64) float64 {
	return numeric.Clamp(numeric.Finite(pct), models.MinRiskPercent, models.MaxRiskPercent)
}

// Normalize clamps a stored configuration into range.
func Normalize(cfg models.RiskConfig) models.RiskConfig {
	return models.RiskConfig{
		AccountSize: math.Max(numeric.Finite(cfg.AccountSize), 0),
		RiskPercent: ClampPercent(cfg.RiskPercent),
	}
}
