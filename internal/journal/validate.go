package journal

import (
	"math"
	"strings"
	"unicode"

	"trade-journal/internal/errors"
	"trade-journal/internal/models"
)

// Entry limits.
const (
	MaxExitPrices    = 3
	MaxTargets       = 3
	maxInstrumentLen = 40
)

// Validate checks a raw record at the input boundary and normalizes the
// direction spelling. Derivation never fails; this is the only place a
// record is rejected.
func Validate(raw *models.RawTrade) error {
	if raw.EntryDate.IsZero() {
		return errors.NewValidationError("entry_date", "", "entry date is required")
	}
	if raw.ExitDate != nil && raw.ExitDate.Before(raw.EntryDate) {
		return errors.NewValidationError("exit_date", raw.ExitDate.Format(models.DateLayout), "exit date is before entry date")
	}

	if raw.Instrument == "" {
		return errors.NewValidationError("instrument", raw.Instrument, "instrument cannot be empty")
	}
	if len(raw.Instrument) > maxInstrumentLen {
		return errors.NewValidationError("instrument", raw.Instrument, "instrument too long (max 40 characters)")
	}
	if strings.IndexFunc(raw.Instrument, unicode.IsControl) >= 0 {
		return errors.NewValidationError("instrument", raw.Instrument, "instrument contains control characters")
	}

	dir, err := models.ParseDirection(string(raw.Direction))
	if err != nil {
		return errors.NewValidationError("direction", raw.Direction, err.Error())
	}
	raw.Direction = dir

	fields := []struct {
		name string
		v    float64
	}{
		{"entry_price", raw.EntryPrice},
		{"stop_loss", raw.StopLoss},
		{"position_size", raw.PositionSize},
		{"account_size", raw.AccountSize},
		{"risk_percent", raw.RiskPercent},
		{"fees", raw.Fees},
	}
	for _, f := range fields {
		if err := nonNegative(f.name, f.v); err != nil {
			return err
		}
	}

	if len(raw.ExitPrices) > MaxExitPrices {
		return errors.NewValidationError("exit_prices", len(raw.ExitPrices), "at most 3 exit prices")
	}
	for _, p := range raw.ExitPrices {
		if err := nonNegative("exit_prices", p); err != nil {
			return err
		}
	}
	if len(raw.TargetRR) > MaxTargets {
		return errors.NewValidationError("target_rr", len(raw.TargetRR), "at most 3 targets")
	}
	for _, rr := range raw.TargetRR {
		if err := nonNegative("target_rr", rr); err != nil {
			return err
		}
	}
	return nil
}

func nonNegative(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.NewValidationError(field, v, "must be a finite number")
	}
	if v < 0 {
		return errors.NewValidationError(field, v, "must be non-negative")
	}
	return nil
}
