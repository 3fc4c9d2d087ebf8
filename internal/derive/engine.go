// Package derive turns a raw trade into a fully derived trade.
//
// Derivation is a pure, total function of the raw input and the resolved
// risk configuration. Missing or invalid numbers count as 0 and every
// division is guarded, so a derived trade never carries NaN or Inf.
package derive

import (
	"math"

	"trade-journal/internal/models"
	"trade-journal/internal/numeric"
	"trade-journal/internal/risk"
)

// Engine derives trades under one sizing mode and open-trade policy.
type Engine struct {
	mode   models.SizingMode
	policy models.OpenTradePolicy
}

// NewEngine creates an Engine. Unknown values fall back to risk-driven
// sizing and the flat open-trade policy.
func NewEngine(mode models.SizingMode, policy models.OpenTradePolicy) *Engine {
	if mode != models.SizeDriven {
		mode = models.RiskDriven
	}
	if policy != models.OpenAssumeStop {
		policy = models.OpenFlat
	}
	return &Engine{mode: mode, policy: policy}
}

// Mode returns the sizing mode.
func (e *Engine) Mode() models.SizingMode { return e.mode }

// Policy returns the open-trade policy.
func (e *Engine) Policy() models.OpenTradePolicy { return e.policy }

// DeriveWith resolves the risk configuration for market and derives raw.
func (e *Engine) DeriveWith(raw models.RawTrade, settings models.RiskSettings, market models.Market) models.Trade {
	return e.Derive(raw, risk.Resolve(&raw, settings, market))
}

// Derive computes every derived field of raw using the resolved risk values.
func (e *Engine) Derive(raw models.RawTrade, resolved models.ResolvedRisk) models.Trade {
	t := models.Trade{RawTrade: raw}

	entry := numeric.Finite(raw.EntryPrice)
	stop := numeric.Finite(raw.StopLoss)
	fees := numeric.Finite(raw.Fees)
	sign := raw.Direction.Sign()

	t.AccountSizeUsed = resolved.AccountSize
	t.RiskPctUsed = resolved.RiskPercent
	t.RiskPerUnit = math.Abs(entry - stop)
	t.PlannedRisk = numeric.Finite(resolved.RiskAmount())

	e.size(&t)

	exits := positiveExits(raw.ExitPrices)
	t.AvgExit = numeric.Average(exits)

	if len(exits) == 0 {
		t.Status = models.StatusOpen
		if e.policy == models.OpenAssumeStop && t.RiskAmount > 0 {
			t.RewardPerUnit = -t.RiskPerUnit
			t.GrossPnL = -t.RiskAmount
			t.NetPnL = -t.RiskAmount
			t.RMultiple = -1
			t.RRRatio = -1
			t.ReturnPct = returnPct(t.NetPnL, entry, t.PositionSizeUsed)
		}
	} else {
		t.RewardPerUnit = (t.AvgExit - entry) * sign
		t.GrossPnL = t.RewardPerUnit * t.PositionSizeUsed
		t.NetPnL = t.GrossPnL - fees
		if t.RiskAmount > 0 {
			t.RMultiple = numeric.SafeDiv(t.NetPnL, t.RiskAmount)
		}
		if t.RiskPerUnit > 0 {
			t.RRRatio = numeric.SafeDiv(t.RewardPerUnit, t.RiskPerUnit)
		}
		t.ReturnPct = returnPct(t.NetPnL, entry, t.PositionSizeUsed)
		t.Status = classify(raw.Direction, stop, exits, t.NetPnL)
	}

	t.HoldMinutes = HoldMinutes(&raw)
	t.TargetPrices = targetPrices(raw.TargetRR, entry, t.RiskPerUnit, sign)

	sanitize(&t)
	return t
}

// size fills AutoSize, PositionSizeUsed and RiskAmount according to the mode.
func (e *Engine) size(t *models.Trade) {
	manual := numeric.Finite(t.PositionSize)
	hasManual := manual > 0

	switch e.mode {
	case models.SizeDriven:
		if hasManual {
			t.PositionSizeUsed = manual
		}
		t.RiskAmount = t.RiskPerUnit * t.PositionSizeUsed
	default:
		if t.RiskPerUnit > 0 {
			t.AutoSize = numeric.SafeDiv(t.PlannedRisk, t.RiskPerUnit)
		}
		if hasManual {
			t.PositionSizeUsed = manual
			t.RiskAmount = t.RiskPerUnit * manual
		} else {
			t.PositionSizeUsed = t.AutoSize
			if t.RiskPerUnit > 0 {
				t.RiskAmount = t.PlannedRisk
			}
		}
	}
}

// classify assigns Win, Loss or SL Hit to a trade with at least one exit.
func classify(dir models.Direction, stop float64, exits []float64, net float64) models.Status {
	if stop > 0 && net <= 0 {
		for _, x := range exits {
			if breachesStop(dir, stop, x) {
				return models.StatusSLHit
			}
		}
	}
	if net >= 0 {
		return models.StatusWin
	}
	return models.StatusLoss
}

// breachesStop reports whether exit is at or beyond the stop on the adverse side.
func breachesStop(dir models.Direction, stop, exit float64) bool {
	if dir == models.Long {
		return exit <= stop
	}
	return exit >= stop
}

// HoldMinutes returns the minutes between entry and exit, or nil when either
// timestamp is missing or the exit is not after the entry.
func HoldMinutes(raw *models.RawTrade) *int {
	start, ok := raw.EntryAt()
	if !ok {
		return nil
	}
	end, ok := raw.ExitAt()
	if !ok {
		return nil
	}
	mins := int(math.Round(end.Sub(start).Minutes()))
	if mins <= 0 {
		return nil
	}
	return &mins
}

func positiveExits(prices []float64) []float64 {
	out := make([]float64, 0, len(prices))
	for _, p := range prices {
		if v := numeric.Finite(p); v > 0 {
			out = append(out, v)
		}
	}
	return out
}

func returnPct(net, entry, size float64) float64 {
	if entry <= 0 {
		return 0
	}
	return numeric.SafeDiv(net, entry*size) * 100
}

func targetPrices(rrs []float64, entry, riskPerUnit, sign float64) []float64 {
	if riskPerUnit <= 0 || len(rrs) == 0 {
		return nil
	}
	var out []float64
	for _, rr := range rrs {
		if v := numeric.Finite(rr); v > 0 {
			out = append(out, entry+sign*v*riskPerUnit)
		}
	}
	return out
}

// sanitize replaces any non-finite derived value with 0.
func sanitize(t *models.Trade) {
	for _, f := range []*float64{
		&t.AccountSizeUsed, &t.RiskPctUsed, &t.RiskPerUnit, &t.PlannedRisk,
		&t.RiskAmount, &t.AutoSize, &t.PositionSizeUsed, &t.AvgExit,
		&t.RewardPerUnit, &t.GrossPnL, &t.NetPnL, &t.RMultiple, &t.RRRatio,
		&t.ReturnPct,
	} {
		*f = numeric.Finite(*f)
	}
	for i := range t.TargetPrices {
		t.TargetPrices[i] = numeric.Finite(t.TargetPrices[i])
	}
}
