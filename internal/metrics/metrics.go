// Package metrics aggregates derived trades into portfolio statistics.
package metrics

import (
	"math"

	"trade-journal/internal/models"
	"trade-journal/internal/numeric"
)

// Aggregate computes portfolio statistics over trades in the given order.
// Drawdown and streaks depend on that order, so callers pass trades sorted
// the way they want them walked (normally chronologically).
//
// An open trade carried at zero P&L has no outcome yet: it counts toward
// TotalTrades and OpenTrades but stays out of the win/loss split, the win
// rate and the R averages. Open trades valued at the stop under the
// assume_stop policy are losses.
func Aggregate(trades []models.Trade) models.Metrics {
	m := models.Metrics{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return m
	}

	var (
		pnls, gross, fees, rs, rrs []float64
		winPnL, lossPnL            []float64
		winR, lossR                []float64
		holds                      []float64
		winStreak, lossStreak      int
	)

	for i := range trades {
		t := &trades[i]
		pnls = append(pnls, t.NetPnL)
		gross = append(gross, t.GrossPnL)
		fees = append(fees, t.Fees)

		switch t.Status {
		case models.StatusOpen:
			m.OpenTrades++
		case models.StatusSLHit:
			m.StopHits++
		}
		if !Decided(t) {
			continue
		}

		rs = append(rs, t.RMultiple)
		rrs = append(rrs, t.RRRatio)
		if t.HoldMinutes != nil && *t.HoldMinutes > 0 {
			holds = append(holds, float64(*t.HoldMinutes))
		}

		if t.IsWin() {
			m.Wins++
			winPnL = append(winPnL, t.NetPnL)
			winR = append(winR, t.RMultiple)
			winStreak++
			lossStreak = 0
			m.LargestWin = math.Max(m.LargestWin, numeric.Finite(t.NetPnL))
		} else {
			m.Losses++
			lossPnL = append(lossPnL, t.NetPnL)
			lossR = append(lossR, t.RMultiple)
			lossStreak++
			winStreak = 0
			m.LargestLoss = math.Min(m.LargestLoss, numeric.Finite(t.NetPnL))
		}
		if winStreak > m.MaxConsecutiveWins {
			m.MaxConsecutiveWins = winStreak
		}
		if lossStreak > m.MaxConsecutiveLosses {
			m.MaxConsecutiveLosses = lossStreak
		}
	}

	m.TotalGross = numeric.Sum(gross)
	m.TotalNet = numeric.Sum(pnls)
	m.TotalFees = numeric.Sum(fees)
	if decided := m.Wins + m.Losses; decided > 0 {
		m.WinRate = float64(m.Wins) / float64(decided) * 100
	}

	m.AvgR = numeric.Average(rs)
	m.RStdDev = numeric.StdDev(rs)
	m.AvgWin = numeric.Average(winPnL)
	m.AvgLoss = numeric.Average(lossPnL)
	m.AvgWinR = numeric.Average(winR)
	m.AvgLossR = numeric.Average(lossR)
	m.ExpectancyR = Expectancy(m.WinRate, m.AvgWinR, m.AvgLossR)

	m.MaxDrawdown = MaxDrawdown(pnls)
	m.AvgRR = numeric.Average(rrs)
	m.AvgHoldMinutes = numeric.Average(holds)

	m.GrossProfit = numeric.Sum(winPnL)
	m.GrossLoss = math.Abs(numeric.Sum(lossPnL))
	m.ProfitFactor = ProfitFactor(m.GrossProfit, m.GrossLoss)

	return m
}

// Decided reports whether t has an outcome to classify as a win or a loss.
func Decided(t *models.Trade) bool {
	return t.Status != models.StatusOpen || t.NetPnL != 0
}

// Expectancy weights the average win R and average loss R by the win rate
// (given in percent).
func Expectancy(winRatePct, avgWinR, avgLossR float64) float64 {
	p := winRatePct / 100
	return numeric.Finite(p*avgWinR + (1-p)*avgLossR)
}

// ProfitFactor returns grossProfit / |grossLoss|. With no losses it returns
// models.ProfitFactorSentinel when there is profit, and 0 otherwise.
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	grossLoss = math.Abs(grossLoss)
	if grossLoss > 0 {
		return numeric.SafeDiv(grossProfit, grossLoss)
	}
	if grossProfit > 0 {
		return models.ProfitFactorSentinel
	}
	return 0
}

// MaxDrawdown walks the cumulative equity of pnls in order and returns the
// largest peak-to-trough decline. The peak starts at 0 equity.
func MaxDrawdown(pnls []float64) float64 {
	var peak, equity, maxDD float64
	for _, p := range pnls {
		equity += numeric.Finite(p)
		peak = math.Max(peak, equity)
		maxDD = math.Max(maxDD, peak-equity)
	}
	return maxDD
}

// Cumulative returns the running sum of values.
func Cumulative(values []float64) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += numeric.Finite(v)
		out[i] = sum
	}
	return out
}

// EquityCurve returns cumulative net P&L across trades.
func EquityCurve(trades []models.Trade) []float64 {
	return Cumulative(NetPnLs(trades))
}

// NetPnLs extracts net P&L per trade.
func NetPnLs(trades []models.Trade) []float64 {
	out := make([]float64, len(trades))
	for i := range trades {
		out[i] = trades[i].NetPnL
	}
	return out
}

// RMultiples extracts the R-multiple per trade.
func RMultiples(trades []models.Trade) []float64 {
	out := make([]float64, len(trades))
	for i := range trades {
		out[i] = trades[i].RMultiple
	}
	return out
}

// RiskSeries extracts the risk amount per trade.
func RiskSeries(trades []models.Trade) []float64 {
	out := make([]float64, len(trades))
	for i := range trades {
		out[i] = trades[i].RiskAmount
	}
	return out
}

// Best returns the trade with the highest net P&L (first on ties), or nil.
func Best(trades []models.Trade) *models.Trade {
	if len(trades) == 0 {
		return nil
	}
	best := &trades[0]
	for i := range trades[1:] {
		if t := &trades[i+1]; t.NetPnL > best.NetPnL {
			best = t
		}
	}
	return best
}

// Worst returns the trade with the lowest net P&L (first on ties), or nil.
func Worst(trades []models.Trade) *models.Trade {
	if len(trades) == 0 {
		return nil
	}
	worst := &trades[0]
	for i := range trades[1:] {
		if t := &trades[i+1]; t.NetPnL < worst.NetPnL {
			worst = t
		}
	}
	return worst
}
