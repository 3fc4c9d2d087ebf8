package journal

import (
	"trade-journal/internal/breakdown"
	"trade-journal/internal/errors"
	"trade-journal/internal/metrics"
	"trade-journal/internal/models"
)

// Queries read the active market's derived book. Results are copies and can
// be modified freely by the caller.

// Trades returns the trades passing filter in chronological order.
func (s *Session) Trades(filter models.FilterSpec) []models.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectTrades(filter)
}

func (s *Session) selectTrades(filter models.FilterSpec) []models.Trade {
	out := filter.Apply(s.derived[s.market])
	for i := range out {
		out[i] = cloneTrade(out[i])
	}
	return out
}

func cloneTrade(t models.Trade) models.Trade {
	t.RawTrade = t.RawTrade.Clone()
	t.TargetPrices = append([]float64(nil), t.TargetPrices...)
	if t.HoldMinutes != nil {
		m := *t.HoldMinutes
		t.HoldMinutes = &m
	}
	return t
}

// Trade returns one trade of the active market by id.
func (s *Session) Trade(id string) (models.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(s.market, id)
	if idx < 0 {
		return models.Trade{}, errors.Wrapf(errors.ErrTradeNotFound, "trade %s", id)
	}
	return cloneTrade(s.derived[s.market][idx]), nil
}

// Count returns the number of trades stored for a market.
func (s *Session) Count(m models.Market) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.raw[m])
}

// Metrics aggregates the filtered trades.
func (s *Session) Metrics(filter models.FilterSpec) models.Metrics {
	return metrics.Aggregate(s.Trades(filter))
}

// Breakdown groups the filtered trades by dim and summarizes each group.
func (s *Session) Breakdown(filter models.FilterSpec, dim breakdown.Dimension) []breakdown.GroupSummary {
	return breakdown.Run(s.Trades(filter), dim, s.opts.EMAPeriod)
}

// Heatmap tallies the filtered trades by weekday and time of day.
func (s *Session) Heatmap(filter models.FilterSpec) breakdown.HeatmapGrid {
	return breakdown.Heatmap(s.Trades(filter))
}

// Histogram bins the R multiples of the filtered trades.
func (s *Session) Histogram(filter models.FilterSpec, bins int) []breakdown.Bin {
	return breakdown.Histogram(metrics.RMultiples(s.Trades(filter)), bins)
}

// EquityPoint is one step of the cumulative P&L curve.
type EquityPoint struct {
	TradeID string  `json:"trade_id"`
	Date    string  `json:"date"`
	NetPnL  float64 `json:"net_pnl"`
	Equity  float64 `json:"equity"`
	Risk    float64 `json:"risk"`
}

// Equity returns the cumulative net P&L of the filtered trades, one point
// per trade, together with the risk carried by each.
func (s *Session) Equity(filter models.FilterSpec) []EquityPoint {
	trades := s.Trades(filter)
	curve := metrics.EquityCurve(trades)
	risk := metrics.RiskSeries(trades)

	out := make([]EquityPoint, len(trades))
	for i := range trades {
		out[i] = EquityPoint{
			TradeID: trades[i].ID,
			Date:    trades[i].EntryDate.Format(models.DateLayout),
			NetPnL:  trades[i].NetPnL,
			Equity:  curve[i],
			Risk:    risk[i],
		}
	}
	return out
}

// StrategyOptions lists the distinct strategy tags of the active market.
func (s *Session) StrategyOptions() []string {
	return breakdown.UniqueValues(s.Trades(models.FilterSpec{}), breakdown.FieldStrategy)
}

// InstrumentOptions lists the distinct instruments of the active market.
func (s *Session) InstrumentOptions() []string {
	return breakdown.UniqueValues(s.Trades(models.FilterSpec{}), breakdown.FieldInstrument)
}
