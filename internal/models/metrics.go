package models

// Metrics holds portfolio-level statistics for a trade collection.
// Every rate and average is 0 for an empty collection.
type Metrics struct {
	TotalTrades int `json:"total_trades"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
	OpenTrades  int `json:"open_trades"`
	StopHits    int `json:"stop_hits"`

	WinRate float64 `json:"win_rate"` // percent

	TotalGross  float64 `json:"total_gross"`
	TotalNet    float64 `json:"total_net"`
	TotalFees   float64 `json:"total_fees"`
	GrossProfit float64 `json:"gross_profit"`
	GrossLoss   float64 `json:"gross_loss"` // absolute value
	// ProfitFactor is GrossProfit/GrossLoss. When there are no losses but
	// some profit it holds the ProfitFactorSentinel rather than +Inf.
	ProfitFactor float64 `json:"profit_factor"`

	AvgR        float64 `json:"avg_r"`
	AvgWin      float64 `json:"avg_win"`
	AvgLoss     float64 `json:"avg_loss"`
	AvgWinR     float64 `json:"avg_win_r"`
	AvgLossR    float64 `json:"avg_loss_r"`
	ExpectancyR float64 `json:"expectancy_r"`
	RStdDev     float64 `json:"r_stddev"`

	MaxDrawdown    float64 `json:"max_drawdown"`
	AvgRR          float64 `json:"avg_rr"`
	AvgHoldMinutes float64 `json:"avg_hold_minutes"`

	LargestWin           float64 `json:"largest_win"`
	LargestLoss          float64 `json:"largest_loss"`
	MaxConsecutiveWins   int     `json:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `json:"max_consecutive_losses"`
}

// ProfitFactorSentinel marks a profit factor with profit and no losses.
const ProfitFactorSentinel = 99.0
