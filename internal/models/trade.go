package models

import "time"

// DateLayout is the calendar date layout used for entry and exit dates.
const DateLayout = "2006-01-02"

// EMADistance is the distance of the entry price from an EMA.
type EMADistance struct {
	Period int     `json:"period"`
	Abs    float64 `json:"abs"`
	Pct    float64 `json:"pct"`
}

// ScreenshotTag is the coarse classification produced by a screenshot scorer.
type ScreenshotTag string

const (
	TagDark     ScreenshotTag = "dark"
	TagBalanced ScreenshotTag = "balanced"
	TagBright   ScreenshotTag = "bright"
	TagFlat     ScreenshotTag = "flat"
)

// ScreenshotScore is the opaque result of scoring a chart screenshot.
type ScreenshotScore struct {
	Brightness float64       `json:"brightness"`
	Contrast   float64       `json:"contrast"`
	Tag        ScreenshotTag `json:"tag"`
}

// Screenshot is a chart image attached to a trade.
type Screenshot struct {
	Name  string           `json:"name"`
	Data  []byte           `json:"data,omitempty"`
	Score *ScreenshotScore `json:"score,omitempty"`
}

// RawTrade is a trade as entered by the user, before any derivation.
type RawTrade struct {
	ID        string     `json:"id"`
	EntryDate time.Time  `json:"entry_date"`
	EntryTime *Clock     `json:"entry_time,omitempty"`
	ExitDate  *time.Time `json:"exit_date,omitempty"`
	ExitTime  *Clock     `json:"exit_time,omitempty"`

	Instrument string    `json:"instrument"`
	Direction  Direction `json:"direction"`

	EntryPrice float64   `json:"entry_price"`
	StopLoss   float64   `json:"stop_loss"`
	ExitPrices []float64 `json:"exit_prices,omitempty"` // one final exit or up to three partials
	TargetRR   []float64 `json:"target_rr,omitempty"`   // planned reward:risk multiples

	// PositionSize overrides auto-sizing when > 0.
	PositionSize float64 `json:"position_size,omitempty"`
	// AccountSize and RiskPercent override the market configuration when > 0.
	AccountSize float64 `json:"account_size,omitempty"`
	RiskPercent float64 `json:"risk_percent,omitempty"`

	StrategyTag string        `json:"strategy_tag"`
	InitialMove string        `json:"initial_move,omitempty"`
	EMA         []EMADistance `json:"ema,omitempty"`
	Fees        float64       `json:"fees,omitempty"`

	Screenshot      *Screenshot `json:"screenshot,omitempty"`
	Notes           string      `json:"notes,omitempty"`
	PsychologyNotes string      `json:"psychology_notes,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}

// EntryAt returns the entry timestamp when both date and time are set.
func (r *RawTrade) EntryAt() (time.Time, bool) {
	return combine(r.EntryDate, r.EntryTime)
}

// ExitAt returns the exit timestamp when both date and time are set.
func (r *RawTrade) ExitAt() (time.Time, bool) {
	if r.ExitDate == nil {
		return time.Time{}, false
	}
	return combine(*r.ExitDate, r.ExitTime)
}

// SortKey orders trades chronologically; a missing entry time sorts as midnight.
func (r *RawTrade) SortKey() time.Time {
	if at, ok := r.EntryAt(); ok {
		return at
	}
	return r.EntryDate
}

// EntryHour returns the hour of the entry time, or 0 when no time is set.
func (r *RawTrade) EntryHour() int {
	if r.EntryTime == nil {
		return 0
	}
	return r.EntryTime.Hour
}

// EMAPct returns the percentage distance for the EMA period, or 0.
func (r *RawTrade) EMAPct(period int) float64 {
	for _, e := range r.EMA {
		if e.Period == period {
			return e.Pct
		}
	}
	return 0
}

// Clone returns a deep copy so edits never alias stored slices.
func (r RawTrade) Clone() RawTrade {
	c := r
	if r.EntryTime != nil {
		t := *r.EntryTime
		c.EntryTime = &t
	}
	if r.ExitDate != nil {
		d := *r.ExitDate
		c.ExitDate = &d
	}
	if r.ExitTime != nil {
		t := *r.ExitTime
		c.ExitTime = &t
	}
	c.ExitPrices = append([]float64(nil), r.ExitPrices...)
	c.TargetRR = append([]float64(nil), r.TargetRR...)
	c.EMA = append([]EMADistance(nil), r.EMA...)
	if r.Screenshot != nil {
		s := *r.Screenshot
		s.Data = append([]byte(nil), r.Screenshot.Data...)
		if r.Screenshot.Score != nil {
			score := *r.Screenshot.Score
			s.Score = &score
		}
		c.Screenshot = &s
	}
	return c
}

func combine(date time.Time, clock *Clock) (time.Time, bool) {
	if date.IsZero() || clock == nil {
		return time.Time{}, false
	}
	return time.Date(date.Year(), date.Month(), date.Day(), clock.Hour, clock.Minute, 0, 0, time.UTC), true
}

// Trade is a RawTrade with every derived field computed. It is always a pure
// function of the raw input and the risk configuration in force.
type Trade struct {
	RawTrade

	AccountSizeUsed float64 `json:"account_size_used"`
	RiskPctUsed     float64 `json:"risk_pct_used"`

	RiskPerUnit      float64 `json:"risk_per_unit"`
	PlannedRisk      float64 `json:"planned_risk"`
	RiskAmount       float64 `json:"risk_amount"`
	AutoSize         float64 `json:"auto_size"`
	PositionSizeUsed float64 `json:"position_size_used"`

	AvgExit       float64 `json:"avg_exit"`
	RewardPerUnit float64 `json:"reward_per_unit"`
	GrossPnL      float64 `json:"gross_pnl"`
	NetPnL        float64 `json:"net_pnl"`
	RMultiple     float64 `json:"r_multiple"`
	RRRatio       float64 `json:"rr_ratio"`
	ReturnPct     float64 `json:"return_pct"`

	Status       Status    `json:"status"`
	HoldMinutes  *int      `json:"hold_minutes"`
	TargetPrices []float64 `json:"target_prices,omitempty"`
}

// IsWin reports whether the trade counts as a win. Zero P&L is a win.
func (t *Trade) IsWin() bool {
	return t.NetPnL >= 0
}

// IsOpen reports whether the trade has no exit price yet.
func (t *Trade) IsOpen() bool {
	return t.Status == StatusOpen
}
