// Package models provides domain models for the trade journal.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Direction represents the side of a trade.
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// Sign returns +1 for Long and -1 for anything else.
func (d Direction) Sign() float64 {
	if d == Long {
		return 1
	}
	return -1
}

// ParseDirection parses a direction case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy", "l":
		return Long, nil
	case "short", "sell", "s":
		return Short, nil
	default:
		return "", fmt.Errorf("unknown direction %q (must be Long or Short)", s)
	}
}

// Status is the classification of a derived trade.
type Status string

const (
	StatusWin   Status = "Win"
	StatusLoss  Status = "Loss"
	StatusOpen  Status = "Open"
	StatusSLHit Status = "SL Hit"
)

// ParseStatus parses a status name case-insensitively.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "win":
		return StatusWin, nil
	case "loss":
		return StatusLoss, nil
	case "open":
		return StatusOpen, nil
	case "sl", "sl hit", "sl-hit", "slhit", "stop":
		return StatusSLHit, nil
	default:
		return "", fmt.Errorf("unknown status %q", s)
	}
}

// Market identifies a book-keeping segment. Each market has its own risk
// configuration and its own trade collection.
type Market string

const (
	MarketUSA   Market = "usa"
	MarketIndia Market = "india"
)

// Markets lists the supported markets in display order.
var Markets = []Market{MarketUSA, MarketIndia}

// ParseMarket parses a market name.
func ParseMarket(s string) (Market, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "usa", "us":
		return MarketUSA, nil
	case "india", "in":
		return MarketIndia, nil
	default:
		return "", fmt.Errorf("unknown market %q (must be usa or india)", s)
	}
}

// Currency returns the ISO currency code used by the market.
func (m Market) Currency() string {
	if m == MarketIndia {
		return "INR"
	}
	return "USD"
}

// SizingMode selects how position size and risk amount relate.
type SizingMode string

const (
	// SizeDriven takes the position size from the user and derives the risk
	// amount from size × risk per unit.
	SizeDriven SizingMode = "size"
	// RiskDriven takes a risk percent of the account and derives the size
	// from risk amount / risk per unit.
	RiskDriven SizingMode = "risk"
)

// ParseSizingMode parses a sizing mode name.
func ParseSizingMode(s string) (SizingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "size", "size-driven", "manual":
		return SizeDriven, nil
	case "risk", "risk-driven", "auto":
		return RiskDriven, nil
	default:
		return "", fmt.Errorf("unknown sizing mode %q (must be size or risk)", s)
	}
}

// OpenTradePolicy decides how a trade without any exit price is valued.
type OpenTradePolicy string

const (
	// OpenFlat values an open trade at zero P&L.
	OpenFlat OpenTradePolicy = "flat"
	// OpenAssumeStop values an open trade at a full stop-loss outcome
	// (net P&L = -risk amount, R = -1) when a stop distance exists.
	OpenAssumeStop OpenTradePolicy = "assume_stop"
)

// ParseOpenTradePolicy parses an open-trade policy name.
func ParseOpenTradePolicy(s string) (OpenTradePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "flat", "":
		return OpenFlat, nil
	case "assume_stop", "assume-stop", "stop":
		return OpenAssumeStop, nil
	default:
		return "", fmt.Errorf("unknown open trade policy %q (must be flat or assume_stop)", s)
	}
}

// Clock is a wall-clock time of day.
type Clock struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
}

// ParseClock parses "HH:MM" or "HH:MM:SS".
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return Clock{}, fmt.Errorf("invalid time %q (want HH:MM)", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return Clock{}, fmt.Errorf("invalid hour in %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return Clock{}, fmt.Errorf("invalid minute in %q", s)
	}
	return Clock{Hour: h, Minute: m}, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}
