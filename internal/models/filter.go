package models

import (
	"strings"
	"time"
)

// FilterSpec narrows a trade collection. Every zero-valued field means
// "no constraint".
type FilterSpec struct {
	From       *time.Time // inclusive, by entry date
	To         *time.Time // inclusive, by entry date
	Strategy   string
	Instrument string
	Direction  Direction
	Statuses   []Status
}

// IsZero reports whether the filter has no constraints.
func (f FilterSpec) IsZero() bool {
	return f.From == nil && f.To == nil && f.Strategy == "" && f.Instrument == "" &&
		f.Direction == "" && len(f.Statuses) == 0
}

// Matches reports whether the trade passes every constraint.
func (f FilterSpec) Matches(t *Trade) bool {
	day := dateOnly(t.EntryDate)
	if f.From != nil && day.Before(dateOnly(*f.From)) {
		return false
	}
	if f.To != nil && day.After(dateOnly(*f.To)) {
		return false
	}
	if f.Strategy != "" && t.StrategyTag != f.Strategy {
		return false
	}
	if f.Instrument != "" && !strings.EqualFold(t.Instrument, f.Instrument) {
		return false
	}
	if f.Direction != "" && t.Direction != f.Direction {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if t.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Apply returns the trades that match, preserving order.
func (f FilterSpec) Apply(trades []Trade) []Trade {
	if f.IsZero() {
		out := make([]Trade, len(trades))
		copy(out, trades)
		return out
	}
	out := make([]Trade, 0, len(trades))
	for i := range trades {
		if f.Matches(&trades[i]) {
			out = append(out, trades[i])
		}
	}
	return out
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
