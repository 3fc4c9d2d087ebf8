package breakdown

import (
	"fmt"
	"math"
	"strings"

	"trade-journal/internal/models"
)

// Weekdays are the weekday labels in display order.
var Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

var weekdayLabels = [...]string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// TimeBucket is a half-open range of entry hours [Start, End).
type TimeBucket struct {
	Label string
	Start int
	End   int
}

// TimeBuckets is the fixed time-of-day table.
var TimeBuckets = []TimeBucket{
	{Label: "Pre", Start: 0, End: 9},
	{Label: "Open", Start: 9, End: 12},
	{Label: "Mid", Start: 12, End: 15},
	{Label: "Close", Start: 15, End: 24},
}

// EMABin is a half-open range of absolute EMA distance in percent [Min, Max).
type EMABin struct {
	Label string
	Min   float64
	Max   float64
}

// EMABins is the fixed EMA-distance magnitude table.
var EMABins = []EMABin{
	{Label: "0-0.5%", Min: 0, Max: 0.5},
	{Label: "0.5-1%", Min: 0.5, Max: 1},
	{Label: "1-2%", Min: 1, Max: 2},
	{Label: "2%+", Min: 2, Max: math.Inf(1)},
}

// TimeBucketLabels returns the time-of-day labels in table order.
func TimeBucketLabels() []string {
	out := make([]string, len(TimeBuckets))
	for i, b := range TimeBuckets {
		out[i] = b.Label
	}
	return out
}

// EMABinLabels returns the bin labels of the EMA table.
func EMABinLabels() []string {
	out := make([]string, len(EMABins))
	for i, b := range EMABins {
		out[i] = b.Label
	}
	return out
}

// ByStrategy groups by strategy tag; blank tags become "Unlabeled".
func ByStrategy(t *models.Trade) string {
	if tag := strings.TrimSpace(t.StrategyTag); tag != "" {
		return tag
	}
	return models.UnlabeledStrategy
}

// ByWeekday groups by the weekday of the entry date, "" when no date is set.
func ByWeekday(t *models.Trade) string {
	if t.EntryDate.IsZero() {
		return ""
	}
	return weekdayLabels[t.EntryDate.Weekday()]
}

// ByTimeOfDay groups by the time bucket of the entry hour. A missing entry
// time counts as hour 0.
func ByTimeOfDay(t *models.Trade) string {
	return TimeBucketFor(t.EntryHour())
}

// TimeBucketFor returns the bucket label for an hour, "" when out of range.
func TimeBucketFor(hour int) string {
	for _, b := range TimeBuckets {
		if hour >= b.Start && hour < b.End {
			return b.Label
		}
	}
	return ""
}

// ByEMADistance returns a key function binning |distance %| from the EMA of
// the given period. Trades without a reading fall into the first bin.
func ByEMADistance(period int) KeyFunc[string] {
	return func(t *models.Trade) string {
		return EMABinFor(t.EMAPct(period))
	}
}

// EMABinFor returns the bin label for a distance percentage.
func EMABinFor(pct float64) string {
	v := math.Abs(pct)
	if math.IsNaN(v) {
		v = 0
	}
	for _, b := range EMABins {
		if v >= b.Min && v < b.Max {
			return b.Label
		}
	}
	return EMABins[len(EMABins)-1].Label
}

// ByInstrument groups by upper-cased instrument symbol.
func ByInstrument(t *models.Trade) string {
	return strings.ToUpper(strings.TrimSpace(t.Instrument))
}

// ByDirection groups by Long/Short.
func ByDirection(t *models.Trade) string {
	return string(t.Direction)
}

// Dimension names a built-in breakdown.
type Dimension string

const (
	DimStrategy   Dimension = "strategy"
	DimWeekday    Dimension = "weekday"
	DimTimeOfDay  Dimension = "time"
	DimEMA        Dimension = "ema"
	DimInstrument Dimension = "instrument"
	DimDirection  Dimension = "direction"
)

// Dimensions lists the built-in breakdowns.
var Dimensions = []Dimension{DimStrategy, DimWeekday, DimTimeOfDay, DimEMA, DimInstrument, DimDirection}

// ParseDimension parses a dimension name.
func ParseDimension(s string) (Dimension, error) {
	d := Dimension(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case "tod", "time-of-day", "hour":
		return DimTimeOfDay, nil
	case "dow", "day":
		return DimWeekday, nil
	}
	for _, known := range Dimensions {
		if d == known {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown breakdown %q", s)
}

// Run groups trades along the dimension and summarizes each group. Weekday,
// time-of-day and EMA breakdowns use their fixed label order with empty
// groups included; the others keep first-seen order.
func Run(trades []models.Trade, dim Dimension, emaPeriod int) []GroupSummary {
	switch dim {
	case DimWeekday:
		return InOrder(Summarize(GroupBy(trades, ByWeekday)), Weekdays)
	case DimTimeOfDay:
		return InOrder(Summarize(GroupBy(trades, ByTimeOfDay)), TimeBucketLabels())
	case DimEMA:
		return InOrder(Summarize(GroupBy(trades, ByEMADistance(emaPeriod))), EMABinLabels())
	case DimInstrument:
		return Summarize(GroupBy(trades, ByInstrument))
	case DimDirection:
		return Summarize(GroupBy(trades, ByDirection))
	default:
		return Summarize(GroupBy(trades, ByStrategy))
	}
}
