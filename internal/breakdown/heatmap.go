package breakdown

import (
	"math"
	"sort"
	"strings"

	"trade-journal/internal/models"
	"trade-journal/internal/numeric"
)

// Cell is one weekday × time-bucket cell of the heatmap.
type Cell struct {
	Count  int     `json:"count"`
	NetPnL float64 `json:"net_pnl"`
}

// HeatmapGrid holds cells indexed [weekday][bucket] in the order of Days and
// Buckets.
type HeatmapGrid struct {
	Days    []string `json:"days"`
	Buckets []string `json:"buckets"`
	Cells   [][]Cell `json:"cells"`
}

// Cell returns the cell for a weekday and bucket label.
func (h HeatmapGrid) Cell(day, bucket string) Cell {
	di := indexOf(h.Days, day)
	bi := indexOf(h.Buckets, bucket)
	if di < 0 || bi < 0 {
		return Cell{}
	}
	return h.Cells[di][bi]
}

// Heatmap tallies trade count and net P&L per weekday and time bucket.
// Trades without an entry date are skipped.
func Heatmap(trades []models.Trade) HeatmapGrid {
	h := HeatmapGrid{
		Days:    append([]string(nil), Weekdays...),
		Buckets: TimeBucketLabels(),
	}
	h.Cells = make([][]Cell, len(h.Days))
	for i := range h.Cells {
		h.Cells[i] = make([]Cell, len(h.Buckets))
	}

	for i := range trades {
		t := &trades[i]
		di := indexOf(h.Days, ByWeekday(t))
		bi := indexOf(h.Buckets, ByTimeOfDay(t))
		if di < 0 || bi < 0 {
			continue
		}
		c := &h.Cells[di][bi]
		c.Count++
		c.NetPnL += numeric.Finite(t.NetPnL)
	}
	return h
}

func indexOf(labels []string, s string) int {
	for i, l := range labels {
		if l == s {
			return i
		}
	}
	return -1
}

// Bin is one equal-width histogram bin [Start, End). The last bin is closed.
type Bin struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int     `json:"count"`
}

// DefaultBins is the bin count of the R-multiple distribution.
const DefaultBins = 8

// MaxBins bounds the bin count; larger requests are clamped to it.
const MaxBins = 200

// Histogram splits the finite values into bins equal-width bins between
// their min and max. When all values are equal the span is taken as 1.
func Histogram(values []float64, bins int) []Bin {
	if bins <= 0 {
		bins = DefaultBins
	}
	bins = min(bins, MaxBins)
	clean := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			clean = append(clean, v)
		}
	}
	if len(clean) == 0 {
		return nil
	}

	lo, hi := clean[0], clean[0]
	for _, v := range clean[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	step := span / float64(bins)

	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Start: lo + float64(i)*step, End: lo + float64(i+1)*step}
	}
	for _, v := range clean {
		idx := int(math.Floor((v - lo) / step))
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// Field selects the trade attribute UniqueValues collects.
type Field int

const (
	FieldStrategy Field = iota
	FieldInstrument
)

// UniqueValues returns the sorted distinct non-blank values of field.
func UniqueValues(trades []models.Trade, field Field) []string {
	seen := make(map[string]bool)
	var out []string
	for i := range trades {
		var v string
		switch field {
		case FieldInstrument:
			v = trades[i].Instrument
		default:
			v = trades[i].StrategyTag
		}
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
