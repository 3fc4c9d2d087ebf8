package breakdown

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/models"
)

// 2024-01-01 is a Monday.
var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func mk(day int, hour int, strategy string, net float64) models.Trade {
	t := models.Trade{NetPnL: net}
	t.EntryDate = monday.AddDate(0, 0, day)
	if hour >= 0 {
		t.EntryTime = &models.Clock{Hour: hour}
	}
	t.StrategyTag = strategy
	t.Direction = models.Long
	return t
}

func TestGroupByFirstSeenOrder(t *testing.T) {
	trades := []models.Trade{
		mk(0, 10, "Breakout", 10),
		mk(0, 10, "", -5),
		mk(1, 10, "Pullback", 3),
		mk(2, 10, "Breakout", 7),
		mk(3, 10, "  ", 1),
	}

	g := GroupBy(trades, ByStrategy)
	assert.Equal(t, []string{"Breakout", models.UnlabeledStrategy, "Pullback"}, g.Keys())
	assert.Equal(t, 3, g.Len())
	assert.Len(t, g.Get("Breakout"), 2)
	assert.Len(t, g.Get(models.UnlabeledStrategy), 2)
	assert.Nil(t, g.Get("missing"))

	summaries := Summarize(g)
	require.Len(t, summaries, 3)
	assert.Equal(t, "Breakout", summaries[0].Key)
	assert.InDelta(t, 17.0, summaries[0].Metrics.TotalNet, 1e-9)
	assert.Equal(t, []float64{10, 17}, summaries[0].Equity)
	require.NotNil(t, summaries[0].Best)
	assert.Equal(t, 10.0, summaries[0].Best.NetPnL)
	assert.Equal(t, 7.0, summaries[0].Worst.NetPnL)
}

func TestByWeekday(t *testing.T) {
	tr := mk(0, 9, "", 0)
	assert.Equal(t, "Mon", ByWeekday(&tr))
	tr = mk(6, 9, "", 0)
	assert.Equal(t, "Sun", ByWeekday(&tr))

	var missing models.Trade
	assert.Equal(t, "", ByWeekday(&missing))
}

func TestTimeBuckets(t *testing.T) {
	cases := map[int]string{0: "Pre", 8: "Pre", 9: "Open", 11: "Open", 12: "Mid", 14: "Mid", 15: "Close", 23: "Close", 24: ""}
	for hour, want := range cases {
		assert.Equal(t, want, TimeBucketFor(hour), "hour %d", hour)
	}

	noTime := mk(0, -1, "", 0)
	assert.Equal(t, "Pre", ByTimeOfDay(&noTime), "missing entry time counts as hour 0")
}

func TestEMABins(t *testing.T) {
	cases := map[float64]string{0: "0-0.5%", 0.49: "0-0.5%", 0.5: "0.5-1%", -0.75: "0.5-1%", 1: "1-2%", 1.99: "1-2%", 2: "2%+", -12: "2%+"}
	for pct, want := range cases {
		assert.Equal(t, want, EMABinFor(pct), "pct %v", pct)
	}
	assert.Equal(t, "0-0.5%", EMABinFor(math.NaN()))

	tr := mk(0, 9, "", 0)
	tr.EMA = []models.EMADistance{{Period: 9, Pct: 0.2}, {Period: 21, Pct: -1.4}}
	assert.Equal(t, "0-0.5%", ByEMADistance(9)(&tr))
	assert.Equal(t, "1-2%", ByEMADistance(21)(&tr))
	assert.Equal(t, "0-0.5%", ByEMADistance(50)(&tr))
}

func TestInOrderZeroFills(t *testing.T) {
	trades := []models.Trade{mk(2, 10, "", 5), mk(0, 16, "", -3)}
	out := Run(trades, DimWeekday, 0)

	require.Len(t, out, len(Weekdays))
	for i, s := range out {
		assert.Equal(t, Weekdays[i], s.Key)
	}
	assert.Equal(t, 1, out[0].Metrics.TotalTrades)
	assert.Equal(t, 0, out[1].Metrics.TotalTrades)
	assert.Nil(t, out[1].Best)
	assert.Equal(t, 1, out[2].Metrics.TotalTrades)
}

func TestInOrderKeepsUnlistedKeys(t *testing.T) {
	var undated models.Trade
	undated.NetPnL = 4
	out := Run([]models.Trade{undated}, DimWeekday, 0)
	require.Len(t, out, len(Weekdays)+1)
	assert.Equal(t, "", out[len(out)-1].Key)
}

func TestParseDimension(t *testing.T) {
	d, err := ParseDimension("Strategy")
	require.NoError(t, err)
	assert.Equal(t, DimStrategy, d)

	d, err = ParseDimension("tod")
	require.NoError(t, err)
	assert.Equal(t, DimTimeOfDay, d)

	_, err = ParseDimension("moon")
	assert.Error(t, err)
}

func TestHeatmap(t *testing.T) {
	trades := []models.Trade{
		mk(0, 10, "", 50),
		mk(0, 11, "", -20),
		mk(4, 16, "", 7),
		{NetPnL: 1000},
	}
	h := Heatmap(trades)

	assert.Equal(t, Cell{Count: 2, NetPnL: 30}, h.Cell("Mon", "Open"))
	assert.Equal(t, Cell{Count: 1, NetPnL: 7}, h.Cell("Fri", "Close"))
	assert.Equal(t, Cell{}, h.Cell("Tue", "Pre"))
	assert.Equal(t, Cell{}, h.Cell("Funday", "Pre"))

	total := 0
	for _, row := range h.Cells {
		for _, c := range row {
			total += c.Count
		}
	}
	assert.Equal(t, 3, total, "undated trades are skipped")
}

func TestHistogram(t *testing.T) {
	assert.Nil(t, Histogram(nil, 8))

	bins := Histogram([]float64{-1, 0, 1, 3}, 4)
	require.Len(t, bins, 4)
	assert.Equal(t, -1.0, bins[0].Start)
	assert.Equal(t, 3.0, bins[3].End)
	assert.Equal(t, []int{1, 1, 1, 1}, counts(bins))

	same := Histogram([]float64{2, 2, 2}, 4)
	require.Len(t, same, 4)
	assert.Equal(t, 3, same[0].Count)
	assert.InDelta(t, 0.25, same[0].End-same[0].Start, 1e-12)

	withBad := Histogram([]float64{1, math.NaN(), math.Inf(1), 2}, 2)
	assert.Equal(t, []int{1, 1}, counts(withBad))

	assert.Len(t, Histogram([]float64{1}, 0), DefaultBins)
	assert.Len(t, Histogram([]float64{1, 2}, 2000000000), MaxBins)
}

func counts(bins []Bin) []int {
	out := make([]int, len(bins))
	for i, b := range bins {
		out[i] = b.Count
	}
	return out
}

func TestUniqueValues(t *testing.T) {
	trades := []models.Trade{mk(0, 9, "Pullback", 0), mk(0, 9, "", 0), mk(0, 9, "Breakout", 0), mk(0, 9, "Pullback", 0)}
	trades[0].Instrument = "NIFTY"
	trades[1].Instrument = "AAPL"
	trades[2].Instrument = "NIFTY"

	assert.Equal(t, []string{"Breakout", "Pullback"}, UniqueValues(trades, FieldStrategy))
	assert.Equal(t, []string{"AAPL", "NIFTY"}, UniqueValues(trades, FieldInstrument))
	assert.Nil(t, UniqueValues(nil, FieldStrategy))
}

// Property: grouping partitions the input; no trade is lost or duplicated.
func TestProperty_GroupByPartitions(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	strategies := []string{"", "A", "B", "C"}

	properties.Property("group sizes sum to the input size", prop.ForAll(
		func(picks []int) bool {
			trades := make([]models.Trade, len(picks))
			for i, p := range picks {
				trades[i] = mk(p%7, p%24, strategies[p%len(strategies)], float64(p))
			}
			total := 0
			g := GroupBy(trades, ByStrategy)
			g.Each(func(_ string, ts []models.Trade) { total += len(ts) })
			return total == len(trades)
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
	))

	properties.Property("histogram counts every finite value once", prop.ForAll(
		func(values []float64, bins int) bool {
			total := 0
			for _, b := range Histogram(values, bins) {
				total += b.Count
			}
			return total == len(values)
		},
		gen.SliceOf(gen.Float64Range(-10, 10)),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}
