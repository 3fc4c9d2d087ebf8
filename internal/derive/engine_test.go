package derive

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-journal/internal/models"
)

var usd = models.ResolvedRisk{AccountSize: 10000, RiskPercent: 1}

func day(d int) time.Time {
	return time.Date(2024, 2, d, 0, 0, 0, 0, time.UTC)
}

func TestDeriveLongSizeDriven(t *testing.T) {
	e := NewEngine(models.SizeDriven, models.OpenFlat)
	tr := e.Derive(models.RawTrade{
		Direction:    models.Long,
		EntryPrice:   100,
		StopLoss:     95,
		PositionSize: 10,
		ExitPrices:   []float64{110},
	}, usd)

	assert.Equal(t, 5.0, tr.RiskPerUnit)
	assert.Equal(t, 50.0, tr.RiskAmount)
	assert.Equal(t, 100.0, tr.GrossPnL)
	assert.Equal(t, 100.0, tr.NetPnL)
	assert.InDelta(t, 2.0, tr.RMultiple, 1e-9)
	assert.InDelta(t, 2.0, tr.RRRatio, 1e-9)
	assert.InDelta(t, 10.0, tr.ReturnPct, 1e-9)
	assert.Equal(t, models.StatusWin, tr.Status)
}

func TestDeriveShort(t *testing.T) {
	e := NewEngine(models.SizeDriven, models.OpenFlat)
	tr := e.Derive(models.RawTrade{
		Direction:    models.Short,
		EntryPrice:   50,
		StopLoss:     55,
		PositionSize: 4,
		ExitPrices:   []float64{48},
	}, usd)

	assert.Equal(t, 5.0, tr.RiskPerUnit)
	assert.Equal(t, 2.0, tr.RewardPerUnit)
	assert.Equal(t, 8.0, tr.GrossPnL)
	assert.Equal(t, 20.0, tr.RiskAmount)
	assert.InDelta(t, 0.4, tr.RMultiple, 1e-9)
	assert.Equal(t, models.StatusWin, tr.Status)
}

func TestDeriveRiskDrivenAutoSize(t *testing.T) {
	e := NewEngine(models.RiskDriven, models.OpenFlat)
	tr := e.Derive(models.RawTrade{
		Direction:  models.Long,
		EntryPrice: 100,
		StopLoss:   98,
		ExitPrices: []float64{104},
	}, models.ResolvedRisk{AccountSize: 10000, RiskPercent: 0.25})

	assert.InDelta(t, 25.0, tr.PlannedRisk, 1e-9)
	assert.InDelta(t, 25.0, tr.RiskAmount, 1e-9)
	assert.Equal(t, 2.0, tr.RiskPerUnit)
	assert.InDelta(t, 12.5, tr.AutoSize, 1e-9)
	assert.InDelta(t, 12.5, tr.PositionSizeUsed, 1e-9)
	assert.InDelta(t, 50.0, tr.NetPnL, 1e-9)
	assert.InDelta(t, 2.0, tr.RMultiple, 1e-9)
}

func TestDeriveRiskDrivenManualOverride(t *testing.T) {
	e := NewEngine(models.RiskDriven, models.OpenFlat)
	tr := e.Derive(models.RawTrade{
		Direction:    models.Long,
		EntryPrice:   100,
		StopLoss:     98,
		PositionSize: 20,
		ExitPrices:   []float64{101},
	}, models.ResolvedRisk{AccountSize: 10000, RiskPercent: 0.25})

	assert.InDelta(t, 12.5, tr.AutoSize, 1e-9)
	assert.Equal(t, 20.0, tr.PositionSizeUsed)
	assert.InDelta(t, 40.0, tr.RiskAmount, 1e-9, "risk follows the size actually carried")
	assert.InDelta(t, 25.0, tr.PlannedRisk, 1e-9)
	assert.InDelta(t, 0.5, tr.RMultiple, 1e-9)
}

func TestDeriveEntryEqualsStop(t *testing.T) {
	for _, mode := range []models.SizingMode{models.SizeDriven, models.RiskDriven} {
		e := NewEngine(mode, models.OpenAssumeStop)
		tr := e.Derive(models.RawTrade{
			Direction:    models.Long,
			EntryPrice:   100,
			StopLoss:     100,
			PositionSize: 10,
			ExitPrices:   []float64{105},
		}, usd)

		assert.Equal(t, 0.0, tr.RiskPerUnit, mode)
		assert.Equal(t, 0.0, tr.RiskAmount, mode)
		assert.Equal(t, 0.0, tr.RMultiple, mode)
		assert.Equal(t, 0.0, tr.RRRatio, mode)
		assert.Equal(t, 0.0, tr.AutoSize, mode)
	}
}

func TestDeriveAveragesPositiveExits(t *testing.T) {
	e := NewEngine(models.SizeDriven, models.OpenFlat)
	tr := e.Derive(models.RawTrade{
		Direction:    models.Long,
		EntryPrice:   100,
		StopLoss:     90,
		PositionSize: 3,
		ExitPrices:   []float64{110, 0, 120, -5},
	}, usd)

	assert.Equal(t, 115.0, tr.AvgExit)
	assert.Equal(t, 45.0, tr.GrossPnL)
}

func TestDeriveFeesAndZeroPnLIsWin(t *testing.T) {
	e := NewEngine(models.SizeDriven, models.OpenFlat)
	tr := e.Derive(models.RawTrade{
		Direction:    models.Long,
		EntryPrice:   100,
		StopLoss:     95,
		PositionSize: 10,
		ExitPrices:   []float64{101},
		Fees:         10,
	}, usd)

	assert.Equal(t, 10.0, tr.GrossPnL)
	assert.Equal(t, 0.0, tr.NetPnL)
	assert.Equal(t, models.StatusWin, tr.Status)
	assert.True(t, tr.IsWin())

	tr = e.Derive(models.RawTrade{
		Direction:    models.Long,
		EntryPrice:   100,
		StopLoss:     95,
		PositionSize: 10,
		ExitPrices:   []float64{101},
		Fees:         12,
	}, usd)
	assert.Equal(t, models.StatusLoss, tr.Status)
}

func TestDeriveStopLossHit(t *testing.T) {
	e := NewEngine(models.SizeDriven, models.OpenFlat)

	long := e.Derive(models.RawTrade{
		Direction: models.Long, EntryPrice: 100, StopLoss: 95, PositionSize: 10,
		ExitPrices: []float64{95},
	}, usd)
	assert.Equal(t, models.StatusSLHit, long.Status)
	assert.InDelta(t, -1.0, long.RMultiple, 1e-9)

	short := e.Derive(models.RawTrade{
		Direction: models.Short, EntryPrice: 50, StopLoss: 55, PositionSize: 4,
		ExitPrices: []float64{56},
	}, usd)
	assert.Equal(t, models.StatusSLHit, short.Status)

	// A partial exit through the stop on a net-winning trade is not an SL hit.
	mixed := e.Derive(models.RawTrade{
		Direction: models.Long, EntryPrice: 100, StopLoss: 95, PositionSize: 10,
		ExitPrices: []float64{94, 120},
	}, usd)
	assert.Equal(t, models.StatusWin, mixed.Status)

	// A plain loss above the stop stays a loss.
	loss := e.Derive(models.RawTrade{
		Direction: models.Long, EntryPrice: 100, StopLoss: 95, PositionSize: 10,
		ExitPrices: []float64{98},
	}, usd)
	assert.Equal(t, models.StatusLoss, loss.Status)
}

func TestDeriveOpenTradePolicies(t *testing.T) {
	raw := models.RawTrade{Direction: models.Long, EntryPrice: 100, StopLoss: 98}

	flat := NewEngine(models.RiskDriven, models.OpenFlat).Derive(raw, models.ResolvedRisk{AccountSize: 10000, RiskPercent: 0.25})
	assert.Equal(t, models.StatusOpen, flat.Status)
	assert.Equal(t, 0.0, flat.AvgExit)
	assert.Equal(t, 0.0, flat.NetPnL)
	assert.Equal(t, 0.0, flat.RMultiple)
	assert.InDelta(t, 25.0, flat.RiskAmount, 1e-9)

	worst := NewEngine(models.RiskDriven, models.OpenAssumeStop).Derive(raw, models.ResolvedRisk{AccountSize: 10000, RiskPercent: 0.25})
	assert.Equal(t, models.StatusOpen, worst.Status)
	assert.InDelta(t, -25.0, worst.NetPnL, 1e-9)
	assert.Equal(t, -1.0, worst.RMultiple)

	// Without a stop distance there is nothing to assume.
	noStop := NewEngine(models.RiskDriven, models.OpenAssumeStop).Derive(models.RawTrade{Direction: models.Long, EntryPrice: 100, StopLoss: 100}, usd)
	assert.Equal(t, 0.0, noStop.NetPnL)
	assert.Equal(t, 0.0, noStop.RMultiple)
}

func TestDeriveCoercesGarbageToZero(t *testing.T) {
	e := NewEngine(models.SizeDriven, models.OpenFlat)
	tr := e.Derive(models.RawTrade{
		Direction:    models.Long,
		EntryPrice:   math.NaN(),
		StopLoss:     math.Inf(1),
		PositionSize: math.Inf(-1),
		ExitPrices:   []float64{math.NaN()},
		Fees:         math.NaN(),
	}, usd)

	assert.Equal(t, models.StatusOpen, tr.Status)
	assert.Equal(t, 0.0, tr.RiskPerUnit)
	assert.Equal(t, 0.0, tr.NetPnL)
	assert.Equal(t, 0.0, tr.ReturnPct)
}

func TestDeriveZeroEntryHasNoReturn(t *testing.T) {
	e := NewEngine(models.SizeDriven, models.OpenFlat)
	tr := e.Derive(models.RawTrade{
		Direction: models.Long, EntryPrice: 0, StopLoss: 1, PositionSize: 1, ExitPrices: []float64{2},
	}, usd)
	assert.Equal(t, 0.0, tr.ReturnPct)
}

func TestDeriveTargetPrices(t *testing.T) {
	e := NewEngine(models.SizeDriven, models.OpenFlat)
	long := e.Derive(models.RawTrade{
		Direction: models.Long, EntryPrice: 100, StopLoss: 95, TargetRR: []float64{1, 2, 0},
	}, usd)
	assert.Equal(t, []float64{105, 110}, long.TargetPrices)

	short := e.Derive(models.RawTrade{
		Direction: models.Short, EntryPrice: 50, StopLoss: 55, TargetRR: []float64{3},
	}, usd)
	assert.Equal(t, []float64{35}, short.TargetPrices)
}

func TestHoldMinutes(t *testing.T) {
	exitSame := day(5)
	exitPrev := day(4)

	tests := []struct {
		name     string
		raw      models.RawTrade
		expected *int
	}{
		{
			name: "missing exit",
			raw:  models.RawTrade{EntryDate: day(5), EntryTime: &models.Clock{Hour: 9, Minute: 30}},
		},
		{
			name: "missing exit time",
			raw:  models.RawTrade{EntryDate: day(5), EntryTime: &models.Clock{Hour: 9}, ExitDate: &exitSame},
		},
		{
			name: "exit before entry",
			raw: models.RawTrade{
				EntryDate: day(5), EntryTime: &models.Clock{Hour: 9, Minute: 30},
				ExitDate: &exitPrev, ExitTime: &models.Clock{Hour: 15},
			},
		},
		{
			name: "same minute",
			raw: models.RawTrade{
				EntryDate: day(5), EntryTime: &models.Clock{Hour: 9, Minute: 30},
				ExitDate: &exitSame, ExitTime: &models.Clock{Hour: 9, Minute: 30},
			},
		},
		{
			name: "intraday",
			raw: models.RawTrade{
				EntryDate: day(5), EntryTime: &models.Clock{Hour: 9, Minute: 30},
				ExitDate: &exitSame, ExitTime: &models.Clock{Hour: 11, Minute: 15},
			},
			expected: intPtr(105),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HoldMinutes(&tt.raw)
			if tt.expected == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, *tt.expected, *got)
		})
	}
}

func TestNewEngineDefaults(t *testing.T) {
	e := NewEngine("bogus", "bogus")
	assert.Equal(t, models.RiskDriven, e.Mode())
	assert.Equal(t, models.OpenFlat, e.Policy())
}

func TestDeriveWithUsesMarketSettings(t *testing.T) {
	e := NewEngine(models.RiskDriven, models.OpenFlat)
	settings := models.RiskSettings{
		models.MarketIndia: {AccountSize: 1000000, RiskPercent: 0.5},
	}
	tr := e.DeriveWith(models.RawTrade{Direction: models.Long, EntryPrice: 2500, StopLoss: 2475}, settings, models.MarketIndia)
	assert.Equal(t, 1000000.0, tr.AccountSizeUsed)
	assert.InDelta(t, 5000.0, tr.RiskAmount, 1e-9)
	assert.InDelta(t, 200.0, tr.AutoSize, 1e-9)
}

func intPtr(v int) *int { return &v }

func genRawTrade() gopter.Gen {
	return gopter.CombineGens(
		gen.Bool(),
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 500),
		gen.Float64Range(0, 100),
		gen.Float64Range(0, 5),
		gen.IntRange(0, 3),
	).Map(func(v []interface{}) models.RawTrade {
		dir := models.Short
		if v[0].(bool) {
			dir = models.Long
		}
		exit := v[3].(float64)
		var exits []float64
		for i := 0; i < v[6].(int); i++ {
			exits = append(exits, exit+float64(i))
		}
		return models.RawTrade{
			Direction:    dir,
			EntryPrice:   v[1].(float64),
			StopLoss:     v[2].(float64),
			ExitPrices:   exits,
			PositionSize: v[4].(float64),
			Fees:         v[5].(float64),
		}
	})
}

// Property: derivation is a pure function; deriving the raw fields of a
// derived trade again yields the same trade.
func TestProperty_DeriveIsIdempotent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	for _, mode := range []models.SizingMode{models.SizeDriven, models.RiskDriven} {
		e := NewEngine(mode, models.OpenAssumeStop)
		properties.Property(string(mode)+": re-derivation is stable", prop.ForAll(
			func(raw models.RawTrade) bool {
				first := e.Derive(raw, usd)
				second := e.Derive(first.RawTrade, usd)
				return reflect.DeepEqual(first, second)
			},
			genRawTrade(),
		))
	}

	properties.TestingRun(t)
}

// Property: no derived value is ever NaN or infinite, and entry == stop
// always means zero risk and zero R.
func TestProperty_DeriveIsAlwaysFinite(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	e := NewEngine(models.RiskDriven, models.OpenFlat)

	properties.Property("derived fields are finite", prop.ForAll(
		func(raw models.RawTrade) bool {
			tr := e.Derive(raw, usd)
			for _, v := range []float64{tr.RiskPerUnit, tr.RiskAmount, tr.AutoSize, tr.GrossPnL, tr.NetPnL, tr.RMultiple, tr.RRRatio, tr.ReturnPct} {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return false
				}
			}
			return true
		},
		genRawTrade(),
	))

	properties.Property("entry == stop means zero risk and zero R", prop.ForAll(
		func(raw models.RawTrade) bool {
			raw.StopLoss = raw.EntryPrice
			tr := e.Derive(raw, usd)
			return tr.RiskPerUnit == 0 && tr.RiskAmount == 0 && tr.RMultiple == 0
		},
		genRawTrade(),
	))

	properties.Property("zero net P&L is never a loss", prop.ForAll(
		func(raw models.RawTrade) bool {
			tr := e.Derive(raw, usd)
			if tr.NetPnL == 0 {
				return tr.Status != models.StatusLoss
			}
			return true
		},
		genRawTrade(),
	))

	properties.TestingRun(t)
}
