package kpi

import (
	"math"
	"testing"
	"time"

	"FinKPI/internal/domain/models"
	"FinKPI/internal/services/resolver"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	y1 = time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)
	y2 = time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC)
	y3 = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

func series(points map[time.Time]float64) models.Series {
	s := models.Series{}
	for p, v := range points {
		s = append(s, models.Observation{PeriodEnd: p, Value: null.FloatFrom(v)})
	}
	return s
}

func near(t *testing.T, want float64, got null.Float) {
	t.Helper()
	require.True(t, got.Valid, "expected %v, got absent", want)
	assert.InDelta(t, want, got.Float64, 1e-9)
}

func TestDiv(t *testing.T) {
	near(t, 0.5, Div(null.FloatFrom(1), null.FloatFrom(2)))
	assert.False(t, Div(null.FloatFrom(1), null.FloatFrom(0)).Valid)
	assert.False(t, Div(null.Float{}, null.FloatFrom(2)).Valid)
	assert.False(t, Div(null.FloatFrom(1), null.Float{}).Valid)
	assert.False(t, Div(null.FloatFrom(math.NaN()), null.FloatFrom(2)).Valid)
	assert.False(t, Div(null.FloatFrom(math.MaxFloat64), null.FloatFrom(1e-300)).Valid)
}

func TestAssembleSortsAndOuterJoins(t *testing.T) {
	tb := Assemble("ULVR.L", map[resolver.Field]models.Series{
		resolver.Revenue:   series(map[time.Time]float64{y3: 120, y2: 100}),
		resolver.NetIncome: series(map[time.Time]float64{y1: 5, y2: 10}),
	})

	require.Len(t, tb.Records, 3)
	assert.Equal(t, "ULVR.L", tb.Ticker)
	assert.Equal(t, []time.Time{y1, y2, y3}, []time.Time{tb.Records[0].PeriodEnd, tb.Records[1].PeriodEnd, tb.Records[2].PeriodEnd})

	assert.False(t, tb.Records[0].Revenue.Valid)
	near(t, 5, tb.Records[0].NetIncome)
	assert.False(t, tb.Records[2].NetIncome.Valid)

	// unresolved fields stay absent everywhere, never zero
	for _, r := range tb.Records {
		assert.False(t, r.GrossProfit.Valid)
		assert.False(t, r.GrossMarginPct.Valid)
		assert.False(t, r.TotalDebt.Valid)
		assert.False(t, r.DebtToEquity.Valid)
	}
}

func TestDeriveMarginsAndGrowth(t *testing.T) {
	tb := Assemble("X", map[resolver.Field]models.Series{
		resolver.Revenue:         series(map[time.Time]float64{y1: 100, y2: 120}),
		resolver.GrossProfit:     series(map[time.Time]float64{y1: 40, y2: 60}),
		resolver.OperatingIncome: series(map[time.Time]float64{y1: 20, y2: 30}),
		resolver.NetIncome:       series(map[time.Time]float64{y1: 10, y2: 15}),
	})
	r1, r2 := tb.Records[0], tb.Records[1]

	near(t, 0.4, r1.GrossMarginPct)
	near(t, 0.2, r1.OperatingMarginPct)
	near(t, 0.1, r1.NetMarginPct)
	near(t, 0.5, r2.GrossMarginPct)

	assert.False(t, r1.RevenueYoY.Valid)
	assert.False(t, r1.NetIncomeYoY.Valid)
	near(t, 0.2, r2.RevenueYoY)
	near(t, 0.5, r2.NetIncomeYoY)
}

func TestDeriveEquityGuards(t *testing.T) {
	tb := Assemble("X", map[resolver.Field]models.Series{
		resolver.NetIncome:   series(map[time.Time]float64{y1: 10, y2: 10}),
		resolver.TotalEquity: series(map[time.Time]float64{y1: 50, y2: 0}),
		resolver.TotalDebt:   series(map[time.Time]float64{y1: 25, y2: 30}),
	})
	r1, r2 := tb.Records[0], tb.Records[1]

	// first period has no predecessor, so no average equity
	assert.False(t, r1.RoePct.Valid)
	near(t, 0.5, r1.DebtToEquity)

	// avg equity (50+0)/2 = 25
	near(t, 0.4, r2.RoePct)
	assert.False(t, r2.DebtToEquity.Valid)
}

func TestDeriveZeroAverageEquity(t *testing.T) {
	tb := Assemble("X", map[resolver.Field]models.Series{
		resolver.NetIncome:   series(map[time.Time]float64{y1: 10, y2: 10, y3: 10}),
		resolver.TotalEquity: series(map[time.Time]float64{y1: 40, y2: -40, y3: 0}),
		resolver.Revenue:     series(map[time.Time]float64{y1: 0, y2: 50, y3: 60}),
	})

	assert.False(t, tb.Records[1].RoePct.Valid, "avg equity is zero")
	near(t, 10.0/-20.0, tb.Records[2].RoePct)
	assert.False(t, tb.Records[2].DebtToEquity.Valid)

	// predecessor revenue of zero gives absent growth, not infinity
	assert.False(t, tb.Records[1].RevenueYoY.Valid)
	near(t, 0.2, tb.Records[2].RevenueYoY)
	assert.False(t, tb.Records[0].NetMarginPct.Valid)
}

func TestDeriveAbsentEquityPeriod(t *testing.T) {
	records := []models.KpiRecord{
		{PeriodEnd: y1, NetIncome: null.FloatFrom(1), TotalEquity: null.FloatFrom(10)},
		{PeriodEnd: y2, NetIncome: null.FloatFrom(1), TotalDebt: null.FloatFrom(3)},
		{PeriodEnd: y3, NetIncome: null.FloatFrom(1), TotalEquity: null.FloatFrom(20)},
	}
	Derive(records)

	assert.False(t, records[1].RoePct.Valid)
	assert.False(t, records[1].DebtToEquity.Valid)
	// predecessor equity absent
	assert.False(t, records[2].RoePct.Valid)
}

func TestDeriveOverwritesStaleDerivedValues(t *testing.T) {
	records := []models.KpiRecord{
		{PeriodEnd: y1, Revenue: null.FloatFrom(100), RevenueYoY: null.FloatFrom(9), NetMarginPct: null.FloatFrom(9)},
	}
	Derive(records)

	assert.False(t, records[0].RevenueYoY.Valid)
	assert.False(t, records[0].NetMarginPct.Valid)
}
