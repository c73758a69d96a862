package kpi

import (
	"sort"
	"time"

	"FinKPI/internal/domain/models"
	"FinKPI/internal/services/resolver"

	"github.com/guregu/null/v6"
)

// Assemble outer-joins the resolved series into one record per period end, sorted
// ascending, and derives the ratio columns. Fields missing from resolved are absent
// for every period.
func Assemble(ticker string, resolved map[resolver.Field]models.Series) *models.KpiTable {
	seen := make(map[time.Time]struct{})
	periods := make([]time.Time, 0, 8)
	for _, s := range resolved {
		for _, o := range s {
			p := o.PeriodEnd.UTC()
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			periods = append(periods, p)
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[i].Before(periods[j]) })

	records := make([]models.KpiRecord, len(periods))
	for i, p := range periods {
		r := models.KpiRecord{PeriodEnd: p}
		r.Revenue = clean(resolved[resolver.Revenue].Lookup(p))
		r.GrossProfit = clean(resolved[resolver.GrossProfit].Lookup(p))
		r.OperatingIncome = clean(resolved[resolver.OperatingIncome].Lookup(p))
		r.NetIncome = clean(resolved[resolver.NetIncome].Lookup(p))
		r.TotalEquity = clean(resolved[resolver.TotalEquity].Lookup(p))
		r.TotalDebt = clean(resolved[resolver.TotalDebt].Lookup(p))
		records[i] = r
	}

	Derive(records)
	return &models.KpiTable{Ticker: ticker, Records: records}
}

// Derive recomputes every derived column of records, which must be sorted by period
// end. Each record depends only on its own raw fields and those of its predecessor.
func Derive(records []models.KpiRecord) {
	for i := range records {
		r := &records[i]
		r.GrossMarginPct = Div(r.GrossProfit, r.Revenue)
		r.OperatingMarginPct = Div(r.OperatingIncome, r.Revenue)
		r.NetMarginPct = Div(r.NetIncome, r.Revenue)
		r.DebtToEquity = Div(r.TotalDebt, r.TotalEquity)

		if i == 0 {
			r.RoePct = null.Float{}
			r.RevenueYoY = null.Float{}
			r.NetIncomeYoY = null.Float{}
			continue
		}
		prev := &records[i-1]
		r.RoePct = Div(r.NetIncome, Mean(prev.TotalEquity, r.TotalEquity))
		r.RevenueYoY = Growth(r.Revenue, prev.Revenue)
		r.NetIncomeYoY = Growth(r.NetIncome, prev.NetIncome)
	}
}

func clean(f null.Float) null.Float {
	if !Valid(f) {
		return null.Float{}
	}
	return f
}
