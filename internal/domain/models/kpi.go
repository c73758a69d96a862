package models

import (
	"sort"
	"time"

	"github.com/guregu/null/v6"
)

// KpiRecord is one period of the tidy KPI table. Raw fields come from statements;
// derived fields are written only by kpi.Derive.
type KpiRecord struct {
	PeriodEnd time.Time `json:"period_end"`

	Revenue         null.Float `json:"revenue"`
	GrossProfit     null.Float `json:"gross_profit"`
	OperatingIncome null.Float `json:"operating_income"`
	NetIncome       null.Float `json:"net_income"`
	TotalEquity     null.Float `json:"total_equity"`
	TotalDebt       null.Float `json:"total_debt"`

	GrossMarginPct     null.Float `json:"gross_margin_pct"`
	OperatingMarginPct null.Float `json:"operating_margin_pct"`
	NetMarginPct       null.Float `json:"net_margin_pct"`
	RoePct             null.Float `json:"roe_pct"`
	DebtToEquity       null.Float `json:"debt_to_equity"`
	RevenueYoY         null.Float `json:"revenue_yoy"`
	NetIncomeYoY       null.Float `json:"net_income_yoy"`
}

// KpiTable is the ordered KPI history of one ticker.
type KpiTable struct {
	Ticker  string      `json:"ticker"`
	Records []KpiRecord `json:"records"`
}

// SortByPeriod orders records ascending by period end.
func (t *KpiTable) SortByPeriod() {
	sort.SliceStable(t.Records, func(i, j int) bool {
		return t.Records[i].PeriodEnd.Before(t.Records[j].PeriodEnd)
	})
}

// Latest returns the most recent record, or nil for an empty table.
func (t *KpiTable) Latest() *KpiRecord {
	if t == nil || len(t.Records) == 0 {
		return nil
	}
	return &t.Records[len(t.Records)-1]
}

// Column names of the persisted table, after the period_end index.
var KpiColumns = []string{
	"revenue", "gross_profit", "operating_income", "net_income", "total_equity", "total_debt",
	"gross_margin_pct", "operating_margin_pct", "net_margin_pct", "roe_pct", "debt_to_equity",
	"revenue_yoy", "net_income_yoy",
}

// Fields returns pointers to the record's values in KpiColumns order.
func (r *KpiRecord) Fields() []*null.Float {
	return []*null.Float{
		&r.Revenue, &r.GrossProfit, &r.OperatingIncome, &r.NetIncome, &r.TotalEquity, &r.TotalDebt,
		&r.GrossMarginPct, &r.OperatingMarginPct, &r.NetMarginPct, &r.RoePct, &r.DebtToEquity,
		&r.RevenueYoY, &r.NetIncomeYoY,
	}
}

// Metric returns the value of the named column and whether the name is known.
func (r *KpiRecord) Metric(name string) (null.Float, bool) {
	for i, col := range KpiColumns {
		if col == name {
			return *r.Fields()[i], true
		}
	}
	return null.Float{}, false
}

// IsMetric reports whether name is a KPI column.
func IsMetric(name string) bool {
	for _, col := range KpiColumns {
		if col == name {
			return true
		}
	}
	return false
}
