package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// StatementType identifies one of the three provider statements.
type StatementType string

const (
	StatementIncome   StatementType = "financials"
	StatementBalance  StatementType = "balance_sheet"
	StatementCashFlow StatementType = "cashflow"
)

// StatementTypes lists statement types in fetch order.
var StatementTypes = []StatementType{StatementIncome, StatementBalance, StatementCashFlow}

// LineItem is one labeled row of a statement. Values align with StatementTable.Periods.
type LineItem struct {
	Label  string
	Values []null.Float
}

// StatementTable holds a provider statement: rows are line items in source order,
// columns are period-end dates in source order.
type StatementTable struct {
	Periods []time.Time
	Rows    []LineItem
}

// IsEmpty reports whether the table is absent or has no rows.
func (t *StatementTable) IsEmpty() bool {
	return t == nil || len(t.Rows) == 0
}

// Series returns the row at index i as a period-keyed series. Absent cells stay invalid.
func (t *StatementTable) Series(i int) Series {
	row := t.Rows[i]
	out := make(Series, 0, len(t.Periods))
	for j, p := range t.Periods {
		if j >= len(row.Values) {
			break
		}
		out = append(out, Observation{PeriodEnd: p, Value: row.Values[j]})
	}
	return out
}

// Observation is one period's value of a line item.
type Observation struct {
	PeriodEnd time.Time
	Value     null.Float
}

// Series is a line item's values by period end, in statement column order.
type Series []Observation

// Lookup returns the value for period end p, or an invalid Float.
func (s Series) Lookup(p time.Time) null.Float {
	for _, o := range s {
		if o.PeriodEnd.Equal(p) {
			return o.Value
		}
	}
	return null.Float{}
}
