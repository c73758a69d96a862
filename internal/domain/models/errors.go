package models

import "errors"

var (
	// ErrDataUnavailable means the income statement or balance sheet is absent or empty.
	ErrDataUnavailable = errors.New("data unavailable: missing statements for ticker")

	// ErrKpiNotFound is returned by KPI stores when no table is persisted for a ticker.
	ErrKpiNotFound = errors.New("kpi table not found")
)
