package models

import (
	"time"

	"github.com/guregu/null/v6"
)

// KpiRefreshed is emitted after a ticker's KPI table has been recomputed and persisted.
type KpiRefreshed struct {
	ID       string    `json:"id"`
	Ticker   string    `json:"ticker"`
	Periods  int       `json:"periods"`
	Computed time.Time `json:"computed_at"`
}

// RefreshRequest asks the service to recompute a ticker.
type RefreshRequest struct {
	Ticker string `json:"ticker" validate:"required,max=32"`
}

// PeerEntry is one ticker's row in a peer comparison.
type PeerEntry struct {
	Ticker string     `json:"ticker"`
	Latest *KpiRecord `json:"latest,omitempty"`
	Value  null.Float `json:"value"`
	Error  string     `json:"error,omitempty"`
}

// PeerComparison is the latest value of one metric across tickers.
type PeerComparison struct {
	Metric string      `json:"metric"`
	Peers  []PeerEntry `json:"peers"`
}

// SectorPoint is the cross-ticker mean of each metric at one period end.
type SectorPoint struct {
	PeriodEnd time.Time             `json:"period_end"`
	Values    map[string]null.Float `json:"values"`
}

// SectorAverage is a per-period average over the tickers of a category.
type SectorAverage struct {
	Category string        `json:"category"`
	Tickers  []string      `json:"tickers"`
	Skipped  []string      `json:"skipped,omitempty"`
	Points   []SectorPoint `json:"points"`
}

// Snapshot is the latest record of a ticker with display strings.
type Snapshot struct {
	Ticker  string            `json:"ticker"`
	Record  *KpiRecord        `json:"record"`
	Display map[string]string `json:"display"`
}
