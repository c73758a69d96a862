package models

// Requests for dashboard HTTP endpoints.

type TickerRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required,max=32"`
}

type PeersRequest struct {
	Tickers string `query:"tickers" json:"tickers" validate:"required"`
	Metric  string `query:"metric" json:"metric" default:"net_margin_pct" validate:"oneof=revenue gross_profit operating_income net_income total_equity total_debt gross_margin_pct operating_margin_pct net_margin_pct roe_pct debt_to_equity revenue_yoy net_income_yoy"`
}

type HistoryRequest struct {
	Ticker string `param:"ticker" json:"ticker" validate:"required,max=32"`
	Last   int    `query:"last" json:"last" default:"0" validate:"gte=0,lte=100"`
}

type SectorRequest struct {
	Category string `param:"category" json:"category" validate:"required"`
	// Metrics is a comma separated list of KPI columns.
	Metrics string `query:"metrics" json:"metrics" default:"gross_margin_pct,operating_margin_pct,net_margin_pct,debt_to_equity"`
}
