package repository

import "fmt"

// ClickHouseSchema returns the idempotent DDL for the KPI and raw statement tables
// in database db.
//
// kpi_tables holds one header row per ticker version; kpi_records holds the
// periods of each version. A Put writes records before the header, so a reader
// that resolves the latest header always finds a complete version.
func ClickHouseSchema(db string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.kpi_tables (
    ticker   String,
    version  UInt64,
    periods  UInt32,
    deleted  UInt8,
    updated  DateTime('UTC')
) ENGINE = ReplacingMergeTree(version)
ORDER BY ticker`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.kpi_records (
    ticker               String,
    version              UInt64,
    period_end           Date,
    revenue              Nullable(Float64),
    gross_profit         Nullable(Float64),
    operating_income     Nullable(Float64),
    net_income           Nullable(Float64),
    total_equity         Nullable(Float64),
    total_debt           Nullable(Float64),
    gross_margin_pct     Nullable(Float64),
    operating_margin_pct Nullable(Float64),
    net_margin_pct       Nullable(Float64),
    roe_pct              Nullable(Float64),
    debt_to_equity       Nullable(Float64),
    revenue_yoy          Nullable(Float64),
    net_income_yoy       Nullable(Float64)
) ENGINE = MergeTree
ORDER BY (ticker, version, period_end)`, db),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.raw_statements (
    ticker     String,
    statement  LowCardinality(String),
    version    UInt64,
    row_idx    UInt32,
    label      String,
    period_end Date,
    value      Nullable(Float64)
) ENGINE = ReplacingMergeTree(version)
ORDER BY (ticker, statement, row_idx, period_end)`, db),
	}
}
