package resolver

// Field is a canonical raw KPI input.
type Field string

const (
	Revenue         Field = "revenue"
	GrossProfit     Field = "gross_profit"
	OperatingIncome Field = "operating_income"
	NetIncome       Field = "net_income"
	TotalEquity     Field = "total_equity"
	TotalDebt       Field = "total_debt"
)

// Candidates holds label variants per field, highest priority first.
var Candidates = map[Field][]string{
	Revenue: {
		"Total Revenue", "Revenue", "Sales", "Operating Revenue",
	},
	GrossProfit: {
		"Gross Profit", "Gross Income",
	},
	OperatingIncome: {
		"Operating Income", "EBIT", "Earnings Before Interest and Taxes", "Operating Profit",
	},
	NetIncome: {
		"Net Income", "Net Income Common Stockholders", "Net Income From Continuing Operations", "Profit Attributable To Owners",
	},
	// Equity labels vary a lot across tickers and feeds.
	TotalEquity: {
		"Total Stockholder Equity", "Total Shareholder Equity", "Total Equity",
		"Stockholders' Equity", "Shareholders' Equity",
		"Total Equity Gross Minority Interest", "Total Equity Net Minority Interest",
	},
	TotalDebt: {
		"Total Debt", "Short Long Term Debt Total", "Total Interest Bearing Debt",
		"Short Term Debt", "Long Term Debt",
	},
}

// IncomeFields are resolved against the income statement.
var IncomeFields = []Field{Revenue, GrossProfit, OperatingIncome, NetIncome}

// BalanceFields are resolved against the balance sheet.
var BalanceFields = []Field{TotalEquity, TotalDebt}
