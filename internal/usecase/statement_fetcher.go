package usecase

import (
	"context"
	"fmt"
	"time"

	"FinKPI/internal/domain/models"
	drepo "FinKPI/internal/domain/repository"
	"FinKPI/pkg/logger"
)

// StatementFetcher pulls the three statements of a ticker from the provider
// and archives every non-empty one in the raw store.
type StatementFetcher struct {
	provider drepo.StatementProvider
	raw      drepo.RawStatementStore
	metrics  drepo.Metrics
	log      *logger.Logger
}

// NewStatementFetcher creates a new StatementFetcher instance.
func NewStatementFetcher(provider drepo.StatementProvider, raw drepo.RawStatementStore, metrics drepo.Metrics) *StatementFetcher {
	return &StatementFetcher{provider: provider, raw: raw, metrics: metrics}
}

func (f *StatementFetcher) SetLogger(l *logger.Logger) { f.log = l }

// Fetch returns the income statement and balance sheet of ticker. The cash
// flow statement is archived but not returned. A nil table means the provider
// had nothing for that statement.
func (f *StatementFetcher) Fetch(ctx context.Context, ticker string) (income, balance *models.StatementTable, err error) {
	for _, kind := range models.StatementTypes {
		start := time.Now()
		table, err := f.provider.FetchStatement(ctx, ticker, kind)
		f.metrics.RecordProviderCall(string(kind), err)
		f.metrics.RecordLatency("provider_"+string(kind), time.Since(start).Seconds())
		if err != nil {
			return nil, nil, fmt.Errorf("provider %s: %w", kind, err)
		}

		if table.IsEmpty() {
			f.log.Debug("statement empty",
				logger.String("ticker", ticker),
				logger.String("statement", string(kind)),
			)
			table = nil
		} else if err := f.raw.Write(ctx, ticker, kind, table); err != nil {
			f.metrics.RecordError("raw_write")
			return nil, nil, fmt.Errorf("archive %s %s: %w", ticker, kind, err)
		}

		switch kind {
		case models.StatementIncome:
			income = table
		case models.StatementBalance:
			balance = table
		}
	}
	return income, balance, nil
}
