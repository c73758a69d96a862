package repository

import (
	"context"

	"FinKPI/internal/domain/models"
)

// StatementProvider is the external financial-data source. A nil table with a nil
// error means the provider has no data for that statement.
type StatementProvider interface {
	FetchStatement(ctx context.Context, ticker string, kind models.StatementType) (*models.StatementTable, error)
}

// RawStatementStore is the write-only audit trail of fetched statements, keyed by
// ticker and statement type. Writes overwrite.
type RawStatementStore interface {
	Write(ctx context.Context, ticker string, kind models.StatementType, table *models.StatementTable) error
	Exists(ctx context.Context, ticker string, kind models.StatementType) (bool, error)
}

// KpiStore persists one KPI table per ticker. Get returns models.ErrKpiNotFound on miss.
type KpiStore interface {
	Get(ctx context.Context, ticker string) (*models.KpiTable, error)
	Put(ctx context.Context, table *models.KpiTable) error
	Delete(ctx context.Context, ticker string) error
}

// EventPublisher fans out KPI refresh notifications.
type EventPublisher interface {
	PublishRefreshed(ctx context.Context, ev *models.KpiRefreshed) error
	Close() error
}

// Metrics records pipeline measurements.
type Metrics interface {
	RecordProviderCall(statement string, err error)
	RecordCache(result string)
	RecordComputation(ticker string, err error)
	RecordUnresolved(field string)
	RecordError(kind string)
	RecordLatest(ticker, metric string, value float64)
	RecordLatency(op string, seconds float64)
}
