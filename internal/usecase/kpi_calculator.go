package usecase

import (
	"context"
	"fmt"
	"time"

	"FinKPI/internal/domain/models"
	drepo "FinKPI/internal/domain/repository"
	"FinKPI/internal/services/kpi"
	"FinKPI/internal/services/resolver"
	"FinKPI/pkg/logger"

	"github.com/google/uuid"
)

// StatementSource supplies the statements a KPI table is computed from.
type StatementSource interface {
	Fetch(ctx context.Context, ticker string) (income, balance *models.StatementTable, err error)
}

// KpiCalculator turns statements into a persisted KPI table.
type KpiCalculator struct {
	source  StatementSource
	store   drepo.KpiStore
	events  drepo.EventPublisher
	metrics drepo.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewKpiCalculator creates a calculator. events may be nil.
func NewKpiCalculator(source StatementSource, store drepo.KpiStore, events drepo.EventPublisher, metrics drepo.Metrics) *KpiCalculator {
	return &KpiCalculator{
		source:  source,
		store:   store,
		events:  events,
		metrics: metrics,
		now:     time.Now,
	}
}

func (c *KpiCalculator) SetLogger(l *logger.Logger) { c.log = l }

// Compute fetches, resolves and derives the KPI table of ticker, then
// persists it whole. It returns models.ErrDataUnavailable when the income
// statement or balance sheet is missing, and persists nothing in that case.
func (c *KpiCalculator) Compute(ctx context.Context, ticker string) (*models.KpiTable, error) {
	start := c.now()
	table, err := c.compute(ctx, ticker)
	c.metrics.RecordComputation(ticker, err)
	c.metrics.RecordLatency("compute", time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	if ev := c.publish(ctx, table); ev != nil {
		c.log.Info("kpis computed",
			logger.String("ticker", ticker),
			logger.Int("periods", ev.Periods),
			logger.String("event_id", ev.ID),
		)
	}
	return table, nil
}

func (c *KpiCalculator) compute(ctx context.Context, ticker string) (*models.KpiTable, error) {
	income, balance, err := c.source.Fetch(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetch statements for %s: %w", ticker, err)
	}
	if income.IsEmpty() || balance.IsEmpty() {
		return nil, fmt.Errorf("%s: %w", ticker, models.ErrDataUnavailable)
	}

	resolved := make(map[resolver.Field]models.Series, len(resolver.Candidates))
	c.resolve(ticker, income, resolver.IncomeFields, resolved)
	c.resolve(ticker, balance, resolver.BalanceFields, resolved)

	table := kpi.Assemble(ticker, resolved)
	if err := c.store.Put(ctx, table); err != nil {
		c.metrics.RecordError("kpi_put")
		return nil, fmt.Errorf("persist kpis for %s: %w", ticker, err)
	}

	if latest := table.Latest(); latest != nil {
		for i, col := range models.KpiColumns {
			if v := *latest.Fields()[i]; kpi.Valid(v) {
				c.metrics.RecordLatest(ticker, col, v.Float64)
			}
		}
	}
	return table, nil
}

func (c *KpiCalculator) resolve(ticker string, table *models.StatementTable, fields []resolver.Field, out map[resolver.Field]models.Series) {
	for _, f := range fields {
		s, ok := resolver.Resolve(table, resolver.Candidates[f])
		if !ok {
			c.log.Debug("field unresolved",
				logger.String("ticker", ticker),
				logger.String("field", string(f)),
			)
			c.metrics.RecordUnresolved(string(f))
			continue
		}
		out[f] = s
	}
}

// publish announces a recompute. Failures are logged and counted only.
func (c *KpiCalculator) publish(ctx context.Context, table *models.KpiTable) *models.KpiRefreshed {
	ev := &models.KpiRefreshed{
		ID:       uuid.NewString(),
		Ticker:   table.Ticker,
		Periods:  len(table.Records),
		Computed: c.now().UTC(),
	}
	if c.events == nil {
		return ev
	}
	if err := c.events.PublishRefreshed(ctx, ev); err != nil {
		c.metrics.RecordError("publish")
		c.log.Warn("publish refresh event failed",
			logger.String("ticker", table.Ticker),
			logger.Error(err),
		)
	}
	return ev
}
