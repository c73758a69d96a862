package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"FinKPI/internal/domain/models"
	drepo "FinKPI/internal/domain/repository"
	"FinKPI/internal/services/kpi"
	"FinKPI/pkg/logger"

	"github.com/guregu/null/v6"
	"golang.org/x/sync/singleflight"
)

// Computer produces a fresh, persisted KPI table.
type Computer interface {
	Compute(ctx context.Context, ticker string) (*models.KpiTable, error)
}

// KpiCache is a read-through cache over the KPI store. Entries never expire;
// Invalidate drops them and Refresh replaces them.
type KpiCache struct {
	store   drepo.KpiStore
	calc    Computer
	metrics drepo.Metrics
	log     *logger.Logger
	group   singleflight.Group
}

// NewKpiCache creates a new KpiCache instance.
func NewKpiCache(store drepo.KpiStore, calc Computer, metrics drepo.Metrics) *KpiCache {
	return &KpiCache{store: store, calc: calc, metrics: metrics}
}

func (c *KpiCache) SetLogger(l *logger.Logger) { c.log = l }

// Load returns the persisted table of ticker sorted by period end, computing
// it on a miss. Concurrent misses for one ticker share a computation.
func (c *KpiCache) Load(ctx context.Context, ticker string) (*models.KpiTable, error) {
	t, err := c.store.Get(ctx, ticker)
	if err == nil {
		c.metrics.RecordCache("hit")
		t.SortByPeriod()
		return t, nil
	}
	if !errors.Is(err, models.ErrKpiNotFound) {
		c.metrics.RecordError("kpi_get")
		return nil, fmt.Errorf("load kpis for %s: %w", ticker, err)
	}

	c.metrics.RecordCache("miss")
	return c.compute(ctx, ticker)
}

// compute runs one shared computation per ticker. The flight is detached from
// the caller that started it; each caller stops waiting when its own ctx ends.
func (c *KpiCache) compute(ctx context.Context, ticker string) (*models.KpiTable, error) {
	flight := context.WithoutCancel(ctx)
	ch := c.group.DoChan(ticker, func() (interface{}, error) {
		return c.calc.Compute(flight, ticker)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.KpiTable), nil
	}
}

// Invalidate drops the persisted table of ticker.
func (c *KpiCache) Invalidate(ctx context.Context, ticker string) error {
	if err := c.store.Delete(ctx, ticker); err != nil {
		return fmt.Errorf("invalidate %s: %w", ticker, err)
	}
	c.log.Debug("kpis invalidated", logger.String("ticker", ticker))
	return nil
}

// Refresh recomputes ticker unconditionally. The calculator overwrites the
// stored table only on success, so a failed refresh keeps the previous one.
func (c *KpiCache) Refresh(ctx context.Context, ticker string) (*models.KpiTable, error) {
	t, err := c.compute(ctx, ticker)
	if err != nil {
		c.log.Warn("refresh failed, keeping stored kpis", logger.String("ticker", ticker), logger.Error(err))
		return nil, err
	}
	return t, nil
}

// Peers loads tickers one after another and reports the latest value of
// metric for each. A ticker without statements gets an error entry; any
// other failure aborts the comparison.
func (c *KpiCache) Peers(ctx context.Context, tickers []string, metric string) (*models.PeerComparison, error) {
	if !models.IsMetric(metric) {
		return nil, fmt.Errorf("unknown metric %q", metric)
	}
	out := &models.PeerComparison{Metric: metric, Peers: make([]models.PeerEntry, 0, len(tickers))}
	for _, ticker := range tickers {
		entry := models.PeerEntry{Ticker: ticker}
		t, err := c.Load(ctx, ticker)
		switch {
		case errors.Is(err, models.ErrDataUnavailable):
			entry.Error = models.ErrDataUnavailable.Error()
		case err != nil:
			return nil, err
		default:
			if latest := t.Latest(); latest != nil {
				entry.Latest = latest
				entry.Value, _ = latest.Metric(metric)
			}
		}
		out.Peers = append(out.Peers, entry)
	}
	return out, nil
}

// SectorAverage averages metrics per period end over tickers. Tickers that
// fail to load are skipped and listed.
func (c *KpiCache) SectorAverage(ctx context.Context, category string, tickers []string, metrics []string) (*models.SectorAverage, error) {
	for _, m := range metrics {
		if !models.IsMetric(m) {
			return nil, fmt.Errorf("unknown metric %q", m)
		}
	}

	type acc struct{ sum, n float64 }
	sums := make(map[time.Time]map[string]*acc)
	out := &models.SectorAverage{Category: category, Tickers: tickers}

	for _, ticker := range tickers {
		t, err := c.Load(ctx, ticker)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.log.Warn("sector peer skipped", logger.String("ticker", ticker), logger.Error(err))
			out.Skipped = append(out.Skipped, ticker)
			continue
		}
		for i := range t.Records {
			r := &t.Records[i]
			p := r.PeriodEnd.UTC()
			if sums[p] == nil {
				sums[p] = make(map[string]*acc, len(metrics))
			}
			for _, m := range metrics {
				v, _ := r.Metric(m)
				if !kpi.Valid(v) {
					continue
				}
				a := sums[p][m]
				if a == nil {
					a = &acc{}
					sums[p][m] = a
				}
				a.sum += v.Float64
				a.n++
			}
		}
	}

	for p, byMetric := range sums {
		pt := models.SectorPoint{PeriodEnd: p, Values: make(map[string]null.Float, len(metrics))}
		for _, m := range metrics {
			if a := byMetric[m]; a != nil && a.n > 0 {
				pt.Values[m] = null.FloatFrom(a.sum / a.n)
			} else {
				pt.Values[m] = null.Float{}
			}
		}
		out.Points = append(out.Points, pt)
	}
	sort.Slice(out.Points, func(i, j int) bool { return out.Points[i].PeriodEnd.Before(out.Points[j].PeriodEnd) })
	return out, nil
}
