package repository

import (
	"context"
	"errors"
	"fmt"

	"FinKPI/internal/domain/models"
	domrepo "FinKPI/internal/domain/repository"
	"FinKPI/pkg/cache"
)

// CacheKpiStore persists KPI tables as JSON in a pkg/cache backend (memory, redis
// or layered). Entries never expire; they are only replaced or deleted.
type CacheKpiStore struct {
	c cache.Service
}

var _ domrepo.KpiStore = (*CacheKpiStore)(nil)

func NewCacheKpiStore(c cache.Service) *CacheKpiStore {
	return &CacheKpiStore{c: c}
}

func kpiKey(ticker string) string { return "kpi:" + ticker }

func (s *CacheKpiStore) Get(ctx context.Context, ticker string) (*models.KpiTable, error) {
	var t models.KpiTable
	if err := s.c.Get(ctx, kpiKey(ticker), &t); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil, models.ErrKpiNotFound
		}
		return nil, fmt.Errorf("cache get %s: %w", ticker, err)
	}
	if t.Ticker == "" {
		t.Ticker = ticker
	}
	return &t, nil
}

func (s *CacheKpiStore) Put(ctx context.Context, table *models.KpiTable) error {
	if table == nil || table.Ticker == "" {
		return fmt.Errorf("put kpis: table without ticker")
	}
	if err := s.c.Set(ctx, kpiKey(table.Ticker), table, 0); err != nil {
		return fmt.Errorf("cache put %s: %w", table.Ticker, err)
	}
	return nil
}

func (s *CacheKpiStore) Delete(ctx context.Context, ticker string) error {
	if err := s.c.Delete(ctx, kpiKey(ticker)); err != nil {
		return fmt.Errorf("cache delete %s: %w", ticker, err)
	}
	return nil
}
