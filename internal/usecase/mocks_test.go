package usecase

import (
	"context"
	"sync"
	"time"

	"FinKPI/internal/domain/models"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/mock"
)

type mockProvider struct{ mock.Mock }

func (m *mockProvider) FetchStatement(ctx context.Context, ticker string, kind models.StatementType) (*models.StatementTable, error) {
	args := m.Called(ctx, ticker, kind)
	t, _ := args.Get(0).(*models.StatementTable)
	return t, args.Error(1)
}

type mockRawStore struct{ mock.Mock }

func (m *mockRawStore) Write(ctx context.Context, ticker string, kind models.StatementType, table *models.StatementTable) error {
	return m.Called(ctx, ticker, kind, table).Error(0)
}

func (m *mockRawStore) Exists(ctx context.Context, ticker string, kind models.StatementType) (bool, error) {
	args := m.Called(ctx, ticker, kind)
	return args.Bool(0), args.Error(1)
}

type mockKpiStore struct{ mock.Mock }

func (m *mockKpiStore) Get(ctx context.Context, ticker string) (*models.KpiTable, error) {
	args := m.Called(ctx, ticker)
	t, _ := args.Get(0).(*models.KpiTable)
	return t, args.Error(1)
}

func (m *mockKpiStore) Put(ctx context.Context, table *models.KpiTable) error {
	return m.Called(ctx, table).Error(0)
}

func (m *mockKpiStore) Delete(ctx context.Context, ticker string) error {
	return m.Called(ctx, ticker).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishRefreshed(ctx context.Context, ev *models.KpiRefreshed) error {
	return m.Called(ctx, ev).Error(0)
}

func (m *mockPublisher) Close() error { return m.Called().Error(0) }

type mockSource struct{ mock.Mock }

func (m *mockSource) Fetch(ctx context.Context, ticker string) (*models.StatementTable, *models.StatementTable, error) {
	args := m.Called(ctx, ticker)
	inc, _ := args.Get(0).(*models.StatementTable)
	bal, _ := args.Get(1).(*models.StatementTable)
	return inc, bal, args.Error(2)
}

type mockComputer struct{ mock.Mock }

func (m *mockComputer) Compute(ctx context.Context, ticker string) (*models.KpiTable, error) {
	args := m.Called(ctx, ticker)
	t, _ := args.Get(0).(*models.KpiTable)
	return t, args.Error(1)
}

// memStore is a map-backed KpiStore.
type memStore struct {
	mu     sync.Mutex
	tables map[string]*models.KpiTable
}

func newMemStore() *memStore { return &memStore{tables: make(map[string]*models.KpiTable)} }

func (s *memStore) Get(_ context.Context, ticker string) (*models.KpiTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[ticker]
	if !ok {
		return nil, models.ErrKpiNotFound
	}
	cp := *t
	cp.Records = append([]models.KpiRecord(nil), t.Records...)
	return &cp, nil
}

func (s *memStore) Put(_ context.Context, t *models.KpiTable) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[t.Ticker] = t
	return nil
}

func (s *memStore) Delete(_ context.Context, ticker string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tables, ticker)
	return nil
}

func date(y int) time.Time { return time.Date(y, 12, 31, 0, 0, 0, 0, time.UTC) }

func vals(fs ...float64) []null.Float {
	out := make([]null.Float, len(fs))
	for i, f := range fs {
		out[i] = null.FloatFrom(f)
	}
	return out
}

// incomeTable has two periods, newest first, as providers return them.
func incomeTable() *models.StatementTable {
	return &models.StatementTable{
		Periods: []time.Time{date(2023), date(2022)},
		Rows: []models.LineItem{
			{Label: "Total Revenue", Values: vals(120, 100)},
			{Label: "Gross Profit", Values: vals(60, 40)},
			{Label: "Operating Income", Values: vals(24, 20)},
			{Label: "Net Income", Values: vals(12, 10)},
		},
	}
}

func balanceTable() *models.StatementTable {
	return &models.StatementTable{
		Periods: []time.Time{date(2023), date(2022)},
		Rows: []models.LineItem{
			{Label: "Total Stockholder Equity", Values: vals(60, 40)},
			{Label: "Total Debt", Values: vals(30, 20)},
		},
	}
}

func cashflowTable() *models.StatementTable {
	return &models.StatementTable{
		Periods: []time.Time{date(2023)},
		Rows:    []models.LineItem{{Label: "Free Cash Flow", Values: vals(5)}},
	}
}
