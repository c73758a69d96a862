package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"FinKPI/internal/domain/models"
	"FinKPI/internal/service/finnhub"
	"FinKPI/internal/service/ratelimit"
	"FinKPI/pkg/config"

	"github.com/guregu/null/v6"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockKpiService struct{ mock.Mock }

func (m *mockKpiService) Load(ctx context.Context, ticker string) (*models.KpiTable, error) {
	args := m.Called(ctx, ticker)
	t, _ := args.Get(0).(*models.KpiTable)
	return t, args.Error(1)
}

func (m *mockKpiService) Invalidate(ctx context.Context, ticker string) error {
	return m.Called(ctx, ticker).Error(0)
}

func (m *mockKpiService) Refresh(ctx context.Context, ticker string) (*models.KpiTable, error) {
	args := m.Called(ctx, ticker)
	t, _ := args.Get(0).(*models.KpiTable)
	return t, args.Error(1)
}

func (m *mockKpiService) Peers(ctx context.Context, tickers []string, metric string) (*models.PeerComparison, error) {
	args := m.Called(ctx, tickers, metric)
	p, _ := args.Get(0).(*models.PeerComparison)
	return p, args.Error(1)
}

func (m *mockKpiService) SectorAverage(ctx context.Context, category string, tickers []string, metrics []string) (*models.SectorAverage, error) {
	args := m.Called(ctx, category, tickers, metrics)
	s, _ := args.Get(0).(*models.SectorAverage)
	return s, args.Error(1)
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestServer(svc KpiService, opts ...func(*KpiEchoHandler)) *echo.Echo {
	h := NewKpiEchoHandler(nil, svc, config.Universe{
		{Name: "Healthcare", Companies: []config.Company{
			{Label: "GSK (GSK.L)", Ticker: "GSK.L"},
			{Label: "AstraZeneca (AZN.L)", Ticker: "AZN.L"},
		}},
		{Name: "Financials", Companies: []config.Company{
			{Label: "Barclays (BARC.L)", Ticker: "BARC.L"},
		}},
	})
	for _, o := range opts {
		o(h)
	}
	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func table(ticker string, n int) *models.KpiTable {
	t := &models.KpiTable{Ticker: ticker}
	for i := 0; i < n; i++ {
		t.Records = append(t.Records, models.KpiRecord{
			PeriodEnd:    time.Date(2020+i, 12, 31, 0, 0, 0, 0, time.UTC),
			Revenue:      null.FloatFrom(float64(1000 * (i + 1))),
			NetMarginPct: null.FloatFrom(0.1),
		})
	}
	return t
}

func TestHistoryLastN(t *testing.T) {
	svc := &mockKpiService{}
	svc.On("Load", mock.Anything, "ULVR.L").Return(table("ULVR.L", 4), nil)
	e := newTestServer(svc)

	rec, env := do(t, e, http.MethodGet, "/api/kpis/ulvr.l?last=3")
	require.Equal(t, http.StatusOK, rec.Code)
	var got models.KpiTable
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got.Records, 3)
	assert.Equal(t, 2021, got.Records[0].PeriodEnd.Year())
	svc.AssertExpectations(t)
}

func TestHistoryRejectsBadLast(t *testing.T) {
	e := newTestServer(&mockKpiService{})
	rec, _ := do(t, e, http.MethodGet, "/api/kpis/ULVR.L?last=-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDataUnavailableIs422(t *testing.T) {
	svc := &mockKpiService{}
	svc.On("Load", mock.Anything, "NOPE").Return(nil, fmt.Errorf("NOPE: %w", models.ErrDataUnavailable))
	e := newTestServer(svc)

	rec, env := do(t, e, http.MethodGet, "/api/kpis/NOPE")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_DATA_UNAVAILABLE")
	assert.Contains(t, string(env.Data), "try another ticker")
}

func TestProviderErrorIs502(t *testing.T) {
	svc := &mockKpiService{}
	svc.On("Load", mock.Anything, "AZN.L").
		Return(nil, fmt.Errorf("fetch: %w", &finnhub.APIError{Status: 403, Body: "no access"}))
	e := newTestServer(svc)

	rec, env := do(t, e, http.MethodGet, "/api/kpis/AZN.L/latest")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_UPSTREAM")
}

func TestLatestSnapshot(t *testing.T) {
	svc := &mockKpiService{}
	svc.On("Load", mock.Anything, "GSK.L").Return(table("GSK.L", 2), nil)
	e := newTestServer(svc)

	rec, env := do(t, e, http.MethodGet, "/api/kpis/GSK.L/latest")
	require.Equal(t, http.StatusOK, rec.Code)
	var snap models.Snapshot
	require.NoError(t, json.Unmarshal(env.Data, &snap))
	assert.Equal(t, "2K", snap.Display["revenue"])
	assert.Equal(t, "10.0%", snap.Display["net_margin_pct"])
	assert.Equal(t, "—", snap.Display["roe_pct"])
	assert.Equal(t, "2021-12-31", snap.Display["period_end"])
}

func TestRefreshAndInvalidate(t *testing.T) {
	svc := &mockKpiService{}
	svc.On("Refresh", mock.Anything, "TSCO.L").Return(table("TSCO.L", 1), nil).Once()
	svc.On("Invalidate", mock.Anything, "TSCO.L").Return(nil).Once()
	e := newTestServer(svc)

	rec, _ := do(t, e, http.MethodPost, "/api/kpis/TSCO.L/refresh")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, e, http.MethodDelete, "/api/kpis/TSCO.L")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	svc.AssertExpectations(t)
}

func TestRefreshRateLimited(t *testing.T) {
	svc := &mockKpiService{}
	svc.On("Refresh", mock.Anything, "TSCO.L").Return(table("TSCO.L", 1), nil)
	lim := ratelimit.New(1, 1)
	e := newTestServer(svc, func(h *KpiEchoHandler) { h.SetRefreshLimiter(lim.Middleware()) })

	rec, _ := do(t, e, http.MethodPost, "/api/kpis/TSCO.L/refresh")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = do(t, e, http.MethodPost, "/api/kpis/TSCO.L/refresh")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	svc.AssertNumberOfCalls(t, "Refresh", 1)
}

func TestPeers(t *testing.T) {
	svc := &mockKpiService{}
	svc.On("Peers", mock.Anything, []string{"AZN.L", "GSK.L"}, "net_margin_pct").
		Return(&models.PeerComparison{Metric: "net_margin_pct"}, nil)
	e := newTestServer(svc)

	rec, _ := do(t, e, http.MethodGet, "/api/peers?tickers=azn.l,%20GSK.L,AZN.L")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)

	rec, _ = do(t, e, http.MethodGet, "/api/peers?tickers=AZN.L&metric=bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSectorAverage(t *testing.T) {
	svc := &mockKpiService{}
	svc.On("SectorAverage", mock.Anything, "Healthcare", []string{"GSK.L", "AZN.L"}, []string{"roe_pct"}).
		Return(&models.SectorAverage{Category: "Healthcare"}, nil)
	e := newTestServer(svc)

	rec, _ := do(t, e, http.MethodGet, "/api/sectors/Healthcare/average?metrics=roe_pct")
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)

	rec, _ = do(t, e, http.MethodGet, "/api/sectors/Nope/average")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/sectors/Healthcare/average?metrics=roe_pct,bogus")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUniverseKeepsConfiguredOrder(t *testing.T) {
	e := newTestServer(&mockKpiService{})
	rec, env := do(t, e, http.MethodGet, "/api/universe")
	require.Equal(t, http.StatusOK, rec.Code)
	var cats []config.Category
	require.NoError(t, json.Unmarshal(env.Data, &cats))
	require.Len(t, cats, 2)
	assert.Equal(t, "Healthcare", cats[0].Name)
	assert.Equal(t, "Financials", cats[1].Name)
	assert.Equal(t, "GSK.L", cats[0].Companies[0].Ticker)
	assert.Equal(t, "AZN.L", cats[0].Companies[1].Ticker)
}

func TestHealth(t *testing.T) {
	rec, _ := do(t, newTestServer(&mockKpiService{}), http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
}
