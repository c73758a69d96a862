package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"FinKPI/internal/domain/models"
	"FinKPI/pkg/metrics"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func record(year int, netMargin float64) models.KpiRecord {
	return models.KpiRecord{PeriodEnd: date(year), NetMarginPct: null.FloatFrom(netMargin)}
}

func TestLoadHitReturnsSortedWithoutCompute(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	calc := &mockComputer{}
	_ = store.Put(ctx, &models.KpiTable{Ticker: "BP.L", Records: []models.KpiRecord{record(2023, 0.1), record(2021, 0.3), record(2022, 0.2)}})

	got, err := NewKpiCache(store, calc, metrics.Nop{}).Load(ctx, "BP.L")
	require.NoError(t, err)

	require.Len(t, got.Records, 3)
	assert.Equal(t, date(2021), got.Records[0].PeriodEnd)
	assert.Equal(t, date(2023), got.Records[2].PeriodEnd)
	calc.AssertNotCalled(t, "Compute", mock.Anything, mock.Anything)
}

func TestLoadMissComputes(t *testing.T) {
	ctx := context.Background()
	calc := &mockComputer{}
	want := &models.KpiTable{Ticker: "BP.L", Records: []models.KpiRecord{record(2023, 0.1)}}
	calc.On("Compute", mock.Anything, "BP.L").Return(want, nil).Once()

	got, err := NewKpiCache(newMemStore(), calc, metrics.Nop{}).Load(ctx, "BP.L")
	require.NoError(t, err)
	assert.Same(t, want, got)
	calc.AssertExpectations(t)
}

func TestLoadStoreErrorIsNotAMiss(t *testing.T) {
	ctx := context.Background()
	store := &mockKpiStore{}
	calc := &mockComputer{}
	store.On("Get", ctx, "BP.L").Return(nil, errors.New("redis down"))

	_, err := NewKpiCache(store, calc, metrics.Nop{}).Load(ctx, "BP.L")
	require.Error(t, err)
	calc.AssertNotCalled(t, "Compute", mock.Anything, mock.Anything)
}

// countingSetup wires a real fetcher and calculator over a mock provider.
func countingSetup(t *testing.T) (*KpiCache, *mockProvider) {
	t.Helper()
	p := &mockProvider{}
	raw := &mockRawStore{}
	p.On("FetchStatement", mock.Anything, "ULVR.L", models.StatementIncome).Return(incomeTable(), nil)
	p.On("FetchStatement", mock.Anything, "ULVR.L", models.StatementBalance).Return(balanceTable(), nil)
	p.On("FetchStatement", mock.Anything, "ULVR.L", models.StatementCashFlow).Return(cashflowTable(), nil)
	raw.On("Write", mock.Anything, "ULVR.L", mock.Anything, mock.Anything).Return(nil)

	store := newMemStore()
	fetcher := NewStatementFetcher(p, raw, metrics.Nop{})
	calc := NewKpiCalculator(fetcher, store, nil, metrics.Nop{})
	return NewKpiCache(store, calc, metrics.Nop{}), p
}

func TestLoadTwiceFetchesOnce(t *testing.T) {
	ctx := context.Background()
	cache, p := countingSetup(t)

	first, err := cache.Load(ctx, "ULVR.L")
	require.NoError(t, err)
	second, err := cache.Load(ctx, "ULVR.L")
	require.NoError(t, err)

	assert.Equal(t, first.Records, second.Records)
	p.AssertNumberOfCalls(t, "FetchStatement", 3)
}

func TestInvalidateThenLoadFetchesExactlyOnce(t *testing.T) {
	ctx := context.Background()
	cache, p := countingSetup(t)

	_, err := cache.Load(ctx, "ULVR.L")
	require.NoError(t, err)

	require.NoError(t, cache.Invalidate(ctx, "ULVR.L"))
	_, err = cache.Load(ctx, "ULVR.L")
	require.NoError(t, err)
	_, err = cache.Load(ctx, "ULVR.L")
	require.NoError(t, err)

	// one fetch before and one after the invalidation, three statements each
	p.AssertNumberOfCalls(t, "FetchStatement", 6)
}

func TestRefreshRecomputes(t *testing.T) {
	ctx := context.Background()
	cache, p := countingSetup(t)

	_, err := cache.Load(ctx, "ULVR.L")
	require.NoError(t, err)
	table, err := cache.Refresh(ctx, "ULVR.L")
	require.NoError(t, err)

	assert.Len(t, table.Records, 2)
	p.AssertNumberOfCalls(t, "FetchStatement", 6)
}

func TestRefreshFailureKeepsStoredTable(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	calc := &mockComputer{}
	seed := &models.KpiTable{Ticker: "ULVR.L", Records: []models.KpiRecord{record(2022, 0.1), record(2023, 0.12)}}
	require.NoError(t, store.Put(ctx, seed))
	calc.On("Compute", mock.Anything, "ULVR.L").Return(nil, models.ErrDataUnavailable).Once()

	_, err := NewKpiCache(store, calc, metrics.Nop{}).Refresh(ctx, "ULVR.L")
	require.ErrorIs(t, err, models.ErrDataUnavailable)

	got, err := store.Get(ctx, "ULVR.L")
	require.NoError(t, err)
	assert.Equal(t, seed.Records, got.Records)
}

// gatedComputer blocks in Compute until release is closed and fails if its
// own context ended meanwhile.
type gatedComputer struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedComputer) Compute(ctx context.Context, ticker string) (*models.KpiTable, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &models.KpiTable{Ticker: ticker, Records: []models.KpiRecord{record(2023, 0.1)}}, nil
}

func TestLoadSharedComputeSurvivesCancelledCaller(t *testing.T) {
	calc := &gatedComputer{started: make(chan struct{}), release: make(chan struct{})}
	cache := NewKpiCache(newMemStore(), calc, metrics.Nop{})

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := cache.Load(ctxA, "SHEL.L")
		errA <- err
	}()
	<-calc.started

	type result struct {
		t   *models.KpiTable
		err error
	}
	resB := make(chan result, 1)
	go func() {
		tbl, err := cache.Load(context.Background(), "SHEL.L")
		resB <- result{tbl, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelA()
	require.ErrorIs(t, <-errA, context.Canceled)

	close(calc.release)
	b := <-resB
	require.NoError(t, b.err)
	assert.Equal(t, "SHEL.L", b.t.Ticker)
}

func TestPeersReportsUnavailableTickers(t *testing.T) {
	ctx := context.Background()
	calc := &mockComputer{}
	store := newMemStore()
	_ = store.Put(ctx, &models.KpiTable{Ticker: "BP.L", Records: []models.KpiRecord{record(2022, 0.05), record(2023, 0.08)}})
	calc.On("Compute", mock.Anything, "NOPE").Return(nil, models.ErrDataUnavailable)

	got, err := NewKpiCache(store, calc, metrics.Nop{}).Peers(ctx, []string{"BP.L", "NOPE"}, "net_margin_pct")
	require.NoError(t, err)

	require.Len(t, got.Peers, 2)
	assert.Equal(t, "BP.L", got.Peers[0].Ticker)
	assert.Equal(t, null.FloatFrom(0.08), got.Peers[0].Value)
	assert.Equal(t, date(2023), got.Peers[0].Latest.PeriodEnd)
	assert.Equal(t, "NOPE", got.Peers[1].Ticker)
	assert.NotEmpty(t, got.Peers[1].Error)
	assert.False(t, got.Peers[1].Value.Valid)
}

func TestPeersFailsOnProviderError(t *testing.T) {
	ctx := context.Background()
	calc := &mockComputer{}
	calc.On("Compute", mock.Anything, "BP.L").Return(nil, errors.New("upstream 500"))

	_, err := NewKpiCache(newMemStore(), calc, metrics.Nop{}).Peers(ctx, []string{"BP.L"}, "roe_pct")
	require.Error(t, err)
}

func TestPeersRejectsUnknownMetric(t *testing.T) {
	_, err := NewKpiCache(newMemStore(), &mockComputer{}, metrics.Nop{}).Peers(context.Background(), []string{"BP.L"}, "pe_ratio")
	require.Error(t, err)
}

func TestSectorAverageSkipsFailuresAndIgnoresAbsent(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	calc := &mockComputer{}
	_ = store.Put(ctx, &models.KpiTable{Ticker: "A", Records: []models.KpiRecord{record(2022, 0.1), record(2023, 0.2)}})
	_ = store.Put(ctx, &models.KpiTable{Ticker: "B", Records: []models.KpiRecord{
		record(2023, 0.4),
		{PeriodEnd: date(2024)},
	}})
	calc.On("Compute", mock.Anything, "C").Return(nil, models.ErrDataUnavailable)

	got, err := NewKpiCache(store, calc, metrics.Nop{}).SectorAverage(ctx, "Energy", []string{"A", "B", "C"}, []string{"net_margin_pct"})
	require.NoError(t, err)

	assert.Equal(t, []string{"C"}, got.Skipped)
	require.Len(t, got.Points, 3)
	assert.Equal(t, date(2022), got.Points[0].PeriodEnd)
	assert.InDelta(t, 0.1, got.Points[0].Values["net_margin_pct"].Float64, 1e-12)
	assert.InDelta(t, 0.3, got.Points[1].Values["net_margin_pct"].Float64, 1e-12)
	assert.False(t, got.Points[2].Values["net_margin_pct"].Valid)
}
