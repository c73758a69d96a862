package usecase

import (
	"context"
	"errors"
	"testing"

	"FinKPI/internal/domain/models"
	"FinKPI/pkg/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestComputeBuildsPersistsAndPublishes(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{}
	store := &mockKpiStore{}
	pub := &mockPublisher{}

	src.On("Fetch", ctx, "ULVR.L").Return(incomeTable(), balanceTable(), nil)
	store.On("Put", ctx, mock.AnythingOfType("*models.KpiTable")).Return(nil).Once()
	pub.On("PublishRefreshed", ctx, mock.MatchedBy(func(ev *models.KpiRefreshed) bool {
		return ev.Ticker == "ULVR.L" && ev.Periods == 2 && ev.ID != ""
	})).Return(nil).Once()

	calc := NewKpiCalculator(src, store, pub, metrics.Nop{})
	table, err := calc.Compute(ctx, "ULVR.L")
	require.NoError(t, err)

	require.Len(t, table.Records, 2)
	first, last := table.Records[0], table.Records[1]
	assert.Equal(t, date(2022), first.PeriodEnd)
	assert.Equal(t, date(2023), last.PeriodEnd)

	assert.InDelta(t, 0.5, last.GrossMarginPct.Float64, 1e-12)
	assert.InDelta(t, 0.2, last.OperatingMarginPct.Float64, 1e-12)
	assert.InDelta(t, 0.1, last.NetMarginPct.Float64, 1e-12)
	assert.InDelta(t, 0.24, last.RoePct.Float64, 1e-12)
	assert.InDelta(t, 0.5, last.DebtToEquity.Float64, 1e-12)
	assert.InDelta(t, 0.2, last.RevenueYoY.Float64, 1e-12)
	assert.InDelta(t, 0.2, last.NetIncomeYoY.Float64, 1e-12)

	assert.False(t, first.RoePct.Valid)
	assert.False(t, first.RevenueYoY.Valid)

	store.AssertCalled(t, "Put", ctx, table)
	pub.AssertExpectations(t)
}

func TestComputeEmptyBalanceIsDataUnavailable(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{}
	store := &mockKpiStore{}

	src.On("Fetch", ctx, "TSCO.L").Return(incomeTable(), &models.StatementTable{}, nil)

	_, err := NewKpiCalculator(src, store, nil, metrics.Nop{}).Compute(ctx, "TSCO.L")
	require.ErrorIs(t, err, models.ErrDataUnavailable)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestComputeMissingIncomeIsDataUnavailable(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{}
	store := &mockKpiStore{}

	src.On("Fetch", ctx, "X").Return(nil, balanceTable(), nil)

	_, err := NewKpiCalculator(src, store, nil, metrics.Nop{}).Compute(ctx, "X")
	require.ErrorIs(t, err, models.ErrDataUnavailable)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestComputeUnresolvedFieldStaysAbsent(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{}
	store := &mockKpiStore{}

	noDebt := balanceTable()
	noDebt.Rows = noDebt.Rows[:1]

	src.On("Fetch", ctx, "X").Return(incomeTable(), noDebt, nil)
	store.On("Put", ctx, mock.Anything).Return(nil)

	table, err := NewKpiCalculator(src, store, nil, metrics.Nop{}).Compute(ctx, "X")
	require.NoError(t, err)
	for _, r := range table.Records {
		assert.False(t, r.TotalDebt.Valid)
		assert.False(t, r.DebtToEquity.Valid)
		assert.True(t, r.TotalEquity.Valid)
	}
}

func TestComputePublishFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{}
	store := &mockKpiStore{}
	pub := &mockPublisher{}

	src.On("Fetch", ctx, "X").Return(incomeTable(), balanceTable(), nil)
	store.On("Put", ctx, mock.Anything).Return(nil)
	pub.On("PublishRefreshed", ctx, mock.Anything).Return(errors.New("broker gone"))

	table, err := NewKpiCalculator(src, store, pub, metrics.Nop{}).Compute(ctx, "X")
	require.NoError(t, err)
	assert.Len(t, table.Records, 2)
}

func TestComputeFetchErrorPropagates(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{}
	store := &mockKpiStore{}
	boom := errors.New("timeout")

	src.On("Fetch", ctx, "X").Return(nil, nil, boom)

	_, err := NewKpiCalculator(src, store, nil, metrics.Nop{}).Compute(ctx, "X")
	require.ErrorIs(t, err, boom)
	assert.False(t, errors.Is(err, models.ErrDataUnavailable))
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestComputePutErrorPropagates(t *testing.T) {
	ctx := context.Background()
	src := &mockSource{}
	store := &mockKpiStore{}
	pub := &mockPublisher{}
	boom := errors.New("read-only fs")

	src.On("Fetch", ctx, "X").Return(incomeTable(), balanceTable(), nil)
	store.On("Put", ctx, mock.Anything).Return(boom)

	_, err := NewKpiCalculator(src, store, pub, metrics.Nop{}).Compute(ctx, "X")
	require.ErrorIs(t, err, boom)
	pub.AssertNotCalled(t, "PublishRefreshed", mock.Anything, mock.Anything)
}
