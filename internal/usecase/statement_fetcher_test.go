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

func TestFetchArchivesAllAndReturnsIncomeAndBalance(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{}
	raw := &mockRawStore{}
	inc, bal, cf := incomeTable(), balanceTable(), cashflowTable()

	p.On("FetchStatement", ctx, "BP.L", models.StatementIncome).Return(inc, nil).Once()
	p.On("FetchStatement", ctx, "BP.L", models.StatementBalance).Return(bal, nil).Once()
	p.On("FetchStatement", ctx, "BP.L", models.StatementCashFlow).Return(cf, nil).Once()
	raw.On("Write", ctx, "BP.L", models.StatementIncome, inc).Return(nil).Once()
	raw.On("Write", ctx, "BP.L", models.StatementBalance, bal).Return(nil).Once()
	raw.On("Write", ctx, "BP.L", models.StatementCashFlow, cf).Return(nil).Once()

	f := NewStatementFetcher(p, raw, metrics.Nop{})
	gotInc, gotBal, err := f.Fetch(ctx, "BP.L")
	require.NoError(t, err)

	assert.Same(t, inc, gotInc)
	assert.Same(t, bal, gotBal)
	p.AssertExpectations(t)
	raw.AssertExpectations(t)
}

func TestFetchSkipsArchiveForEmptyStatement(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{}
	raw := &mockRawStore{}
	inc := incomeTable()

	p.On("FetchStatement", ctx, "X", models.StatementIncome).Return(inc, nil)
	p.On("FetchStatement", ctx, "X", models.StatementBalance).Return(&models.StatementTable{}, nil)
	p.On("FetchStatement", ctx, "X", models.StatementCashFlow).Return(nil, nil)
	raw.On("Write", ctx, "X", models.StatementIncome, inc).Return(nil).Once()

	gotInc, gotBal, err := NewStatementFetcher(p, raw, metrics.Nop{}).Fetch(ctx, "X")
	require.NoError(t, err)

	assert.NotNil(t, gotInc)
	assert.Nil(t, gotBal)
	raw.AssertNumberOfCalls(t, "Write", 1)
}

func TestFetchStopsAtFirstProviderError(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{}
	raw := &mockRawStore{}
	boom := errors.New("provider down")

	p.On("FetchStatement", ctx, "X", models.StatementIncome).Return(incomeTable(), nil)
	p.On("FetchStatement", ctx, "X", models.StatementBalance).Return(nil, boom)
	raw.On("Write", ctx, "X", models.StatementIncome, mock.Anything).Return(nil)

	_, _, err := NewStatementFetcher(p, raw, metrics.Nop{}).Fetch(ctx, "X")
	require.ErrorIs(t, err, boom)
	p.AssertNotCalled(t, "FetchStatement", ctx, "X", models.StatementCashFlow)
}

func TestFetchReturnsRawWriteError(t *testing.T) {
	ctx := context.Background()
	p := &mockProvider{}
	raw := &mockRawStore{}
	diskFull := errors.New("disk full")

	p.On("FetchStatement", ctx, "X", models.StatementIncome).Return(incomeTable(), nil)
	raw.On("Write", ctx, "X", models.StatementIncome, mock.Anything).Return(diskFull)

	_, _, err := NewStatementFetcher(p, raw, metrics.Nop{}).Fetch(ctx, "X")
	require.ErrorIs(t, err, diskFull)
	p.AssertNumberOfCalls(t, "FetchStatement", 1)
}
