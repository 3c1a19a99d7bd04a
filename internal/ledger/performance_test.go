package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradebot/goledger/internal/domain"
)

func TestSummarizeEmptyLedger(t *testing.T) {
	store := newTestStore(t)
	agg := NewAggregator(store)

	summary, err := agg.Summarize(context.Background())
	require.NoError(t, err)

	// 零平仓交易：winRate 必须为 0 而不是 NaN
	assert.Equal(t, 0.0, summary.WinRate)
	assert.Equal(t, 0.0, summary.TotalPnL)
	assert.Zero(t, summary.TotalTrades)
	assert.Zero(t, summary.WinningTrades)
	assert.Zero(t, summary.LosingTrades)
}

func TestSummarizeIgnoresOpenTrades(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	agg := NewAggregator(store)
	ctx := context.Background()

	_, err := svc.ExecuteTrade(ctx, buyIntent())
	require.NoError(t, err)

	summary, err := agg.Summarize(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalTrades)
}

func TestSummarizeMixedOutcomes(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	agg := NewAggregator(store)
	ctx := context.Background()

	closeAt := func(intent domain.TradeIntent, exit float64) {
		t.Helper()
		rec, err := svc.ExecuteTrade(ctx, intent)
		require.NoError(t, err)
		_, err = svc.CloseTrade(ctx, rec.ID, exit)
		require.NoError(t, err)
	}

	// 赢两笔输一笔: +20, +20, -20
	closeAt(buyIntent(), 110) // buy 100->110 x2 = +20
	sellIntent := buyIntent()
	sellIntent.Side = domain.SideSell
	closeAt(sellIntent, 90)  // sell 100->90 x2 = +20
	closeAt(buyIntent(), 90) // buy 100->90 x2 = -20

	summary, err := agg.Summarize(ctx)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalTrades)
	assert.Equal(t, 2, summary.WinningTrades)
	assert.Equal(t, 1, summary.LosingTrades)
	assert.InDelta(t, 20.0, summary.TotalPnL, 1e-9)
	assert.InDelta(t, 66.666, summary.WinRate, 0.01)
}

func TestSummarizeSkipsDanglingClosedIDs(t *testing.T) {
	store := newTestStore(t)
	svc := NewService(store)
	agg := NewAggregator(store)
	ctx := context.Background()

	rec, err := svc.ExecuteTrade(ctx, buyIntent())
	require.NoError(t, err)
	_, err = svc.CloseTrade(ctx, rec.ID, 110)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, tradeKey(rec.ID)))

	summary, err := agg.Summarize(ctx)
	require.NoError(t, err)
	assert.Zero(t, summary.TotalTrades)
}
