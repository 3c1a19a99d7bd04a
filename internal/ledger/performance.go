package ledger

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/tradebot/goledger/internal/domain"
	"github.com/tradebot/goledger/internal/kvstore"
)

// Aggregator 绩效聚合器：closed 索引与记录的只读消费者
// 每次请求重新计算，不维护独立状态，可与写入方并发调用
type Aggregator struct {
	records *Records
	index   *Index
}

// NewAggregator 创建绩效聚合器
func NewAggregator(store *kvstore.Store) *Aggregator {
	return &Aggregator{
		records: NewRecords(store),
		index:   NewIndex(store),
	}
}

// Summarize 扫描 closed 索引并汇总已实现盈亏
// 无法解析的 ID 静默跳过（与 ListActiveTrades 相同的防御策略）
// 零平仓交易时 winRate 为 0，不会出现除零
func (a *Aggregator) Summarize(ctx context.Context) (*domain.PerformanceSummary, error) {
	ids, err := a.index.ListClosed(ctx)
	if err != nil {
		return nil, err
	}

	totalPnL := decimal.Zero
	summary := &domain.PerformanceSummary{}

	for _, tradeID := range ids {
		rec, err := a.records.Get(ctx, tradeID)
		if err != nil {
			if errors.Is(err, ErrNotFound) || errors.Is(err, kvstore.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if !rec.IsClosed() || rec.PnL == nil {
			continue
		}

		summary.TotalTrades++
		totalPnL = totalPnL.Add(decimal.NewFromFloat(*rec.PnL))
		if *rec.PnL > 0 {
			summary.WinningTrades++
		} else {
			summary.LosingTrades++
		}
	}

	summary.TotalPnL, _ = totalPnL.Float64()
	if summary.TotalTrades > 0 {
		summary.WinRate = float64(summary.WinningTrades) / float64(summary.TotalTrades) * 100
	}
	return summary, nil
}
