package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradebot/goledger/internal/domain"
	"github.com/tradebot/goledger/internal/kvstore"
	"github.com/tradebot/goledger/pkg/id"
)

// Records 交易记录管理器：按 ID 创建、读取、平仓单笔交易记录
// 记录是权威数据，索引只是加速器
type Records struct {
	store *kvstore.Store
}

// NewRecords 创建交易记录管理器
func NewRecords(store *kvstore.Store) *Records {
	return &Records{store: store}
}

// Create 校验交易意图并写入一条 open 状态的记录
// 校验失败时不产生任何写入
func (r *Records) Create(ctx context.Context, intent domain.TradeIntent) (*domain.TradeRecord, error) {
	if intent.Amount <= 0 {
		return nil, &ValidationError{Field: "amount", Reason: "must be positive"}
	}
	if intent.Price <= 0 {
		return nil, &ValidationError{Field: "price", Reason: "must be positive"}
	}
	if !intent.Side.Valid() {
		return nil, &ValidationError{Field: "side", Reason: "must be buy or sell"}
	}

	mode := intent.Mode
	if mode == "" {
		mode = domain.ModePaper
	}

	rec := &domain.TradeRecord{
		ID:           id.New(),
		Mode:         mode,
		Exchange:     intent.Exchange,
		Symbol:       intent.Symbol,
		Side:         intent.Side,
		Amount:       intent.Amount,
		EntryPrice:   intent.Price,
		CurrentPrice: intent.Price,
		StrategyID:   intent.StrategyID,
		Status:       domain.StatusOpen,
		CreatedAt:    time.Now().UTC(),
	}

	if err := r.store.Set(ctx, tradeKey(rec.ID), rec); err != nil {
		return nil, wrapStoreErr("create trade", err)
	}
	return rec, nil
}

// Get 按 ID 点查交易记录
func (r *Records) Get(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	var rec domain.TradeRecord
	err := r.store.Get(ctx, tradeKey(tradeID), &rec)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, wrapStoreErr("get trade", err)
	}
	return &rec, nil
}

// MarkClosed 在事务内把记录置为 closed 并计算已实现盈亏
// 状态检查和条件写入在同一事务里：并发的二次平仓会读到 closed
// 状态而拿到 ErrAlreadyClosed，不会重复计入盈亏
func (r *Records) MarkClosed(txn *kvstore.Txn, tradeID string, exitPrice float64) (*domain.TradeRecord, error) {
	var rec domain.TradeRecord
	if err := txn.Get(tradeKey(tradeID), &rec); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if rec.IsClosed() {
		return nil, ErrAlreadyClosed
	}

	pnl, pct := realizedPnL(rec.Side, rec.EntryPrice, exitPrice, rec.Amount)
	now := time.Now().UTC()

	rec.Status = domain.StatusClosed
	rec.CurrentPrice = exitPrice
	rec.ExitPrice = &exitPrice
	rec.ClosedAt = &now
	rec.PnL = &pnl
	rec.PnLPercent = &pct

	if err := txn.Set(tradeKey(rec.ID), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// realizedPnL 带符号方向的已实现盈亏
// buy:  pnl = (exit - entry) * amount
// sell: pnl = (entry - exit) * amount
// pnlPercent = pnl / (entry * amount) * 100
func realizedPnL(side domain.Side, entryPrice, exitPrice, amount float64) (pnl, pnlPercent float64) {
	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	amt := decimal.NewFromFloat(amount)

	gross := exit.Sub(entry).Mul(amt)
	if side == domain.SideSell {
		gross = entry.Sub(exit).Mul(amt)
	}

	cost := entry.Mul(amt)
	pct := decimal.Zero
	if !cost.IsZero() {
		pct = gross.Div(cost).Mul(decimal.NewFromInt(100))
	}

	pnl, _ = gross.Float64()
	pnlPercent, _ = pct.Float64()
	return pnl, pnlPercent
}
