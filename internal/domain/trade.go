package domain

import (
	"time"
)

// TradeMode 交易模式
type TradeMode string

const (
	ModePaper TradeMode = "paper" // 模拟盘
	ModeLive  TradeMode = "live"  // 实盘
)

// Side 交易方向
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// Valid 判断方向是否合法
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// TradeStatus 交易状态
type TradeStatus string

const (
	StatusOpen   TradeStatus = "open"
	StatusClosed TradeStatus = "closed"
)

// TradeIntent 已决策的交易意图（由外部策略/信号源给出）
// 账本只负责记录，不做信号判断
type TradeIntent struct {
	Mode       TradeMode `json:"mode"`
	Exchange   string    `json:"exchange"`
	Symbol     string    `json:"symbol"`
	Side       Side      `json:"side"`
	Amount     float64   `json:"amount"`
	Price      float64   `json:"price"`
	StrategyID string    `json:"strategyId"`
}

// TradeRecord 交易记录（账本的权威实体）
// 记录在开仓时创建，平仓时被修改一次，之后不再变化，也永不删除
// ExitPrice/ClosedAt/PnL/PnLPercent 四个字段要么全部存在（已平仓），
// 要么全部缺失（持仓中）
type TradeRecord struct {
	ID           string      `json:"id"`
	Mode         TradeMode   `json:"mode"`
	Exchange     string      `json:"exchange"`
	Symbol       string      `json:"symbol"`
	Side         Side        `json:"side"`
	Amount       float64     `json:"amount"`
	EntryPrice   float64     `json:"entryPrice"`
	CurrentPrice float64     `json:"currentPrice"`
	StrategyID   string      `json:"strategyId"`
	Status       TradeStatus `json:"status"`
	CreatedAt    time.Time   `json:"createdAt"`

	// 平仓后才有值
	ExitPrice  *float64   `json:"exitPrice,omitempty"`
	ClosedAt   *time.Time `json:"closedAt,omitempty"`
	PnL        *float64   `json:"pnl,omitempty"`
	PnLPercent *float64   `json:"pnlPercent,omitempty"`
}

// IsClosed 判断交易是否已平仓
func (t *TradeRecord) IsClosed() bool {
	return t.Status == StatusClosed
}

// PerformanceSummary 绩效汇总（派生视图，按需计算，不落盘）
type PerformanceSummary struct {
	TotalPnL      float64 `json:"totalPnL"`
	TotalTrades   int     `json:"totalTrades"`
	WinRate       float64 `json:"winRate"`
	WinningTrades int     `json:"winningTrades"`
	LosingTrades  int     `json:"losingTrades"`
}
