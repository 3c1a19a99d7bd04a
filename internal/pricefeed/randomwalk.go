package pricefeed

import (
	"math/rand"
	"sync"

	"github.com/tradebot/goledger/internal/domain"
)

// RandomWalk 模拟行情源：每次 tick 在 ±0.5% 内随机游走
// 只用于持仓展示的未实现盈亏刷新，不进入账本
type RandomWalk struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomWalk 创建随机游走行情源
func NewRandomWalk(seed int64) *RandomWalk {
	return &RandomWalk{rng: rand.New(rand.NewSource(seed))}
}

// Next 基于当前价格生成下一个 tick
// 步长 = (rand - 0.5) * price * 0.01，即单步最多 ±0.5%
func (w *RandomWalk) Next(price float64) float64 {
	if price <= 0 {
		return price
	}
	w.mu.Lock()
	step := (w.rng.Float64() - 0.5) * price * 0.01
	w.mu.Unlock()

	next := price + step
	if next <= 0 {
		return price
	}
	return next
}

// UnrealizedPnL 按方向计算未实现盈亏及其百分比
// 展示用途的本地计算，与账本的已实现盈亏公式同构
func UnrealizedPnL(side domain.Side, entryPrice, currentPrice, amount float64) (pnl, pnlPercent float64) {
	pnl = (currentPrice - entryPrice) * amount
	if side == domain.SideSell {
		pnl = -pnl
	}
	cost := entryPrice * amount
	if cost > 0 {
		pnlPercent = pnl / cost * 100
	}
	return pnl, pnlPercent
}
