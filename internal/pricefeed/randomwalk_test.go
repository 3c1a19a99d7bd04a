package pricefeed

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tradebot/goledger/internal/domain"
)

func TestNextStaysWithinStepBound(t *testing.T) {
	walk := NewRandomWalk(1)

	price := 40000.0
	for i := 0; i < 1000; i++ {
		next := walk.Next(price)
		if next <= 0 {
			t.Fatalf("price went non-positive: %v", next)
		}
		step := math.Abs(next - price)
		if step > price*0.005+1e-9 {
			t.Fatalf("step %.4f exceeds 0.5%% of %.4f", step, price)
		}
		price = next
	}
}

func TestNextNonPositiveInput(t *testing.T) {
	walk := NewRandomWalk(1)
	assert.Equal(t, 0.0, walk.Next(0))
	assert.Equal(t, -1.0, walk.Next(-1))
}

func TestUnrealizedPnLBuy(t *testing.T) {
	pnl, pct := UnrealizedPnL(domain.SideBuy, 100, 110, 2)
	assert.InDelta(t, 20.0, pnl, 1e-9)
	assert.InDelta(t, 10.0, pct, 1e-9)
}

func TestUnrealizedPnLSell(t *testing.T) {
	pnl, pct := UnrealizedPnL(domain.SideSell, 100, 110, 2)
	assert.InDelta(t, -20.0, pnl, 1e-9)
	assert.InDelta(t, -10.0, pct, 1e-9)
}

func TestUnrealizedPnLZeroCost(t *testing.T) {
	_, pct := UnrealizedPnL(domain.SideBuy, 0, 10, 2)
	assert.Equal(t, 0.0, pct)
}
