package pricefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/tradebot/goledger/internal/domain"
	"github.com/tradebot/goledger/pkg/cache"
)

var log = logrus.WithField("component", "price_watcher")

// activeTradesResponse /trades/active 的响应信封
type activeTradesResponse struct {
	Success bool                  `json:"success"`
	Error   string                `json:"error"`
	Trades  []*domain.TradeRecord `json:"trades"`
}

// Watcher 价格对账客户端：固定间隔重新拉取持仓列表，
// 用模拟 tick 在本地副本上重算未实现盈亏
// 只读账本状态，绝不回写；一次轮询失败只是推迟到下一次
type Watcher struct {
	client   *resty.Client
	walk     *RandomWalk
	prices   *cache.InMemoryCache[string, float64]
	interval time.Duration
}

// NewWatcher 创建价格对账客户端
func NewWatcher(serverURL string, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	client := resty.New().
		SetBaseURL(serverURL).
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Watcher{
		client: client,
		walk:   NewRandomWalk(time.Now().UnixNano()),
		// 缓存寿命取轮询间隔的若干倍：平仓后的条目自然过期
		prices:   cache.NewInMemoryCache[string, float64](interval * 6),
		interval: interval,
	}
}

// Run 轮询循环，ctx 取消后返回
func (w *Watcher) Run(ctx context.Context) {
	log.Infof("价格对账客户端启动，间隔 %s", w.interval)
	defer w.prices.Stop()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("价格对账客户端退出")
			return
		case <-ticker.C:
			if err := w.poll(ctx); err != nil {
				// 单次失败不致命，下一轮刷新
				log.Warnf("轮询失败: %v", err)
			}
		}
	}
}

// poll 拉取一次持仓并刷新本地价格副本
func (w *Watcher) poll(ctx context.Context) error {
	var out activeTradesResponse
	resp, err := w.client.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/trades/active")
	if err != nil {
		return err
	}
	if resp.IsError() || !out.Success {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode(), out.Error)
	}

	for _, trade := range out.Trades {
		current, ok := w.prices.Get(trade.ID)
		if !ok {
			current = trade.CurrentPrice
		}
		next := w.walk.Next(current)
		w.prices.Set(trade.ID, next, 0)

		pnl, pct := UnrealizedPnL(trade.Side, trade.EntryPrice, next, trade.Amount)
		log.WithFields(logrus.Fields{
			"tradeId": trade.ID,
			"symbol":  trade.Symbol,
			"side":    trade.Side,
			"entry":   trade.EntryPrice,
			"price":   fmt.Sprintf("%.2f", next),
			"pnl":     fmt.Sprintf("%+.2f", pnl),
			"pnlPct":  fmt.Sprintf("%+.2f%%", pct),
		}).Info("持仓刷新")
	}

	log.Debugf("本轮刷新 %d 笔持仓", len(out.Trades))
	return nil
}
