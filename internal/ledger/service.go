package ledger

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradebot/goledger/internal/domain"
	"github.com/tradebot/goledger/internal/kvstore"
)

var log = logrus.WithField("component", "ledger")

// Service 账本服务：组合记录管理器与索引维护器，
// 对外提供开仓 / 平仓 / 查询，并独占两者的写入权
// 多个请求上下文并发访问，单笔交易粒度上保证事务性
type Service struct {
	store   *kvstore.Store
	records *Records
	index   *Index

	// reconcileCh 异步对账触发通道（容量 1，重复触发合并）
	reconcileCh chan struct{}
}

// NewService 创建账本服务（显式注入存储依赖，无全局单例）
func NewService(store *kvstore.Store) *Service {
	return &Service{
		store:       store,
		records:     NewRecords(store),
		index:       NewIndex(store),
		reconcileCh: make(chan struct{}, 1),
	}
}

// Records 返回只读用途的记录管理器
func (s *Service) Records() *Records {
	return s.records
}

// Index 返回只读用途的索引维护器
func (s *Service) Index() *Index {
	return s.index
}

// ExecuteTrade 执行交易意图：创建 open 记录，再把 ID 加入 active 索引
// 记录写入成功后索引更新失败时不让调用失败——记录是权威数据，
// 索引只是加速器，留给对账扫描兜底修复
func (s *Service) ExecuteTrade(ctx context.Context, intent domain.TradeIntent) (*domain.TradeRecord, error) {
	rec, err := s.records.Create(ctx, intent)
	if err != nil {
		return nil, err
	}

	if err := s.index.AddActive(ctx, rec.ID); err != nil {
		log.WithFields(logrus.Fields{
			"tradeId": rec.ID,
			"error":   err,
		}).Error("active 索引更新失败，等待对账修复")
		s.nudgeReconcile()
	}

	log.WithFields(logrus.Fields{
		"tradeId":  rec.ID,
		"symbol":   rec.Symbol,
		"side":     rec.Side,
		"amount":   rec.Amount,
		"price":    rec.EntryPrice,
		"strategy": rec.StrategyID,
	}).Info("开仓")
	return rec, nil
}

// CloseTrade 平仓：状态检查、盈亏写入、索引迁移在同一事务内完成
// 并发平仓同一笔交易时恰有一个成功，其余拿到 ErrAlreadyClosed
func (s *Service) CloseTrade(ctx context.Context, tradeID string, exitPrice float64) (*domain.TradeRecord, error) {
	if exitPrice <= 0 {
		return nil, &ValidationError{Field: "exitPrice", Reason: "must be positive"}
	}

	var out *domain.TradeRecord
	err := s.store.Update(ctx, func(txn *kvstore.Txn) error {
		rec, err := s.records.MarkClosed(txn, tradeID, exitPrice)
		if err != nil {
			return err
		}
		if err := s.index.PromoteToClosed(txn, tradeID); err != nil {
			return err
		}
		out = rec
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("close trade", err)
	}

	log.WithFields(logrus.Fields{
		"tradeId":   out.ID,
		"exitPrice": exitPrice,
		"pnl":       *out.PnL,
	}).Info("平仓")
	return out, nil
}

// GetTrade 按 ID 查询交易记录
func (s *Service) GetTrade(ctx context.Context, tradeID string) (*domain.TradeRecord, error) {
	return s.records.Get(ctx, tradeID)
}

// ListActiveTrades 解析 active 索引为记录列表
// 索引中查不到记录的 ID 静默跳过（索引/记录短暂分歧的防御策略），
// 同时触发一次对账，不让整个调用失败
func (s *Service) ListActiveTrades(ctx context.Context) ([]*domain.TradeRecord, error) {
	ids, err := s.index.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	trades := make([]*domain.TradeRecord, 0, len(ids))
	dangling := 0
	for _, tradeID := range ids {
		rec, err := s.records.Get(ctx, tradeID)
		if err != nil {
			if err == ErrNotFound {
				dangling++
				continue
			}
			return nil, err
		}
		if rec.IsClosed() {
			// 索引落后于记录状态，绝不把已平仓记录当作持仓返回
			dangling++
			continue
		}
		trades = append(trades, rec)
	}

	if dangling > 0 {
		log.Warnf("active 索引中有 %d 个失效 ID，触发对账", dangling)
		s.nudgeReconcile()
	}
	return trades, nil
}

// nudgeReconcile 请求一次后台对账，重复请求会被合并
func (s *Service) nudgeReconcile() {
	select {
	case s.reconcileCh <- struct{}{}:
	default:
	}
}

// StartReconciler 启动后台对账循环：固定间隔或被 nudge 时扫描重建索引
// ctx 取消后退出
func (s *Service) StartReconciler(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			case <-s.reconcileCh:
			}

			report, err := s.Reconcile(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Errorf("对账扫描失败: %v", err)
				continue
			}
			if !report.Consistent {
				log.WithFields(logrus.Fields{
					"scanned":     report.TradesScanned,
					"activeFixes": report.ActiveFixes,
					"closedFixes": report.ClosedFixes,
				}).Warn("索引不一致已重建")
			}
		}
	}()
}
