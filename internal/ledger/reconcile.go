package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/tradebot/goledger/internal/domain"
	"github.com/tradebot/goledger/internal/kvstore"
)

// ReconcileReport 对账扫描结果
type ReconcileReport struct {
	TradesScanned int           `json:"tradesScanned"`
	ActiveFixes   int           `json:"activeFixes"`
	ClosedFixes   int           `json:"closedFixes"`
	Consistent    bool          `json:"consistent"`
	Duration      time.Duration `json:"duration"`
}

// Reconcile 对账扫描：遍历全部交易记录，按记录状态重建两个索引
// 记录是权威数据；索引与记录分歧时以记录为准重写索引
// 幸存 ID 保持原有相对顺序，补回的 ID 按 ID 排序追加
// （ULID 按生成时间排序，因此仍然近似"最新的在末尾"）
func (s *Service) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	start := time.Now()

	wantActive := make(map[string]bool)
	wantClosed := make(map[string]bool)
	scanned := 0

	err := s.store.ScanPrefix(ctx, tradeKeyPrefix, func(key string, val []byte) error {
		var rec domain.TradeRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			// 损坏的记录无法归类，跳过并告警
			log.Errorf("对账: 记录 %s 无法解析: %v", key, err)
			return nil
		}
		scanned++
		tradeID := strings.TrimPrefix(key, tradeKeyPrefix)
		if rec.IsClosed() {
			wantClosed[tradeID] = true
		} else {
			wantActive[tradeID] = true
		}
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("reconcile scan", err)
	}

	report := &ReconcileReport{TradesScanned: scanned, Consistent: true}

	err = s.store.Update(ctx, func(txn *kvstore.Txn) error {
		activeFixes, err := rebuildIndexKey(txn, activeIndexKey, wantActive)
		if err != nil {
			return err
		}
		closedFixes, err := rebuildIndexKey(txn, closedIndexKey, wantClosed)
		if err != nil {
			return err
		}
		report.ActiveFixes = activeFixes
		report.ClosedFixes = closedFixes
		return nil
	})
	if err != nil {
		return nil, wrapStoreErr("reconcile rebuild", err)
	}

	if report.ActiveFixes > 0 {
		report.Consistent = false
		logInconsistency(&IndexInconsistencyError{Index: "active", Detail: "rebuilt from records"}, report.ActiveFixes)
	}
	if report.ClosedFixes > 0 {
		report.Consistent = false
		logInconsistency(&IndexInconsistencyError{Index: "closed", Detail: "rebuilt from records"}, report.ClosedFixes)
	}

	report.Duration = time.Since(start)
	return report, nil
}

// rebuildIndexKey 把一个索引键重建为恰好包含 want 集合的序列
// 返回修正（删除+补回）的条目数
func rebuildIndexKey(txn *kvstore.Txn, key string, want map[string]bool) (int, error) {
	stored, err := loadIDs(txn, key)
	if err != nil {
		return 0, err
	}

	fixes := 0
	seen := make(map[string]bool, len(stored))
	next := make([]string, 0, len(want))
	for _, tradeID := range stored {
		if !want[tradeID] || seen[tradeID] {
			fixes++ // 多余或重复的条目
			continue
		}
		seen[tradeID] = true
		next = append(next, tradeID)
	}

	var missing []string
	for tradeID := range want {
		if !seen[tradeID] {
			missing = append(missing, tradeID)
		}
	}
	sort.Strings(missing)
	next = append(next, missing...)
	fixes += len(missing)

	if fixes == 0 {
		return 0, nil
	}
	return fixes, txn.Set(key, next)
}

func logInconsistency(err *IndexInconsistencyError, fixes int) {
	log.Warnf("%v (%d 项修正)", err, fixes)
}
