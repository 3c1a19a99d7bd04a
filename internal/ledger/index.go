package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/tradebot/goledger/internal/kvstore"
)

// Index 索引维护器：维护 active / closed 两个有序 ID 序列
// 顺序只承诺"最新的在末尾"，正确性不依赖顺序
// 不变量：active 恰好是所有 open 记录的 ID 集合，closed 恰好是所有
// closed 记录的 ID 集合，二者互斥，并集等于全部已创建的 ID
type Index struct {
	store *kvstore.Store
}

// NewIndex 创建索引维护器
func NewIndex(store *kvstore.Store) *Index {
	return &Index{store: store}
}

// loadIDs 读取一个索引键，键不存在视为空序列
func loadIDs(txn *kvstore.Txn, key string) ([]string, error) {
	var ids []string
	if err := txn.Get(key, &ids); err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ids, nil
}

// AddActive 把 ID 追加到 active 序列末尾
// 整个读-改-写是一次原子事务，并发追加不会相互覆盖
// 必须在记录写入成功之后调用：先记录后索引，避免索引指向不存在的记录
func (ix *Index) AddActive(ctx context.Context, tradeID string) error {
	err := ix.store.Update(ctx, func(txn *kvstore.Txn) error {
		ids, err := loadIDs(txn, activeIndexKey)
		if err != nil {
			return err
		}
		for _, existing := range ids {
			if existing == tradeID {
				return nil // 已存在，保持幂等
			}
		}
		return txn.Set(activeIndexKey, append(ids, tradeID))
	})
	return wrapStoreErr("add active index", err)
}

// PromoteToClosed 在调用者的事务内，把 ID 从 active 移除并追加到 closed
// 两次索引写入属于同一事务，任何并发读者都看不到"半迁移"状态
func (ix *Index) PromoteToClosed(txn *kvstore.Txn, tradeID string) error {
	active, err := loadIDs(txn, activeIndexKey)
	if err != nil {
		return err
	}

	found := false
	next := active[:0]
	for _, existing := range active {
		if existing == tradeID {
			found = true
			continue
		}
		next = append(next, existing)
	}
	if !found {
		// 索引落后于记录：记录权威，继续迁移并交给对账扫描修正
		log.Warnf("promote: id %s missing from active index", tradeID)
	}
	if err := txn.Set(activeIndexKey, next); err != nil {
		return err
	}

	closed, err := loadIDs(txn, closedIndexKey)
	if err != nil {
		return err
	}
	for _, existing := range closed {
		if existing == tradeID {
			return nil // 已在 closed，保持幂等
		}
	}
	return txn.Set(closedIndexKey, append(closed, tradeID))
}

// ListActive 返回 active 序列
func (ix *Index) ListActive(ctx context.Context) ([]string, error) {
	return ix.list(ctx, activeIndexKey)
}

// ListClosed 返回 closed 序列
func (ix *Index) ListClosed(ctx context.Context) ([]string, error) {
	return ix.list(ctx, closedIndexKey)
}

func (ix *Index) list(ctx context.Context, key string) ([]string, error) {
	var ids []string
	err := ix.store.Get(ctx, key, &ids)
	if err != nil {
		if errors.Is(err, kvstore.ErrNotFound) {
			return nil, nil
		}
		return nil, wrapStoreErr(fmt.Sprintf("list %s", key), err)
	}
	return ids, nil
}
