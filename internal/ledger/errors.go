package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound 交易 ID 不存在
	ErrNotFound = errors.New("trade not found")
	// ErrAlreadyClosed 交易已平仓（幂等保护：二次平仓不会重复计入盈亏）
	ErrAlreadyClosed = errors.New("trade already closed")
)

// ValidationError 输入校验失败，在任何写入发生之前被拒绝
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation 判断是否校验错误
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreUnavailableError 底层存储超时或失败（有界重试耗尽后才会出现）
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// IsStoreUnavailable 判断是否存储不可用错误
func IsStoreUnavailable(err error) bool {
	var se *StoreUnavailableError
	return errors.As(err, &se)
}

// IndexInconsistencyError 对账扫描中发现索引与记录状态不一致
// 非致命：触发重建，不会向 executeTrade/closeTrade 的调用者透出
type IndexInconsistencyError struct {
	Index  string
	Detail string
}

func (e *IndexInconsistencyError) Error() string {
	return fmt.Sprintf("index %s inconsistent: %s", e.Index, e.Detail)
}

// wrapStoreErr 把非业务错误包装为 StoreUnavailableError
// 业务哨兵错误（NotFound / AlreadyClosed / Validation）原样透传
func wrapStoreErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyClosed) || IsValidation(err) {
		return err
	}
	return &StoreUnavailableError{Op: op, Err: err}
}
