package ledger

// 账本的键空间布局。信号等旁路数据必须使用其他前缀，
// 不得进入 trade:/index: 命名空间
const (
	tradeKeyPrefix = "trade:"
	activeIndexKey = "index:active"
	closedIndexKey = "index:closed"
)

func tradeKey(id string) string {
	return tradeKeyPrefix + id
}
