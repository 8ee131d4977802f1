// Package engine 定义存储引擎接口
package engine

// Engine 键值存储引擎
//
// 实现必须并发安全。
type Engine interface {
	// Get 读取键值，不存在返回 ErrNotFound
	Get(key []byte) ([]byte, error)

	// Put 写入键值
	Put(key, value []byte) error

	// Delete 删除键，不存在时不报错
	Delete(key []byte) error

	// Has 检查键是否存在
	Has(key []byte) (bool, error)

	// Scan 按前缀顺序遍历，fn 返回错误时终止并返回该错误
	//
	// 回调中的 key/value 仅在回调期间有效。
	Scan(prefix []byte, fn func(key, value []byte) error) error

	// Start 启动后台任务（GC 等）
	Start() error

	// Close 关闭引擎
	Close() error
}
