package engine

import "errors"

var (
	// ErrNotFound 键不存在
	ErrNotFound = errors.New("storage: key not found")

	// ErrClosed 引擎已关闭
	ErrClosed = errors.New("storage: engine closed")

	// ErrEmptyKey 空键
	ErrEmptyKey = errors.New("storage: empty key")

	// ErrInvalidConfig 配置无效
	ErrInvalidConfig = errors.New("storage: invalid config")
)

// IsNotFound 是否为键不存在错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
