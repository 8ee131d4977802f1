package engine

import (
	"fmt"
	"os"
	"time"
)

// Config 引擎配置
type Config struct {
	// Path 数据库目录
	Path string

	// InMemory 内存模式，忽略 Path
	InMemory bool

	// SyncWrites 每次写入同步落盘
	SyncWrites bool

	// GCInterval value log GC 周期，0 表示不运行
	GCInterval time.Duration

	// GCDiscardRatio value log GC 丢弃比例
	GCDiscardRatio float64
}

// DefaultConfig 返回默认配置
func DefaultConfig(path string) *Config {
	return &Config{
		Path:           path,
		SyncWrites:     false,
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// InMemoryConfig 返回内存模式配置
func InMemoryConfig() *Config {
	return &Config{InMemory: true}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return fmt.Errorf("%w: path is required", ErrInvalidConfig)
	}
	if c.GCInterval > 0 && (c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1) {
		return fmt.Errorf("%w: gc discard ratio must be in (0,1)", ErrInvalidConfig)
	}
	return nil
}

// EnsureDir 确保数据目录存在
func (c *Config) EnsureDir() error {
	if c.InMemory {
		return nil
	}
	return os.MkdirAll(c.Path, 0o755)
}
