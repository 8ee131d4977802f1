package config

import (
	"errors"
	"path/filepath"
)

// StorageConfig 存储配置
//
// 信任缓存等持久化数据统一存放在 BadgerDB 中，通过 key 前缀隔离。
//
//	${DataDir}/
//	└── didpeer.db/
type StorageConfig struct {
	// DataDir 数据目录
	DataDir string `json:"data_dir"`

	// InMemory 使用内存模式（测试、演示）
	InMemory bool `json:"in_memory"`
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		DataDir: "./data",
	}
}

// Validate 验证存储配置
func (c *StorageConfig) Validate() error {
	if !c.InMemory && c.DataDir == "" {
		return errors.New("storage: data_dir cannot be empty")
	}
	return nil
}

// DBPath 返回 BadgerDB 路径
func (c *StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "didpeer.db")
}
