package config

import (
	"errors"
	"time"
)

// LivenessConfig 存活检测配置
type LivenessConfig struct {
	// Enable 是否启用周期探测
	Enable bool `json:"enable"`

	// Interval 扫描周期
	Interval Duration `json:"interval"`

	// PingInterval 同一节点两次探测的最小间隔
	PingInterval Duration `json:"ping_interval"`

	// Concurrency 单轮并发探测数
	Concurrency int `json:"concurrency"`
}

// DefaultLivenessConfig 返回默认存活检测配置
func DefaultLivenessConfig() LivenessConfig {
	return LivenessConfig{
		Enable:       true,
		Interval:     Duration(30 * time.Second),
		PingInterval: Duration(60 * time.Second),
		Concurrency:  4,
	}
}

// Validate 验证存活检测配置
func (c *LivenessConfig) Validate() error {
	if c.Interval <= 0 || c.PingInterval <= 0 {
		return errors.New("liveness: intervals must be positive")
	}
	if c.Concurrency < 1 {
		return errors.New("liveness: concurrency must be at least 1")
	}
	return nil
}
