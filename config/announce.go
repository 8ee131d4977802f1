package config

import (
	"errors"
	"time"
)

// AnnounceConfig 身份公告配置
type AnnounceConfig struct {
	// Enable 是否周期性公告本节点身份
	Enable bool `json:"enable"`

	// IdentEvery 公告周期，默认 60s
	IdentEvery Duration `json:"ident_every"`
}

// DefaultAnnounceConfig 返回默认公告配置
func DefaultAnnounceConfig() AnnounceConfig {
	return AnnounceConfig{
		Enable:     true,
		IdentEvery: Duration(60 * time.Second),
	}
}

// Validate 验证公告配置
func (c *AnnounceConfig) Validate() error {
	if c.IdentEvery <= 0 {
		return errors.New("announce: ident_every must be positive")
	}
	return nil
}
