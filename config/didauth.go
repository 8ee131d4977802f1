package config

import (
	"errors"
	"time"
)

// DIDAuthConfig 直连挑战应答配置
type DIDAuthConfig struct {
	// AuthTimeout 单次认证的总超时
	AuthTimeout Duration `json:"auth_timeout"`

	// PingTimeout 单次探测超时
	PingTimeout Duration `json:"ping_timeout"`

	// MaxFrameSize 单帧字节上限
	MaxFrameSize int `json:"max_frame_size"`
}

// DefaultDIDAuthConfig 返回默认挑战应答配置
func DefaultDIDAuthConfig() DIDAuthConfig {
	return DIDAuthConfig{
		AuthTimeout:  Duration(40 * time.Second),
		PingTimeout:  Duration(10 * time.Second),
		MaxFrameSize: 64 * 1024,
	}
}

// Validate 验证挑战应答配置
func (c *DIDAuthConfig) Validate() error {
	if c.AuthTimeout <= 0 || c.PingTimeout <= 0 {
		return errors.New("didauth: timeouts must be positive")
	}
	if c.MaxFrameSize < 1024 {
		return errors.New("didauth: max_frame_size must be at least 1024")
	}
	return nil
}
