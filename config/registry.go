package config

import (
	"errors"
	"time"
)

// RegistryConfig 节点注册表配置
type RegistryConfig struct {
	// AuthBackoff 认证失败后重试前的等待窗口
	AuthBackoff Duration `json:"auth_backoff"`

	// ResolveAttempts DID 文档解析尝试次数
	ResolveAttempts int `json:"resolve_attempts"`

	// ResolveRetrySleep 解析失败后的等待时间
	ResolveRetrySleep Duration `json:"resolve_retry_sleep"`

	// KeyCacheSize 公钥缓存容量
	KeyCacheSize int `json:"key_cache_size"`

	// AvatarCacheSize 头像缓存容量
	AvatarCacheSize int `json:"avatar_cache_size"`

	// MaxAvatarSize 头像字节上限
	MaxAvatarSize int `json:"max_avatar_size"`

	// MaxQRImageSize QR 证明图片字节上限
	MaxQRImageSize int `json:"max_qr_image_size"`
}

// DefaultRegistryConfig 返回默认注册表配置
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		AuthBackoff:       Duration(10 * time.Second),
		ResolveAttempts:   3,
		ResolveRetrySleep: Duration(2 * time.Second),
		KeyCacheSize:      256,
		AvatarCacheSize:   128,
		MaxAvatarSize:     512 * 1024,
		MaxQRImageSize:    256 * 1024,
	}
}

// Validate 验证注册表配置
func (c *RegistryConfig) Validate() error {
	if c.AuthBackoff < 0 {
		return errors.New("registry: auth_backoff cannot be negative")
	}
	if c.ResolveAttempts < 1 {
		return errors.New("registry: resolve_attempts must be at least 1")
	}
	if c.ResolveRetrySleep < 0 {
		return errors.New("registry: resolve_retry_sleep cannot be negative")
	}
	if c.KeyCacheSize <= 0 || c.AvatarCacheSize <= 0 {
		return errors.New("registry: cache sizes must be positive")
	}
	if c.MaxAvatarSize <= 0 || c.MaxQRImageSize <= 0 {
		return errors.New("registry: size limits must be positive")
	}
	return nil
}
