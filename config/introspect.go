package config

import (
	"errors"
	"net"
)

// DefaultIntrospectAddr 默认诊断服务监听地址（仅本地）
const DefaultIntrospectAddr = "127.0.0.1:6060"

// IntrospectConfig 本地诊断 HTTP 服务配置
type IntrospectConfig struct {
	// Enable 是否启动诊断服务
	Enable bool `json:"enable"`

	// Addr 监听地址
	Addr string `json:"addr"`
}

// DefaultIntrospectConfig 返回默认诊断服务配置
func DefaultIntrospectConfig() IntrospectConfig {
	return IntrospectConfig{
		Addr: DefaultIntrospectAddr,
	}
}

// Validate 验证诊断服务配置
func (c *IntrospectConfig) Validate() error {
	if !c.Enable {
		return nil
	}
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return errors.New("introspect: addr must be host:port")
	}
	return nil
}
