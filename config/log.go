package config

import "fmt"

// LogConfig 日志配置
type LogConfig struct {
	// Level debug/info/warn/error
	Level string `json:"level"`

	// Format text/json
	Format string `json:"format"`

	// File 日志文件，空表示 stderr
	File string `json:"file,omitempty"`

	// MaxSizeMB 单个日志文件大小上限
	MaxSizeMB int `json:"max_size_mb"`

	// MaxBackups 保留的历史文件数
	MaxBackups int `json:"max_backups"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:      "info",
		Format:     "text",
		MaxSizeMB:  100,
		MaxBackups: 3,
	}
}

// Validate 验证日志配置
func (c *LogConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log: unknown level %q", c.Level)
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log: unknown format %q", c.Format)
	}
	if c.File != "" && c.MaxSizeMB <= 0 {
		return fmt.Errorf("log: max_size_mb must be positive when file is set")
	}
	return nil
}
