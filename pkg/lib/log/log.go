// Package log 提供 didpeer 统一日志接口
//
// 基于 Go 标准库 log/slog 封装，组件通过 Logger("组件名") 获取懒加载 logger，
// 每次输出时绑定当前的默认 handler，支持运行时切换输出目标和级别。
//
// 使用示例：
//
//	var logger = log.Logger("protocol/didauth")
//	logger.Info("挑战验证成功", "peer", log.TruncateID(peerID, 8))
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

// 日志级别常量（从 slog 导出，方便使用）
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// EnvLogLevel 日志级别环境变量，优先级高于配置文件
const EnvLogLevel = "DIDPEER_LOG_LEVEL"

// ============================================================================
//                              输出配置
// ============================================================================

// Options 日志输出配置
type Options struct {
	// Level 日志级别：debug/info/warn/error
	Level string

	// Format 输出格式：text 或 json
	Format string

	// File 日志文件路径，空表示输出到 stderr
	File string

	// MaxSizeMB 单个日志文件最大大小（MB），仅 File 非空时生效
	MaxSizeMB int

	// MaxBackups 保留的历史日志文件数
	MaxBackups int
}

var (
	setupMu sync.Mutex
	// closer 当前日志文件（用于切换输出时关闭旧文件）
	closer io.Closer
)

// Setup 按配置重建默认 logger
//
// 环境变量 DIDPEER_LOG_LEVEL 存在时覆盖 opts.Level。
func Setup(opts Options) {
	setupMu.Lock()
	defer setupMu.Unlock()

	level := ParseLevel(opts.Level)
	if env := os.Getenv(EnvLogLevel); env != "" {
		level = ParseLevel(env)
	}

	var w io.Writer = os.Stderr
	if closer != nil {
		_ = closer.Close()
		closer = nil
	}
	if opts.File != "" {
		lj := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
		}
		w = lj
		closer = lj
	}

	slog.SetDefault(newLogger(w, level, opts.Format))
}

// SetOutputWithLevel 同时设置日志输出目标和级别
//
// 常用于测试中将日志重定向到缓冲区。
func SetOutputWithLevel(w io.Writer, level slog.Level) {
	setupMu.Lock()
	defer setupMu.Unlock()
	slog.SetDefault(newLogger(w, level, "text"))
}

// newLogger 创建指定格式的 logger
func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// ParseLevel 解析日志级别字符串，无法识别时返回 Info
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ============================================================================
//                              LazyLogger
// ============================================================================

// LazyLogger 懒加载 logger
//
// 每次日志调用时都从 slog.Default() 获取最新的 handler。
type LazyLogger struct {
	component string
}

// Logger 返回带组件名的 LazyLogger
func Logger(component string) *LazyLogger {
	return &LazyLogger{component: component}
}

func (l *LazyLogger) base() *slog.Logger {
	return slog.Default().With("component", l.component)
}

// Debug 输出 Debug 级别日志
func (l *LazyLogger) Debug(msg string, args ...any) { l.base().Debug(msg, args...) }

// Info 输出 Info 级别日志
func (l *LazyLogger) Info(msg string, args ...any) { l.base().Info(msg, args...) }

// Warn 输出 Warn 级别日志
func (l *LazyLogger) Warn(msg string, args ...any) { l.base().Warn(msg, args...) }

// Error 输出 Error 级别日志
func (l *LazyLogger) Error(msg string, args ...any) { l.base().Error(msg, args...) }

// DebugContext 带 context 的 Debug 日志
func (l *LazyLogger) DebugContext(ctx context.Context, msg string, args ...any) {
	l.base().DebugContext(ctx, msg, args...)
}

// WarnContext 带 context 的 Warn 日志
func (l *LazyLogger) WarnContext(ctx context.Context, msg string, args ...any) {
	l.base().WarnContext(ctx, msg, args...)
}

// Security 输出安全相关事件（协议滥用、身份伪造等）
//
// 统一使用 Warn 级别并附加 event=security，便于日志检索。
func (l *LazyLogger) Security(msg string, args ...any) {
	l.base().With("event", "security").Warn(msg, args...)
}

// With 添加额外的属性
func (l *LazyLogger) With(args ...any) *slog.Logger {
	return l.base().With(args...)
}

// ============================================================================
//                              工具函数
// ============================================================================

// TruncateID 安全截取 ID 用于日志显示
//
// 用于避免在日志中直接使用 id[:8] 导致 slice bounds out of range。
func TruncateID(id string, maxLen int) string {
	if len(id) <= maxLen {
		return id
	}
	return id[:maxLen]
}

func init() {
	slog.SetDefault(newLogger(os.Stderr, slog.LevelInfo, "text"))
}
