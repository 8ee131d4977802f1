package pubsub

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-didpeer/internal/core/metrics"
)

// Option 服务选项
type Option func(*options)

type options struct {
	clock    clock.Clock
	metrics  *metrics.Metrics
	filters  []namedFilter
	periodic func(ctx context.Context)
	every    time.Duration
}

// WithClock 使用指定时钟（测试中注入 mock）
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}

// WithMetrics 上报指标，m 为 nil 时不上报
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithFilter 追加自定义过滤器，位于内置过滤器之后
func WithFilter(name string, f Filter) Option {
	return func(o *options) {
		o.filters = append(o.filters, namedFilter{name: name, fn: f})
	}
}

// WithPeriodic 启动周期循环，每隔 every 调用一次 fn
func WithPeriodic(every time.Duration, fn func(ctx context.Context)) Option {
	return func(o *options) {
		o.every = every
		o.periodic = fn
	}
}
