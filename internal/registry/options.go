package registry

import (
	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-didpeer/internal/core/metrics"
)

// Option 注册表选项
type Option func(*options)

type options struct {
	clock   clock.Clock
	metrics *metrics.Metrics
}

func defaultOptions() *options {
	return &options{clock: clock.New()}
}

// WithClock 使用指定时钟（认证退避窗口、时间戳）
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMetrics 注册结果与节点数量指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}
