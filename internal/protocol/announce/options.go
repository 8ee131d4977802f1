package announce

import (
	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-didpeer/internal/core/metrics"
)

// Option 公告者选项
type Option func(*options)

type options struct {
	clock   clock.Clock
	metrics *metrics.Metrics
	version string
}

func defaultOptions() *options {
	return &options{clock: clock.New(), version: "unknown"}
}

// WithClock 使用指定时钟
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithMetrics 主题传输指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithSoftwareVersion 公告中的软件版本
func WithSoftwareVersion(v string) Option {
	return func(o *options) { o.version = v }
}
