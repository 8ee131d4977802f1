package liveness

import "github.com/benbjohnson/clock"

// Option 配置选项
type Option func(*options)

type options struct {
	clock clock.Clock
}

// WithClock 使用指定时钟（扫描周期、探测间隔判断）
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		o.clock = c
	}
}
