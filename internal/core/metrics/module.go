package metrics

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-didpeer/config"
)

// Result 模块输出
type Result struct {
	fx.Out

	// Metrics 指标关闭时为 nil
	Metrics *Metrics

	// DropHook 事件总线丢弃回调
	DropHook func(string) `name:"eventbus_drop_hook"`
}

// Module 返回指标 Fx 模块
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(Provide),
	)
}

// Provide 按配置创建指标
func Provide(cfg *config.Config) Result {
	if !cfg.Metrics.Enable {
		return Result{DropHook: func(string) {}}
	}
	m := New(cfg.Metrics.Namespace)
	return Result{Metrics: m, DropHook: m.ObserveEventDropped}
}
