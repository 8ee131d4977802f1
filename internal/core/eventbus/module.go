package eventbus

import (
	"go.uber.org/fx"

	pkgif "github.com/dep2p/go-didpeer/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	// DropHook 可选的丢弃回调（由指标模块提供）
	DropHook func(string) `name:"eventbus_drop_hook" optional:"true"`
}

// Result 模块输出
type Result struct {
	fx.Out

	EventBus pkgif.EventBus
	Bus      *Bus
}

// Module 返回 Fx 模块
func Module() fx.Option {
	return fx.Module("eventbus",
		fx.Provide(ProvideEventBus),
	)
}

// ProvideEventBus 提供 EventBus
func ProvideEventBus(p Params) Result {
	var opts []Option
	if p.DropHook != nil {
		opts = append(opts, WithDropHook(p.DropHook))
	}
	b := NewBus(opts...)
	return Result{EventBus: b, Bus: b}
}
