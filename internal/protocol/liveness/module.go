package liveness

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config *config.Config
	Table  interfaces.PeerTable
	Auth   interfaces.DIDAuthenticator
	Clock  clock.Clock
}

// Module 返回存活检测 Fx 模块
//
// 配置关闭时不启动扫描循环，Watcher 仍可手动调用 Scan。
func Module() fx.Option {
	return fx.Module("liveness",
		fx.Provide(func(p Params) (*Watcher, error) {
			return New(p.Config.Liveness, p.Table, p.Auth, WithClock(p.Clock))
		}),
		fx.Invoke(registerLifecycle),
	)
}

func registerLifecycle(lc fx.Lifecycle, cfg *config.Config, w *Watcher) {
	if !cfg.Liveness.Enable {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return w.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return w.Stop(ctx)
		},
	})
}
