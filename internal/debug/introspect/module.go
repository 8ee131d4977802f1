package introspect

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/metrics"
	"github.com/dep2p/go-didpeer/internal/registry"
	pkgif "github.com/dep2p/go-didpeer/pkg/interfaces"
)

// Module 返回诊断服务 Fx 模块
func Module() fx.Option {
	return fx.Module("introspect",
		fx.Provide(NewFromParams),
		fx.Invoke(registerLifecycle),
	)
}

// Params 诊断服务依赖
type Params struct {
	fx.In

	Config   *config.Config
	Host     pkgif.Host
	Registry *registry.Registry
	Metrics  *metrics.Metrics `optional:"true"`
}

// Output 诊断服务输出
type Output struct {
	fx.Out

	// Server 配置关闭时为 nil
	Server *Server
}

// NewFromParams 按配置创建诊断服务
func NewFromParams(p Params) Output {
	if !p.Config.Introspect.Enable {
		return Output{}
	}
	cfg := Config{
		Addr:  p.Config.Introspect.Addr,
		Self:  p.Host.ID(),
		Table: p.Registry,
		Trust: p.Registry,
	}
	if p.Metrics != nil {
		cfg.Metrics = p.Metrics.Handler()
	}
	return Output{Server: New(cfg)}
}

func registerLifecycle(lc fx.Lifecycle, server *Server) {
	if server == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return server.Start(ctx)
		},
		OnStop: func(_ context.Context) error {
			return server.Stop()
		},
	})
}
