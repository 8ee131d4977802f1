package didauth

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/metrics"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config  *config.Config
	Host    interfaces.Host
	Keys    interfaces.Keystore
	DIDs    interfaces.DIDResolver
	Tokens  interfaces.IdentTokenSource
	Profile interfaces.ProfileSource `optional:"true"`
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
	Version string           `name:"software_version" optional:"true"`
}

// Result 模块输出
type Result struct {
	fx.Out

	Service       *Service
	Authenticator interfaces.DIDAuthenticator
}

// Module 返回挑战应答 Fx 模块
func Module() fx.Option {
	return fx.Module("didauth",
		fx.Provide(Provide),
		fx.Invoke(registerLifecycle),
	)
}

// Provide 创建服务
func Provide(p Params) (Result, error) {
	opts := []Option{WithClock(p.Clock), WithMetrics(p.Metrics)}
	if p.Version != "" {
		opts = append(opts, WithSoftwareVersion(p.Version))
	}
	s, err := New(p.Config.DIDAuth, p.Host, p.Keys, p.DIDs, p.Tokens, p.Profile, opts...)
	if err != nil {
		return Result{}, err
	}
	return Result{Service: s, Authenticator: s}, nil
}

func registerLifecycle(lc fx.Lifecycle, s *Service) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
