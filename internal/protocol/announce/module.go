package announce

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/metrics"
	"github.com/dep2p/go-didpeer/internal/protocol/pubsub"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config  *config.Config
	Host    interfaces.Host
	PubSub  interfaces.PubSub
	Content interfaces.ContentStore
	DIDs    interfaces.DIDResolver
	Keys    interfaces.Keystore
	Profile interfaces.ProfileSource
	Session *Session
	Bus     interfaces.EventBus
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
	Version string           `name:"software_version" optional:"true"`

	// Handler 入站公告处理器（由注册表模块提供）
	Handler pubsub.Handler[*types.IdentityMessage] `name:"ident_handler" optional:"true"`
}

// SessionResult 会话令牌输出
type SessionResult struct {
	fx.Out

	Session *Session
	Tokens  interfaces.IdentTokenSource
}

// Module 返回身份公告 Fx 模块
//
// 会话令牌单独提供，挑战应答服务依赖它而不依赖公告者。
func Module() fx.Option {
	return fx.Module("announce",
		fx.Provide(ProvideSession, Provide),
		fx.Invoke(registerLifecycle),
	)
}

// ProvideSession 为本次运行生成会话令牌
func ProvideSession() (SessionResult, error) {
	s, err := NewSession(nil)
	if err != nil {
		return SessionResult{}, err
	}
	return SessionResult{Session: s, Tokens: s}, nil
}

// Provide 创建公告者
func Provide(p Params) (*Announcer, error) {
	opts := []Option{WithClock(p.Clock), WithMetrics(p.Metrics)}
	if p.Version != "" {
		opts = append(opts, WithSoftwareVersion(p.Version))
	}
	return New(p.Config, Deps{
		Self:    p.Host.ID(),
		PubSub:  p.PubSub,
		Content: p.Content,
		DIDs:    p.DIDs,
		Keys:    p.Keys,
		Profile: p.Profile,
		Session: p.Session,
		Bus:     p.Bus,
		Handler: p.Handler,
	}, opts...)
}

func registerLifecycle(lc fx.Lifecycle, a *Announcer) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return a.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return a.Stop(ctx)
		},
	})
}
