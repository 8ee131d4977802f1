package registry

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/fx"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/keybook"
	"github.com/dep2p/go-didpeer/internal/core/metrics"
	"github.com/dep2p/go-didpeer/internal/core/trustcache"
	"github.com/dep2p/go-didpeer/internal/protocol/pubsub"
	"github.com/dep2p/go-didpeer/internal/protocol/qrproof"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// Params 模块依赖
type Params struct {
	fx.In

	Config  *config.Config
	Host    interfaces.Host
	Content interfaces.ContentStore
	DIDs    interfaces.DIDResolver
	QR      *qrproof.Validator
	Keys    *keybook.KeyBook
	Trust   *trustcache.Cache
	Auth    interfaces.DIDAuthenticator
	Bus     interfaces.EventBus
	Clock   clock.Clock
	Metrics *metrics.Metrics `optional:"true"`
}

// Result 模块输出
type Result struct {
	fx.Out

	Registry  *Registry
	Table     interfaces.Registry
	PeerTable interfaces.PeerTable
	Handler   pubsub.Handler[*types.IdentityMessage] `name:"ident_handler"`
}

// Module 返回注册表 Fx 模块
func Module() fx.Option {
	return fx.Module("registry",
		fx.Provide(Provide),
		fx.Invoke(registerLifecycle),
	)
}

// Provide 创建注册表并导出公告处理器
func Provide(p Params) (Result, error) {
	r, err := New(p.Config.Registry, Deps{
		Content: p.Content,
		DIDs:    p.DIDs,
		QR:      p.QR,
		Keys:    p.Keys,
		Trust:   p.Trust,
		Host:    p.Host,
		Auth:    p.Auth,
		Bus:     p.Bus,
	}, WithClock(p.Clock), WithMetrics(p.Metrics))
	if err != nil {
		return Result{}, err
	}
	return Result{Registry: r, Table: r, PeerTable: r, Handler: r.HandleIdent}, nil
}

func registerLifecycle(lc fx.Lifecycle, r *Registry) {
	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			return r.Close()
		},
	})
}
