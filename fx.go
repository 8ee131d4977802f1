package didpeer

import (
	"github.com/benbjohnson/clock"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/debug/introspect"
	"github.com/dep2p/go-didpeer/internal/core/eventbus"
	"github.com/dep2p/go-didpeer/internal/core/keybook"
	"github.com/dep2p/go-didpeer/internal/core/metrics"
	"github.com/dep2p/go-didpeer/internal/core/storage"
	"github.com/dep2p/go-didpeer/internal/core/trustcache"
	"github.com/dep2p/go-didpeer/internal/protocol/announce"
	"github.com/dep2p/go-didpeer/internal/protocol/didauth"
	"github.com/dep2p/go-didpeer/internal/protocol/liveness"
	"github.com/dep2p/go-didpeer/internal/protocol/qrproof"
	"github.com/dep2p/go-didpeer/internal/registry"
	pkgif "github.com/dep2p/go-didpeer/pkg/interfaces"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 基础设施：metrics → eventbus → storage → trustcache / keybook
//  2. 校验：qrproof
//  3. 协议：announce（会话令牌）→ didauth → registry → liveness
//  4. 诊断：introspect
//
// 注册表向公告者提供入站处理器（ident_handler），
// 挑战应答服务只依赖会话令牌，因此不存在环。
func buildFxApp(cfg *config.Config, o *options, node *Node) *fx.App {
	modules := []fx.Option{
		// 配置与外部协作者
		fx.Supply(cfg),
		fx.Provide(func() clock.Clock { return o.clock }),
		fx.Supply(fx.Annotated{Name: "software_version", Target: o.version}),
		provideCollaborators(o.collab),

		// 基础设施
		metrics.Module(),
		eventbus.Module(),
		storage.Module(),
		trustcache.Module(),
		keybook.Module(),

		// 校验与协议
		qrproof.Module(),
		announce.Module(),
		didauth.Module(),
		registry.Module(),
		liveness.Module(),

		// 诊断（配置关闭时不监听）
		introspect.Module(),
	}

	// 用户扩展
	if len(o.userFxOptions) > 0 {
		modules = append(modules, o.userFxOptions...)
	}

	modules = append(modules,
		fx.Invoke(injectNodeComponents(node)),

		// 禁用 Fx 日志输出（避免干扰用户日志）
		fx.WithLogger(func() fxevent.Logger {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}),
		fx.NopLogger,
	)

	return fx.New(modules...)
}

// provideCollaborators 以接口类型提供外部协作者
func provideCollaborators(c Collaborators) fx.Option {
	return fx.Provide(
		func() pkgif.Host { return c.Host },
		func() pkgif.PubSub { return c.PubSub },
		func() pkgif.ContentStore { return c.Content },
		func() pkgif.DIDResolver { return c.DIDs },
		func() pkgif.QRDecoder { return c.QR },
		func() pkgif.Keystore { return c.Keys },
		func() pkgif.ProfileSource { return c.Profile },
	)
}

// nodeInjectParams Node 组件注入参数
type nodeInjectParams struct {
	fx.In

	Host      pkgif.Host
	Registry  *registry.Registry
	Announcer *announce.Announcer
	Auth      *didauth.Service
	Watcher   *liveness.Watcher
	Bus       pkgif.EventBus
	Trust     *trustcache.Cache

	// Metrics 指标关闭时为 nil
	Metrics *metrics.Metrics `optional:"true"`

	// Introspect 诊断服务关闭时为 nil
	Introspect *introspect.Server `optional:"true"`
}

// injectNodeComponents 创建 Node 组件注入函数
func injectNodeComponents(node *Node) interface{} {
	return func(p nodeInjectParams) {
		node.host = p.Host
		node.registry = p.Registry
		node.announcer = p.Announcer
		node.auth = p.Auth
		node.watcher = p.Watcher
		node.bus = p.Bus
		node.trust = p.Trust
		node.metrics = p.Metrics
		node.introspect = p.Introspect
	}
}
