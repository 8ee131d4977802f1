package didpeer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-didpeer/internal/core/metrics"
	"github.com/dep2p/go-didpeer/internal/core/trustcache"
	"github.com/dep2p/go-didpeer/internal/debug/introspect"
	"github.com/dep2p/go-didpeer/internal/protocol/announce"
	"github.com/dep2p/go-didpeer/internal/protocol/didauth"
	"github.com/dep2p/go-didpeer/internal/protocol/liveness"
	"github.com/dep2p/go-didpeer/internal/registry"
	pkgif "github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
	"github.com/dep2p/go-didpeer/pkg/types"
)

var logger = log.Logger("didpeer")

const (
	// initializeTimeout 启动 Fx 应用的超时
	initializeTimeout = 30 * time.Second

	// stopTimeout 关闭 Fx 应用的超时
	stopTimeout = 15 * time.Second
)

// NodeState 节点状态
type NodeState int

const (
	// StateIdle 已创建，未启动
	StateIdle NodeState = iota
	// StateInitializing 正在启动
	StateInitializing
	// StateRunning 运行中
	StateRunning
	// StateStopping 正在关闭
	StateStopping
	// StateStopped 已关闭
	StateStopped
)

// String 返回状态名
func (s NodeState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("NodeState(%d)", int(s))
	}
}

// TrustEntry 信任缓存条目
type TrustEntry = trustcache.Entry

// Node 节点门面
//
// 组合身份公告、注册表、挑战应答与存活检测，对外暴露节点表查询和事件订阅。
type Node struct {
	app *fx.App

	mu      sync.Mutex
	state   NodeState
	started bool
	closed  bool

	host      pkgif.Host
	registry  *registry.Registry
	announcer *announce.Announcer
	auth      *didauth.Service
	watcher   *liveness.Watcher
	bus       pkgif.EventBus
	trust     *trustcache.Cache
	metrics   *metrics.Metrics

	introspect *introspect.Server
}

// New 创建节点（不启动）
//
// 必须通过 WithCollaborators 提供外部协作者。
func New(_ context.Context, opts ...Option) (*Node, error) {
	o := newOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}
	if err := o.collab.validate(); err != nil {
		return nil, err
	}

	cfg := o.finalConfig()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Setup(log.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})

	node := &Node{state: StateIdle}
	node.app = buildFxApp(cfg, o, node)
	if err := node.app.Err(); err != nil {
		return nil, fmt.Errorf("build fx app: %w", err)
	}
	return node, nil
}

// Start 启动全部组件
func (n *Node) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrNodeClosed
	}
	if n.started {
		return ErrAlreadyStarted
	}

	n.state = StateInitializing
	logger.Info("正在启动节点", "peer", log.TruncateID(string(n.host.ID()), 12))

	initCtx, cancel := context.WithTimeout(ctx, initializeTimeout)
	defer cancel()

	if err := n.app.Start(initCtx); err != nil {
		n.state = StateIdle
		logger.Error("节点启动失败", "error", err)
		return fmt.Errorf("initialize failed: %w", err)
	}

	n.started = true
	n.state = StateRunning
	logger.Info("节点已启动")
	return nil
}

// Close 停止全部组件并释放存储
//
// 重复调用返回 nil。
func (n *Node) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil
	}
	n.closed = true

	if !n.started {
		n.state = StateStopped
		return nil
	}

	n.state = StateStopping
	logger.Info("正在关闭节点")

	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	var errs error
	if err := n.app.Stop(ctx); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("stop fx app: %w", err))
	}
	n.started = false
	n.state = StateStopped

	if errs != nil {
		logger.Error("关闭节点出错", "error", errs)
		return errs
	}
	logger.Info("节点已关闭")
	return nil
}

// State 返回当前状态
func (n *Node) State() NodeState {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Node) running() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	switch {
	case n.closed:
		return ErrNodeClosed
	case !n.started:
		return ErrNotStarted
	}
	return nil
}

// ============================================================================
//                              身份
// ============================================================================

// ID 本节点 ID
func (n *Node) ID() types.PeerID {
	return n.host.ID()
}

// IdentToken 本次运行的会话令牌
func (n *Node) IdentToken() string {
	return n.announcer.IdentToken()
}

// Announce 立即发布一次身份公告
func (n *Node) Announce(ctx context.Context) error {
	if err := n.running(); err != nil {
		return err
	}
	return n.announcer.Announce(ctx)
}

// ProfileChanged 通知本地资料已变化，触发一次公告
func (n *Node) ProfileChanged() {
	n.announcer.ProfileChanged()
}

// ============================================================================
//                              节点表
// ============================================================================

// Peers 返回全部节点记录快照（按 handle 排序）
func (n *Node) Peers() []types.PeerSnapshot {
	return n.registry.Peers()
}

// AuthenticatedPeers 返回已认证的节点记录
func (n *Node) AuthenticatedPeers() []types.PeerSnapshot {
	all := n.registry.Peers()
	out := all[:0]
	for _, p := range all {
		if p.Authenticated {
			out = append(out, p)
		}
	}
	return out
}

// GetByHandle 按 handle 查询
func (n *Node) GetByHandle(handle string) (types.PeerSnapshot, bool) {
	return n.registry.GetByHandle(handle)
}

// GetByPeerID 按节点 ID 查询最近一次公告的记录
func (n *Node) GetByPeerID(peer types.PeerID) (types.PeerSnapshot, bool) {
	return n.registry.GetByPeerID(peer)
}

// HandlesForPeer 返回节点 ID 曾公告过的全部 handle
func (n *Node) HandlesForPeer(peer types.PeerID) []string {
	return n.registry.HandlesForPeer(peer)
}

// Stale 返回超过 maxAge 未收到公告的记录
func (n *Node) Stale(maxAge time.Duration) []types.PeerSnapshot {
	return n.registry.Stale(maxAge)
}

// Avatar 获取节点头像
func (n *Node) Avatar(ctx context.Context, handle string) ([]byte, error) {
	b, err := n.registry.Avatar(ctx, handle)
	if errors.Is(err, registry.ErrPeerNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPeerNotFound, handle)
	}
	return b, err
}

// ============================================================================
//                              信任缓存
// ============================================================================

// TrustedEntries 列出持久化的已认证 DID
func (n *Node) TrustedEntries() ([]TrustEntry, error) {
	return n.registry.TrustedEntries()
}

// Forget 撤销对 DID 的信任，下次公告时重新认证
func (n *Node) Forget(did string) error {
	return n.registry.Forget(did)
}

// ============================================================================
//                              存活检测与事件
// ============================================================================

// ScanLiveness 立即执行一轮存活探测，返回探测的节点数
func (n *Node) ScanLiveness(ctx context.Context) (int, error) {
	if err := n.running(); err != nil {
		return 0, err
	}
	return n.watcher.Scan(ctx), nil
}

// Subscribe 订阅节点事件
//
// eventType 为事件指针，例如 new(types.EvtPeerAuthenticated)。
func (n *Node) Subscribe(eventType interface{}, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	return n.bus.Subscribe(eventType, opts...)
}

// MetricsHandler 返回 Prometheus 指标处理器，指标关闭时返回 nil
func (n *Node) MetricsHandler() http.Handler {
	if n.metrics == nil {
		return nil
	}
	return n.metrics.Handler()
}

// IntrospectAddr 诊断服务实际监听地址，未启用时返回空
func (n *Node) IntrospectAddr() string {
	if n.introspect == nil {
		return ""
	}
	return n.introspect.Addr()
}
