package announce

import (
	"context"
	"fmt"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/ipfs/go-cid"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/protocol/pubsub"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
	"github.com/dep2p/go-didpeer/pkg/types"
)

var logger = log.Logger("protocol/announce")

// IdentityCodec 身份公告的主题编解码器
var IdentityCodec = pubsub.Codec[*types.IdentityMessage]{
	Encode: types.EncodeIdentityMessage,
	Decode: types.DecodeIdentityMessage,
}

// Deps 公告者依赖的外部协作者
type Deps struct {
	Self    types.PeerID
	PubSub  interfaces.PubSub
	Content interfaces.ContentStore
	DIDs    interfaces.DIDResolver
	Keys    interfaces.Keystore
	Profile interfaces.ProfileSource
	Session *Session

	// Bus 可选，用于发出 EvtIdentityAnnounced
	Bus interfaces.EventBus

	// Handler 入站公告处理器，可选
	Handler pubsub.Handler[*types.IdentityMessage]
}

// Announcer 身份公告者
type Announcer struct {
	cfg     config.AnnounceConfig
	deps    Deps
	clock   clock.Clock
	version string

	channel *pubsub.Service[*types.IdentityMessage]
	emitter interfaces.Emitter

	// buildMu 串行化构建，同时保护下列缓存
	buildMu   sync.Mutex
	pubKey    *crypto.RSAPublicKey
	pubKeyCID cid.Cid
	sigDID    string
	sigCID    cid.Cid

	kick chan struct{}

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New 创建公告者及其主题传输服务
func New(cfg *config.Config, deps Deps, opts ...Option) (*Announcer, error) {
	if deps.Session == nil {
		return nil, fmt.Errorf("announce: nil session")
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	a := &Announcer{
		cfg:     cfg.Announce,
		deps:    deps,
		clock:   o.clock,
		version: o.version,
		kick:    make(chan struct{}, 1),
	}

	psOpts := []pubsub.Option{pubsub.WithClock(o.clock), pubsub.WithMetrics(o.metrics)}
	if cfg.Announce.Enable {
		psOpts = append(psOpts, pubsub.WithPeriodic(cfg.Announce.IdentEvery.Duration(), a.tick))
	}
	channel, err := pubsub.New(cfg.PubSub, deps.PubSub, deps.Self, IdentityCodec, deps.Handler, psOpts...)
	if err != nil {
		return nil, err
	}
	a.channel = channel

	if deps.Bus != nil {
		em, err := deps.Bus.Emitter(new(types.EvtIdentityAnnounced))
		if err != nil {
			return nil, err
		}
		a.emitter = em
	}
	return a, nil
}

// Channel 返回公告主题的传输服务
func (a *Announcer) Channel() *pubsub.Service[*types.IdentityMessage] {
	return a.channel
}

// IdentToken 返回会话令牌
func (a *Announcer) IdentToken() string {
	return a.deps.Session.IdentToken()
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 启动主题服务；启用公告时立即发布一次
func (a *Announcer) Start(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		return nil
	}
	if err := a.channel.Start(context.Background()); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.started = true

	a.wg.Add(1)
	go a.kickLoop(ctx)

	if a.cfg.Enable {
		a.ProfileChanged()
	}
	return nil
}

// Stop 停止公告
func (a *Announcer) Stop(_ context.Context) error {
	a.mu.Lock()
	if !a.started {
		a.mu.Unlock()
		return nil
	}
	a.started = false
	a.cancel()
	a.mu.Unlock()

	a.wg.Wait()
	err := a.channel.Stop()
	if a.emitter != nil {
		_ = a.emitter.Close()
	}
	return err
}

// ProfileChanged 本地资料变化后立即重新公告
//
// 非阻塞，多次调用合并为一次。
func (a *Announcer) ProfileChanged() {
	select {
	case a.kick <- struct{}{}:
	default:
	}
}

func (a *Announcer) kickLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-a.kick:
			_ = a.Announce(ctx)
		}
	}
}

func (a *Announcer) tick(ctx context.Context) {
	_ = a.Announce(ctx)
}

// ============================================================================
//                              公告
// ============================================================================

// Announce 构建并发布一次公告
func (a *Announcer) Announce(ctx context.Context) error {
	msg, err := a.Build(ctx)
	if err != nil {
		logger.Warn("构建身份公告失败，跳过本轮", "error", err)
		return err
	}
	if !a.channel.Send(ctx, msg) {
		return ErrPublishFailed
	}

	logger.Debug("已发布身份公告", "handle", msg.HandleString(), "did", msg.Identity.DID)
	if a.emitter != nil {
		_ = a.emitter.Emit(types.EvtIdentityAnnounced{
			PeerID:    msg.PeerID,
			Handle:    msg.HandleString(),
			DID:       msg.Identity.DID,
			Timestamp: msg.Date,
		})
	}
	return nil
}

// Build 构建当前的身份公告
func (a *Announcer) Build(ctx context.Context) (*types.IdentityMessage, error) {
	a.buildMu.Lock()
	defer a.buildMu.Unlock()

	did, err := a.deps.DIDs.LocalDID(ctx)
	if err != nil {
		return nil, fmt.Errorf("local did: %w", err)
	}
	if did == "" {
		return nil, ErrNoLocalDID
	}
	doc, err := a.deps.DIDs.Resolve(ctx, did)
	if err != nil {
		return nil, fmt.Errorf("resolve local did: %w", err)
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	key, err := a.deps.Keys.DefaultRSAKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("default key: %w", err)
	}
	pubCID, err := a.publicKeyCID(ctx, key.Public())
	if err != nil {
		return nil, err
	}
	sigCID, err := a.signatureCID(ctx, key, did)
	if err != nil {
		return nil, err
	}

	profile, err := a.deps.Profile.Profile(ctx)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	if profile == nil {
		return nil, ErrNoProfile
	}

	return &types.IdentityMessage{
		Version:         types.IdentVersionCurrent,
		PeerID:          a.deps.Self,
		IdentToken:      a.deps.Session.IdentToken(),
		SoftwareVersion: a.version,
		Identity: types.IdentityClaim{
			VirtualPlanet: profile.VirtualPlanet,
			Handle:        profile.Handle,
			QRProof:       profile.QRProof,
			DID:           did,
			DocumentCID:   doc.ContentID,
			OrgDIDs:       profile.OrgDIDs,
			Avatar:        profile.Avatar,
		},
		Crypto: &types.CryptoBlock{
			DefaultRSAPubKey: pubCID,
			DIDSignature:     sigCID,
		},
		NetworkGraphRoot: profile.NetworkGraphRoot,
		Date:             a.clock.Now().UTC(),
	}, nil
}

// publicKeyCID 存储公钥 PEM，密钥不变时复用
func (a *Announcer) publicKeyCID(ctx context.Context, pub *crypto.RSAPublicKey) (cid.Cid, error) {
	if a.pubKey != nil && a.pubKey.Equals(pub) {
		return a.pubKeyCID, nil
	}
	pemBytes, err := pub.MarshalPEM()
	if err != nil {
		return cid.Undef, err
	}
	c, err := a.deps.Content.StoreBlob(ctx, pemBytes)
	if err != nil {
		return cid.Undef, fmt.Errorf("store public key: %w", err)
	}
	a.pubKey, a.pubKeyCID = pub, c
	a.sigDID = ""
	return c, nil
}

// signatureCID 对 DID 签名并存储，DID 与密钥不变时复用
func (a *Announcer) signatureCID(ctx context.Context, key *crypto.RSAPrivateKey, did string) (cid.Cid, error) {
	if a.sigDID == did && a.sigCID.Defined() {
		return a.sigCID, nil
	}
	sig, err := key.Sign([]byte(did))
	if err != nil {
		return cid.Undef, fmt.Errorf("sign did: %w", err)
	}
	c, err := a.deps.Content.StoreBlob(ctx, sig)
	if err != nil {
		return cid.Undef, fmt.Errorf("store signature: %w", err)
	}
	a.sigDID, a.sigCID = did, c
	return c, nil
}
