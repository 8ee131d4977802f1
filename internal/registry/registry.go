package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/keybook"
	"github.com/dep2p/go-didpeer/internal/core/metrics"
	"github.com/dep2p/go-didpeer/internal/core/storage/engine"
	"github.com/dep2p/go-didpeer/internal/core/trustcache"
	"github.com/dep2p/go-didpeer/internal/protocol/qrproof"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
	"github.com/dep2p/go-didpeer/pkg/types"
)

var logger = log.Logger("registry")

// ProtectTag 已认证节点的连接保护标签
const ProtectTag = "didpeer"

// maxSignatureSize DID 签名块大小上限
const maxSignatureSize = 4 * 1024

// Deps 注册表依赖
type Deps struct {
	Content interfaces.ContentStore
	DIDs    interfaces.DIDResolver
	QR      *qrproof.Validator
	Keys    *keybook.KeyBook
	Trust   *trustcache.Cache

	// Host 可选，认证成功后请求保持连接
	Host interfaces.Host

	// Auth 可选，为 nil 时只验证不认证
	Auth interfaces.DIDAuthenticator

	// Bus 可选，记录变化通过事件总线广播
	Bus interfaces.EventBus

	// RegGuard/AuthGuard 节点级单飞标记，为 nil 时各自新建
	RegGuard  *Guard
	AuthGuard *Guard
}

// Registry 节点注册表
//
// 以 handle 为主键保存节点记录，peer ID 为二级索引。
// 记录只创建和更新，从不删除。
type Registry struct {
	cfg     config.RegistryConfig
	deps    Deps
	clock   clock.Clock
	metrics *metrics.Metrics

	regGuard  *Guard
	authGuard *Guard
	avatars   *lru.Cache[string, []byte]
	events    *emitters

	mu       sync.RWMutex
	byHandle map[string]*record
	byPeer   map[types.PeerID]string
	history  map[types.PeerID][]string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ interfaces.Registry = (*Registry)(nil)

// New 创建注册表
func New(cfg config.RegistryConfig, deps Deps, opts ...Option) (*Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Content == nil || deps.DIDs == nil || deps.QR == nil || deps.Keys == nil || deps.Trust == nil {
		return nil, ErrMissingDependency
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	avatars, err := lru.New[string, []byte](cfg.AvatarCacheSize)
	if err != nil {
		return nil, err
	}
	events, err := newEmitters(deps.Bus)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		cfg:       cfg,
		deps:      deps,
		clock:     o.clock,
		metrics:   o.metrics,
		regGuard:  deps.RegGuard,
		authGuard: deps.AuthGuard,
		avatars:   avatars,
		events:    events,
		byHandle:  make(map[string]*record),
		byPeer:    make(map[types.PeerID]string),
		history:   make(map[types.PeerID][]string),
	}
	if r.regGuard == nil {
		r.regGuard = NewGuard()
	}
	if r.authGuard == nil {
		r.authGuard = NewGuard()
	}
	r.ctx, r.cancel = context.WithCancel(context.Background())
	return r, nil
}

// Close 取消进行中的认证并等待其结束
func (r *Registry) Close() error {
	r.cancel()
	r.wg.Wait()
	return r.events.close()
}

// HandleIdent 主题处理器适配，错误只记录日志
func (r *Registry) HandleIdent(ctx context.Context, from types.PeerID, msg *types.IdentityMessage) {
	if err := r.RegisterFromIdent(ctx, from, msg); err != nil {
		logger.Debug("公告未被接受", "from", from.ShortString(), "error", err)
	}
}

// ============================================================================
//                              注册
// ============================================================================

// RegisterFromIdent 处理一条准入的身份公告
func (r *Registry) RegisterFromIdent(ctx context.Context, sender types.PeerID, msg *types.IdentityMessage) error {
	if msg == nil {
		return ErrNilMessage
	}

	// 1. 防伪：传输层发送方必须与自称一致
	if msg.PeerID != sender {
		logger.Security("拒绝公告：发送方与 peer_id 不一致",
			"sender", sender.ShortString(), "claimed", msg.PeerID.ShortString())
		r.metrics.ObserveRegistration(metrics.ResultRejected)
		return ErrSenderMismatch
	}
	if !msg.Identity.Handle.MatchesPeer(sender) {
		logger.Security("拒绝公告：handle 后缀不属于发送方",
			"sender", sender.ShortString(), "handle", msg.HandleString())
		r.metrics.ObserveRegistration(metrics.ResultRejected)
		return ErrHandleSuffixMismatch
	}
	did := msg.Identity.DID

	// 2. 信任缓存命中只刷新
	entry, ok, err := r.deps.Trust.Get(did)
	if err != nil {
		logger.Warn("读取信任缓存失败", "did", did, "error", err)
	}
	if ok && entry.PeerID == sender {
		if r.refresh(ctx, sender, msg, entry) {
			r.metrics.ObserveRegistration(metrics.ResultRefresh)
			return nil
		}
		logger.Debug("信任条目已移除，改走完整验证", "did", did)
	}

	// 3. 单飞
	if !r.regGuard.TryAcquire(did) {
		r.metrics.ObserveRegistration(metrics.ResultBusy)
		return ErrInFlight
	}
	// 9. 无论成败都释放
	defer r.regGuard.Release(did)

	err = r.register(ctx, sender, msg)
	switch {
	case err == nil:
		r.metrics.ObserveRegistration(metrics.ResultOK)
	case errors.Is(err, ErrSignatureInvalid), errors.Is(err, ErrKeyMismatch):
		r.metrics.ObserveRegistration(metrics.ResultRejected)
	case errors.Is(err, ErrQRProofInvalid):
		r.metrics.ObserveRegistration(metrics.ResultInvalid)
	default:
		r.metrics.ObserveRegistration(metrics.ResultFailed)
	}
	return err
}

// register 完整验证路径，调用方持有单飞标记
func (r *Registry) register(ctx context.Context, sender types.PeerID, msg *types.IdentityMessage) error {
	did := msg.Identity.DID
	handle := msg.HandleString()

	// 4. 所有权签名
	announcedKey, err := r.checkSignature(ctx, msg)
	if err != nil {
		return err
	}

	// 5. QR 证明
	qr := r.deps.QR.Validate(ctx, msg.Identity.QRProof, qrproof.Claim{
		PeerID: sender,
		Handle: handle,
		DID:    did,
	})
	if !qr.Valid {
		r.upsert(sender, msg, false)
		logger.Info("QR 证明不足，记录保持未验证",
			"handle", handle, "matches", qr.MatchCount, "symbols", qr.SymbolCount)
		return fmt.Errorf("%w: %d of %d symbols matched", ErrQRProofInvalid, qr.MatchCount, qr.SymbolCount)
	}

	// 6. 解析 DID 文档
	doc, err := r.resolve(ctx, did)
	if err != nil {
		logger.Info("DID 文档解析失败，放弃本次注册", "did", did, "error", err)
		return err
	}
	docKey, err := r.deps.Keys.FromDocument(doc)
	if err != nil {
		return err
	}
	if announcedKey != nil && !docKey.Equals(announcedKey) {
		logger.Security("拒绝公告：公钥不在 DID 文档中", "did", did, "sender", sender.ShortString())
		return ErrKeyMismatch
	}

	// 7. 创建或更新记录
	ref := r.upsert(sender, msg, true)

	if local, err := r.deps.DIDs.LocalDID(ctx); err == nil && local != "" && local == did {
		r.promoteLocal(ref)
		return nil
	}

	// 8. 异步认证，仅当前版本携带会话令牌
	if msg.IsCurrent() {
		r.maybeAuthenticate(authAttempt{
			ref:    ref,
			token:  msg.IdentToken,
			key:    docKey,
			docCID: doc.ContentID.String(),
		})
	}
	return nil
}

// checkSignature 校验公告中对 DID 的签名，返回公告的公钥；无签名块时返回 nil
func (r *Registry) checkSignature(ctx context.Context, msg *types.IdentityMessage) (*crypto.RSAPublicKey, error) {
	if !msg.HasProof() {
		return nil, nil
	}
	did := msg.Identity.DID

	pub, err := r.deps.Keys.FetchByCID(ctx, msg.Crypto.DefaultRSAPubKey)
	if err != nil {
		return nil, fmt.Errorf("registry: fetch announced key: %w", err)
	}
	sig, err := r.deps.Content.FetchBlob(ctx, msg.Crypto.DIDSignature)
	if err != nil {
		return nil, fmt.Errorf("registry: fetch did signature: %w", err)
	}
	if len(sig) > maxSignatureSize {
		return nil, fmt.Errorf("%w: signature blob too large", ErrSignatureInvalid)
	}
	if !pub.Verify([]byte(did), sig) {
		logger.Security("拒绝公告：DID 签名无效", "did", did, "sender", msg.PeerID.ShortString())
		return nil, ErrSignatureInvalid
	}
	return pub, nil
}

// resolve 有限次重试解析 DID 文档
func (r *Registry) resolve(ctx context.Context, did string) (*interfaces.DIDDocument, error) {
	op := func() (*interfaces.DIDDocument, error) {
		doc, err := r.deps.DIDs.Resolve(ctx, did)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			return nil, ErrDocumentNotFound
		}
		if doc.ID != did {
			return nil, backoff.Permanent(fmt.Errorf("registry: document id %q does not match %q", doc.ID, did))
		}
		return doc, nil
	}

	doc, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewConstantBackOff(r.cfg.ResolveRetrySleep.Duration())),
		backoff.WithMaxTries(uint(r.cfg.ResolveAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debug("DID 文档解析重试", "did", did, "error", err, "next", next)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrResolveExhausted, did, err)
	}
	return doc, nil
}

// refresh 信任缓存命中：更新公告，文档变化时重新解析
//
// 信任条目与记录在同一把锁内更新，与 Forget 串行。条目已被移除时返回 false，
// 调用方改走完整验证。
func (r *Registry) refresh(ctx context.Context, sender types.PeerID, msg *types.IdentityMessage, entry *trustcache.Entry) bool {
	did := msg.Identity.DID
	docCID := ""
	if c := msg.Identity.DocumentCID; c.Defined() && c.String() != entry.DocumentCID {
		doc, err := r.resolve(ctx, did)
		if err != nil {
			logger.Warn("刷新 DID 文档失败，沿用缓存", "did", did, "error", err)
		} else if _, err := r.deps.Keys.FromDocument(doc); err != nil {
			logger.Warn("刷新后的 DID 文档没有可用公钥", "did", did, "error", err)
		} else {
			docCID = doc.ContentID.String()
		}
	}

	now := r.clock.Now()
	r.mu.Lock()
	if err := r.deps.Trust.Touch(did, msg.HandleString(), docCID); err != nil {
		if engine.IsNotFound(err) {
			r.mu.Unlock()
			return false
		}
		logger.Warn("刷新信任缓存失败", "did", did, "error", err)
	}
	rec, existed := r.byHandle[msg.HandleString()]
	if !existed {
		rec = r.insertLocked(sender, msg)
	}
	ch := r.applyLocked(rec, sender, msg, now)
	rec.setValidated(true)
	promoted := !rec.authenticated
	rec.promote(false)
	ref := rec.ref()
	r.mu.Unlock()

	r.afterApply(ref, ch, now)
	if existed {
		r.events.emitModified(ref, now)
	} else {
		r.events.emitAdded(ref, true, now)
	}
	if promoted {
		r.events.emitAuthenticated(ref, false, now)
	}
	r.protect(sender)
	r.updateGauge()
	return true
}

// upsert 按 handle 创建或更新记录
func (r *Registry) upsert(sender types.PeerID, msg *types.IdentityMessage, validated bool) types.PeerRef {
	now := r.clock.Now()

	r.mu.Lock()
	rec, existed := r.byHandle[msg.HandleString()]
	if !existed {
		rec = r.insertLocked(sender, msg)
	}
	ch := r.applyLocked(rec, sender, msg, now)
	rec.setValidated(validated)
	ref := rec.ref()
	r.mu.Unlock()

	r.afterApply(ref, ch, now)
	if existed {
		r.events.emitModified(ref, now)
	} else {
		r.events.emitAdded(ref, validated, now)
	}
	r.updateGauge()
	return ref
}

// insertLocked 新建记录并建立索引，调用方持有写锁
func (r *Registry) insertLocked(sender types.PeerID, msg *types.IdentityMessage) *record {
	handle := msg.HandleString()
	rec := newRecord(handle, sender, msg.Identity.DID)
	r.byHandle[handle] = rec
	logger.Info("新节点记录", "handle", handle, "peer", sender.ShortString())
	return rec
}

// identityChange applyLocked 的结果
type identityChange struct {
	oldDID     string
	didChanged bool

	// unprotect 不再有已认证记录的旧节点，需要取消连接保护
	unprotect types.PeerID
}

// applyLocked 写入最新公告，调用方持有写锁
//
// DID 或发送方变化都视为身份变化：撤销认证并清空失败计数，新身份必须重新通过挑战。
func (r *Registry) applyLocked(rec *record, sender types.PeerID, msg *types.IdentityMessage, now time.Time) identityChange {
	var ch identityChange
	did := msg.Identity.DID
	oldPeer := rec.peerID
	peerChanged := oldPeer != sender
	wasAuthenticated := rec.authenticated

	rec.ident = msg
	rec.identLast = now

	if peerChanged {
		if r.byPeer[oldPeer] == rec.handle {
			delete(r.byPeer, oldPeer)
		}
		rec.peerID = sender
		logger.Security("handle 的发送方变化，需重新认证",
			"handle", rec.handle, "old", oldPeer.ShortString(), "new", sender.ShortString())
	}
	r.byPeer[sender] = rec.handle
	r.rememberHandleLocked(sender, rec.handle)

	if rec.did != did {
		ch.oldDID, ch.didChanged = rec.did, true
		rec.did = did
		logger.Info("节点 DID 变化", "handle", rec.handle, "old", ch.oldDID, "new", did)
	}
	if !peerChanged && !ch.didChanged {
		return ch
	}

	rec.resetAuth()
	if peerChanged && wasAuthenticated && !r.hasAuthenticatedLocked(oldPeer) {
		ch.unprotect = oldPeer
	}
	return ch
}

// afterApply 在释放锁后发出身份变化的副作用
func (r *Registry) afterApply(ref types.PeerRef, ch identityChange, now time.Time) {
	if ch.didChanged {
		r.events.emitDIDChanged(ref, ch.oldDID, now)
	}
	if ch.unprotect != "" && r.deps.Host != nil {
		r.deps.Host.Unprotect(ch.unprotect, ProtectTag)
	}
}

func (r *Registry) rememberHandleLocked(peer types.PeerID, handle string) {
	for _, h := range r.history[peer] {
		if h == handle {
			return
		}
	}
	r.history[peer] = append(r.history[peer], handle)
}

func (r *Registry) hasAuthenticatedLocked(peer types.PeerID) bool {
	for _, rec := range r.byHandle {
		if rec.peerID == peer && rec.authenticated {
			return true
		}
	}
	return false
}

// promoteLocal 本节点自己的 DID 无需挑战直接认证
func (r *Registry) promoteLocal(ref types.PeerRef) {
	r.mu.Lock()
	rec := r.byHandle[ref.Handle]
	ok := rec != nil && rec.owns(ref) && rec.promote(true)
	r.mu.Unlock()
	if ok {
		r.events.emitAuthenticated(ref, true, r.clock.Now())
		r.updateGauge()
	}
}

func (r *Registry) protect(peer types.PeerID) {
	if r.deps.Host != nil {
		r.deps.Host.Protect(peer, ProtectTag)
	}
}

// ============================================================================
//                              查询
// ============================================================================

// GetByHandle 按 handle 查找
func (r *Registry) GetByHandle(handle string) (types.PeerSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byHandle[handle]
	if !ok {
		return types.PeerSnapshot{}, false
	}
	return rec.snapshot(), true
}

// GetByPeerID 查找节点当前 handle 对应的记录
func (r *Registry) GetByPeerID(peer types.PeerID) (types.PeerSnapshot, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handle, ok := r.byPeer[peer]
	if !ok {
		return types.PeerSnapshot{}, false
	}
	return r.byHandle[handle].snapshot(), true
}

// HandlesForPeer 节点用过的全部 handle，按首次出现顺序
func (r *Registry) HandlesForPeer(peer types.PeerID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.history[peer]...)
}

// Peers 全部记录快照，按 handle 排序
func (r *Registry) Peers() []types.PeerSnapshot {
	r.mu.RLock()
	out := make([]types.PeerSnapshot, 0, len(r.byHandle))
	for _, rec := range r.byHandle {
		out = append(out, rec.snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Handle < out[j].Handle })
	return out
}

// Stale 超过 maxAge 未再公告的记录
func (r *Registry) Stale(maxAge time.Duration) []types.PeerSnapshot {
	cutoff := r.clock.Now().Add(-maxAge)
	var out []types.PeerSnapshot
	for _, s := range r.Peers() {
		if s.IdentLast.Before(cutoff) {
			out = append(out, s)
		}
	}
	return out
}

// ============================================================================
//                              存活
// ============================================================================

// MarkPinged 记录发起探测的时间
func (r *Registry) MarkPinged(handle string, at time.Time) {
	r.mu.Lock()
	if rec, ok := r.byHandle[handle]; ok {
		rec.lastPingAt = at
	}
	r.mu.Unlock()
}

// RecordPing 记录一次成功探测
func (r *Registry) RecordPing(handle string, sample types.PingSample, report *types.PeerStatusReport) {
	r.mu.Lock()
	rec, ok := r.byHandle[handle]
	if !ok {
		r.mu.Unlock()
		return
	}
	rec.pings.Push(sample)
	if report != nil {
		rec.userStatus = report.UserStatus
	}
	ref, status := rec.ref(), rec.userStatus
	r.mu.Unlock()

	r.events.emitStatus(ref, sample, status, r.clock.Now())
}

// ============================================================================
//                              信任管理
// ============================================================================

// TrustedEntries 列出信任缓存
func (r *Registry) TrustedEntries() ([]trustcache.Entry, error) {
	return r.deps.Trust.List()
}

// Forget 删除 DID 的信任条目并撤销相关记录的认证
//
// 记录本身保留，下一次公告将重新完整验证。
func (r *Registry) Forget(did string) error {
	var peers []types.PeerID
	r.mu.Lock()
	if err := r.deps.Trust.Forget(did); err != nil {
		r.mu.Unlock()
		return err
	}
	for _, rec := range r.byHandle {
		if rec.did == did && rec.authenticated {
			rec.authenticated = false
			rec.local = false
			peers = append(peers, rec.peerID)
		}
	}
	r.mu.Unlock()

	if r.deps.Host != nil {
		for _, p := range peers {
			r.deps.Host.Unprotect(p, ProtectTag)
		}
	}
	r.updateGauge()
	logger.Info("已移除信任", "did", did, "records", len(peers))
	return nil
}

func (r *Registry) updateGauge() {
	if r.metrics == nil {
		return
	}
	var validated, authenticated int
	r.mu.RLock()
	total := len(r.byHandle)
	for _, rec := range r.byHandle {
		if rec.validated {
			validated++
		}
		if rec.authenticated {
			authenticated++
		}
	}
	r.mu.RUnlock()
	r.metrics.SetPeers(total, validated, authenticated)
}
