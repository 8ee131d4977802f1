package registry

import (
	"context"
	"errors"

	"github.com/dep2p/go-didpeer/internal/core/trustcache"
	"github.com/dep2p/go-didpeer/internal/protocol/didauth"
	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// authAttempt 一次异步认证所需的上下文
type authAttempt struct {
	ref    types.PeerRef
	token  string
	key    *crypto.RSAPublicKey
	docCID string
}

// authDue 记录未认证且已过失败退避窗口
func (r *Registry) authDue(ref types.PeerRef) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.byHandle[ref.Handle]
	if !ok || !rec.owns(ref) || !rec.validated || rec.authenticated {
		return false
	}
	if rec.authFailureCount == 0 {
		return true
	}
	return r.clock.Since(rec.authFailureLastAt) >= r.cfg.AuthBackoff.Duration()
}

// maybeAuthenticate 满足条件时在后台发起挑战应答
//
// 同一 DID 同时只有一次挑战在进行，调用立即返回。
func (r *Registry) maybeAuthenticate(a authAttempt) {
	if r.deps.Auth == nil || r.ctx.Err() != nil {
		return
	}
	if !r.authDue(a.ref) {
		return
	}
	if !r.authGuard.TryAcquire(a.ref.DID) {
		logger.Debug("认证已在进行", "did", a.ref.DID)
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.authGuard.Release(a.ref.DID)
		r.authenticate(a)
	}()
}

func (r *Registry) authenticate(a authAttempt) {
	err := r.deps.Auth.Authenticate(r.ctx, a.ref.PeerID, a.ref.DID, a.token, a.key)
	if err == nil {
		r.onAuthSuccess(a)
		return
	}
	if r.ctx.Err() != nil {
		// 关闭过程中被取消，不计入失败
		return
	}
	r.onAuthFailure(a.ref, err)
}

func (r *Registry) onAuthSuccess(a authAttempt) {
	r.mu.Lock()
	rec, ok := r.byHandle[a.ref.Handle]
	promoted := ok && rec.owns(a.ref) && rec.promote(false)
	if promoted {
		rec.lastAuthFailure = ""
		// 与 Forget 在同一把锁内，信任条目与认证状态一致
		if err := r.deps.Trust.Put(trustcache.Entry{
			DID:         a.ref.DID,
			PeerID:      a.ref.PeerID,
			Handle:      a.ref.Handle,
			DocumentCID: a.docCID,
		}); err != nil {
			logger.Warn("写入信任缓存失败", "did", a.ref.DID, "error", err)
		}
	}
	r.mu.Unlock()
	if !promoted {
		logger.Debug("认证完成但记录已变化", "handle", a.ref.Handle)
		return
	}

	r.deps.Keys.Bind(a.ref.DID, a.key)
	r.protect(a.ref.PeerID)

	logger.Info("节点认证成功", "handle", a.ref.Handle, "peer", a.ref.PeerID.ShortString())
	r.events.emitAuthenticated(a.ref, false, r.clock.Now())
	r.updateGauge()
}

func (r *Registry) onAuthFailure(ref types.PeerRef, cause error) {
	now := r.clock.Now()
	reason := failureReason(cause)

	r.mu.Lock()
	rec, ok := r.byHandle[ref.Handle]
	count := 0
	if ok && rec.owns(ref) {
		rec.authFailureCount++
		rec.authFailureLastAt = now
		rec.lastAuthFailure = reason
		count = rec.authFailureCount
	}
	r.mu.Unlock()
	if count == 0 {
		return
	}

	logger.Info("节点认证失败", "handle", ref.Handle, "count", count, "error", cause)
	r.events.emitAuthFailed(ref, reason, count, now)
}

// failureReason 将认证错误转为可读原因
func failureReason(err error) string {
	switch {
	case didauth.IsUnauthorized(err):
		return "unauthorized: stale session token or foreign did"
	case errors.Is(err, didauth.ErrInvalidProof):
		return "invalid proof: " + err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return err.Error()
	}
}
