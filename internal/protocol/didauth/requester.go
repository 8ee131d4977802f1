package didauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/metrics"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
	"github.com/dep2p/go-didpeer/pkg/protocolids"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// challengeSize 挑战随机字节数
const challengeSize = 32

// 探测类型（指标标签）
const (
	pingKindDID    = "didping"
	pingKindLegacy = "legacy"
)

// Requester 请求方：发起挑战并验证应答
type Requester struct {
	cfg     config.DIDAuthConfig
	host    interfaces.Host
	clock   clock.Clock
	metrics *metrics.Metrics
}

// Authenticate 向 peer 发起 DID 挑战，用 pub 验证签名
//
// 总耗时受 AuthTimeout 限制，超时或校验失败均返回错误。
func (q *Requester) Authenticate(ctx context.Context, peer types.PeerID, did, identToken string, pub *crypto.RSAPublicKey) error {
	if pub == nil {
		return ErrNilPublicKey
	}
	ctx, cancel := context.WithTimeout(ctx, q.cfg.AuthTimeout.Duration())
	defer cancel()

	challenge, err := newChallenge()
	if err != nil {
		return err
	}
	ar := AuthRequest{
		DID:        did,
		Nonce:      uuid.NewString(),
		Challenge:  challenge,
		IdentToken: identToken,
	}

	logger.Debug("发起 DID 挑战", "peer", peer.ShortString(), "did", did, "nonce", ar.Nonce)

	var cred Credential
	if err := q.post(ctx, peer, protocolids.PathAuth, ar, &cred); err != nil {
		q.observeAuth(err)
		return err
	}
	if err := verifyCredential(&cred, &ar, pub); err != nil {
		q.metrics.ObserveAuth(metrics.ResultInvalid)
		logger.Security("DID 挑战应答校验失败", "peer", peer.ShortString(), "did", did, "error", err)
		return err
	}

	q.metrics.ObserveAuth(metrics.ResultOK)
	return nil
}

// DIDPing 轻量探测，返回对端状态与往返时间
func (q *Requester) DIDPing(ctx context.Context, peer types.PeerID, did, identToken string) (*types.PeerStatusReport, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, q.cfg.PingTimeout.Duration())
	defer cancel()

	start := q.clock.Now()
	var pong Pong
	if err := q.post(ctx, peer, protocolids.PathDIDPing, PingRequest{DID: did, IdentToken: identToken}, &pong); err != nil {
		return nil, 0, err
	}
	rtt := q.clock.Since(start)

	if pong.DID != did {
		return nil, 0, fmt.Errorf("%w: pong for %q", ErrInvalidProof, pong.DID)
	}
	q.metrics.ObservePing(pingKindDID, rtt)
	return &types.PeerStatusReport{
		UserStatus:        pong.Status.UserStatus,
		UserStatusMessage: pong.Status.UserStatusMessage,
		Date:              pong.Status.Date,
	}, rtt, nil
}

// LegacyPing 旧版本节点的往返探测
func (q *Requester) LegacyPing(ctx context.Context, peer types.PeerID) (time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, q.cfg.PingTimeout.Duration())
	defer cancel()

	start := q.clock.Now()
	s, err := q.open(ctx, peer, protocolids.LegacyPing)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	ping := LegacyPing{ID: uuid.NewString()}
	if err := WriteFrame(s, ping, q.cfg.MaxFrameSize); err != nil {
		return 0, ctxErr(ctx, err)
	}
	var pong LegacyPong
	if err := ReadFrame(s, &pong, q.cfg.MaxFrameSize); err != nil {
		return 0, ctxErr(ctx, err)
	}
	if pong.ID != ping.ID {
		return 0, fmt.Errorf("%w: pong id mismatch", ErrInvalidFrame)
	}

	rtt := q.clock.Since(start)
	q.metrics.ObservePing(pingKindLegacy, rtt)
	return rtt, nil
}

// ============================================================================
//                              内部
// ============================================================================

// open 打开流，ctx 结束时关闭流以中断阻塞读写
func (q *Requester) open(ctx context.Context, peer types.PeerID, protocolID string) (interfaces.Stream, error) {
	s, err := q.host.NewStream(ctx, peer, protocolID)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", peer.ShortString(), err)
	}
	if dl, ok := ctx.Deadline(); ok {
		_ = s.SetDeadline(dl)
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	return &closingStream{Stream: s, stop: stop}, nil
}

// post 发送一次请求并把 200 响应体解码到 out
func (q *Requester) post(ctx context.Context, peer types.PeerID, path string, body, out interface{}) error {
	s, err := q.open(ctx, peer, protocolids.DIDAuth)
	if err != nil {
		return err
	}
	defer s.Close()

	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if err := WriteFrame(s, Request{Method: MethodPost, Path: path, Body: raw}, q.cfg.MaxFrameSize); err != nil {
		return ctxErr(ctx, err)
	}

	var resp Response
	if err := ReadFrame(s, &resp, q.cfg.MaxFrameSize); err != nil {
		return ctxErr(ctx, err)
	}
	if resp.Status != StatusOK {
		return &StatusError{Status: resp.Status, Message: resp.Error}
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}
	return nil
}

func (q *Requester) observeAuth(err error) {
	switch {
	case IsUnauthorized(err):
		q.metrics.ObserveAuth(metrics.ResultRejected)
	default:
		q.metrics.ObserveAuth(metrics.ResultFailed)
	}
}

// ctxErr 超时或取消导致的读写错误优先报告 ctx 错误
func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ctx.Err(), err)
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}
	return err
}

// verifyCredential 检查凭证字段与签名
func verifyCredential(cred *Credential, req *AuthRequest, pub *crypto.RSAPublicKey) error {
	switch {
	case cred.Issuer != req.DID:
		return fmt.Errorf("%w: issuer %q", ErrInvalidProof, cred.Issuer)
	case cred.CredentialSubject.ID != req.DID:
		return fmt.Errorf("%w: subject %q", ErrInvalidProof, cred.CredentialSubject.ID)
	case cred.Proof.Type != ProofType:
		return fmt.Errorf("%w: proof type %q", ErrInvalidProof, cred.Proof.Type)
	case cred.Proof.VerificationMethod != types.VerificationMethodID(req.DID):
		return fmt.Errorf("%w: verification method %q", ErrInvalidProof, cred.Proof.VerificationMethod)
	case cred.Proof.Challenge != req.Challenge || cred.Proof.Nonce != req.Nonce:
		return fmt.Errorf("%w: challenge or nonce mismatch", ErrInvalidProof)
	}

	sig, err := base64.StdEncoding.DecodeString(cred.Proof.ProofValue)
	if err != nil {
		return fmt.Errorf("%w: proof value: %v", ErrInvalidProof, err)
	}
	if !pub.Verify([]byte(req.Challenge), sig) {
		return fmt.Errorf("%w: signature mismatch", ErrInvalidProof)
	}
	return nil
}

func newChallenge() (string, error) {
	buf := make([]byte, challengeSize)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// closingStream 关闭时同时注销 ctx 回调
type closingStream struct {
	interfaces.Stream
	stop func() bool
}

func (c *closingStream) Close() error {
	c.stop()
	return c.Stream.Close()
}
