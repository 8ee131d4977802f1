package didauth

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
	"github.com/dep2p/go-didpeer/pkg/protocolids"
	"github.com/dep2p/go-didpeer/pkg/types"
)

var logger = log.Logger("protocol/didauth")

// Responder 应答方：为本节点 DID 签名挑战、回应探测
type Responder struct {
	cfg     config.DIDAuthConfig
	host    interfaces.Host
	keys    interfaces.Keystore
	dids    interfaces.DIDResolver
	tokens  interfaces.IdentTokenSource
	profile interfaces.ProfileSource
	clock   clock.Clock
	version string
}

// Register 在主机上注册协议处理器
func (r *Responder) Register() {
	r.host.SetStreamHandler(protocolids.DIDAuth, r.handleStream)
	r.host.SetStreamHandler(protocolids.LegacyPing, r.handleLegacyStream)
}

// Unregister 移除协议处理器
func (r *Responder) Unregister() {
	r.host.RemoveStreamHandler(protocolids.DIDAuth)
	r.host.RemoveStreamHandler(protocolids.LegacyPing)
}

func (r *Responder) handleStream(s interfaces.Stream) {
	defer s.Close()
	_ = s.SetDeadline(time.Now().Add(r.cfg.AuthTimeout.Duration()))

	var req Request
	var resp *Response
	if err := ReadFrame(s, &req, r.cfg.MaxFrameSize); err != nil {
		logger.Debug("读取请求失败", "peer", s.RemotePeer().ShortString(), "error", err)
		resp = errorResponse(StatusBadRequest, "malformed request")
	} else {
		resp = r.Handle(context.Background(), s.RemotePeer(), &req)
	}

	if err := WriteFrame(s, resp, r.cfg.MaxFrameSize); err != nil {
		logger.Debug("写入响应失败", "peer", s.RemotePeer().ShortString(), "error", err)
	}
}

// Handle 处理单个请求帧
func (r *Responder) Handle(ctx context.Context, from types.PeerID, req *Request) *Response {
	if req.Method != MethodPost {
		return errorResponse(StatusBadRequest, "unsupported method")
	}
	switch req.Path {
	case protocolids.PathAuth:
		return r.handleAuth(ctx, from, req.Body)
	case protocolids.PathDIDPing:
		return r.handlePing(ctx, from, req.Body)
	default:
		return errorResponse(StatusNotFound, "unknown path")
	}
}

func (r *Responder) handleAuth(ctx context.Context, from types.PeerID, body json.RawMessage) *Response {
	var ar AuthRequest
	if err := decodeStrict(body, &ar); err != nil {
		return errorResponse(StatusBadRequest, "invalid auth request")
	}
	if resp := r.checkSession(ctx, from, ar.DID, ar.IdentToken); resp != nil {
		return resp
	}

	key, err := r.keys.DefaultRSAKey(ctx)
	if err != nil {
		logger.Error("读取本地私钥失败", "error", err)
		return errorResponse(StatusServerError, "signing unavailable")
	}
	sig, err := key.Sign([]byte(ar.Challenge))
	if err != nil {
		logger.Error("挑战签名失败", "error", err)
		return errorResponse(StatusServerError, "signing failed")
	}

	now := r.clock.Now().UTC()
	cred := Credential{
		Context:           CredentialContext,
		Type:              []string{"VerifiableCredential", CredentialType},
		Issuer:            ar.DID,
		IssuanceDate:      now,
		CredentialSubject: CredentialSubject{ID: ar.DID},
		Proof: Proof{
			Type:               ProofType,
			Created:            now,
			ProofPurpose:       ProofPurpose,
			VerificationMethod: types.VerificationMethodID(ar.DID),
			Challenge:          ar.Challenge,
			Nonce:              ar.Nonce,
			ProofValue:         base64.StdEncoding.EncodeToString(sig),
		},
	}
	resp, err := okResponse(cred)
	if err != nil {
		return errorResponse(StatusServerError, "encode failed")
	}
	logger.Debug("已应答 DID 挑战", "peer", from.ShortString(), "did", ar.DID)
	return resp
}

func (r *Responder) handlePing(ctx context.Context, from types.PeerID, body json.RawMessage) *Response {
	var pr PingRequest
	if err := decodeStrict(body, &pr); err != nil {
		return errorResponse(StatusBadRequest, "invalid ping request")
	}
	if resp := r.checkSession(ctx, from, pr.DID, pr.IdentToken); resp != nil {
		return resp
	}

	pong := Pong{
		Version: r.version,
		DID:     pr.DID,
		Status:  DIDStatus{Date: r.clock.Now().UTC()},
	}
	if r.profile != nil {
		if p, err := r.profile.Profile(ctx); err == nil {
			pong.Status.UserStatus = p.UserStatus
			pong.Status.UserStatusMessage = p.UserStatusMessage
		}
	}
	resp, err := okResponse(pong)
	if err != nil {
		return errorResponse(StatusServerError, "encode failed")
	}
	return resp
}

// checkSession 校验会话令牌与 DID 归属，通过时返回 nil
func (r *Responder) checkSession(ctx context.Context, from types.PeerID, did, token string) *Response {
	current := r.tokens.IdentToken()
	if current == "" || subtle.ConstantTimeCompare([]byte(current), []byte(token)) != 1 {
		logger.Security("拒绝请求：会话令牌不匹配", "peer", from.ShortString(), "did", did)
		return errorResponse(StatusUnauthorized, "ident token mismatch")
	}

	local, err := r.dids.LocalDID(ctx)
	if err != nil {
		logger.Error("读取本地 DID 失败", "error", err)
		return errorResponse(StatusServerError, "local did unavailable")
	}
	if local == "" || local != did {
		logger.Security("拒绝请求：DID 不属于本节点", "peer", from.ShortString(), "did", did)
		return errorResponse(StatusUnauthorized, "did not controlled by responder")
	}
	return nil
}

func (r *Responder) handleLegacyStream(s interfaces.Stream) {
	defer s.Close()
	_ = s.SetDeadline(time.Now().Add(r.cfg.PingTimeout.Duration()))

	var ping LegacyPing
	if err := ReadFrame(s, &ping, r.cfg.MaxFrameSize); err != nil {
		logger.Debug("读取旧版探测失败", "peer", s.RemotePeer().ShortString(), "error", err)
		return
	}
	_ = WriteFrame(s, LegacyPong{ID: ping.ID, Date: r.clock.Now().UTC()}, r.cfg.MaxFrameSize)
}

// decodeStrict 拒绝未知字段并执行结构校验
func decodeStrict(body json.RawMessage, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	return types.ValidateStruct(v)
}
