package interfaces

import (
	"context"
	"time"

	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// IdentTokenSource 提供本节点当前公告会话令牌
type IdentTokenSource interface {
	IdentToken() string
}

// DIDAuthenticator 直连认证与探测客户端
type DIDAuthenticator interface {
	// Authenticate 向 peer 发起 DID 挑战，并用 pub 验证应答签名
	Authenticate(ctx context.Context, peer types.PeerID, did, identToken string, pub *crypto.RSAPublicKey) error

	// DIDPing 轻量探测，不涉及签名
	DIDPing(ctx context.Context, peer types.PeerID, did, identToken string) (*types.PeerStatusReport, time.Duration, error)

	// LegacyPing 旧版本节点的往返探测
	LegacyPing(ctx context.Context, peer types.PeerID) (time.Duration, error)
}

// PeerTable 存活检测所需的节点表视图
type PeerTable interface {
	// Peers 返回全部节点记录快照
	Peers() []types.PeerSnapshot

	// MarkPinged 记录对 handle 发起探测的时间
	MarkPinged(handle string, at time.Time)

	// RecordPing 记录一次成功探测，report 可为 nil（旧版探测）
	RecordPing(handle string, sample types.PingSample, report *types.PeerStatusReport)
}

// Registry 节点注册表
type Registry interface {
	PeerTable

	// RegisterFromIdent 处理一条已准入的身份公告
	//
	// 返回错误只说明本条公告被拒绝或中止，不影响服务。
	RegisterFromIdent(ctx context.Context, sender types.PeerID, msg *types.IdentityMessage) error

	// GetByHandle 按 handle 查找
	GetByHandle(handle string) (types.PeerSnapshot, bool)

	// GetByPeerID 查找节点当前使用的 handle 对应的记录
	GetByPeerID(peer types.PeerID) (types.PeerSnapshot, bool)
}
