package types

import (
	"time"

	"github.com/ipfs/go-cid"
)

// 身份消息类型与版本
const (
	// IdentMessageType 身份广播消息类型标签
	IdentMessageType = "peer.ident"

	// IdentVersionLegacy 旧版本：无签名块、无会话令牌
	IdentVersionLegacy = 3

	// IdentVersionCurrent 当前版本：携带签名块和会话令牌
	IdentVersionCurrent = 4
)

// IdentityMessage 身份广播消息（内部强类型表示）
//
// 线上格式见 identity_wire.go，解码时先完成模式校验再转换为本结构。
type IdentityMessage struct {
	// Version 消息版本（3 或 4）
	Version int

	// PeerID 发送方自称的节点 ID
	PeerID PeerID

	// IdentToken 本次运行的公告会话令牌（v4）
	IdentToken string

	// SoftwareVersion 发送方软件版本
	SoftwareVersion string

	// Identity 身份声明块
	Identity IdentityClaim

	// Crypto 签名块（v4，v3 为 nil）
	Crypto *CryptoBlock

	// NetworkGraphRoot 发送方本地节点图的根 CID，可选
	NetworkGraphRoot cid.Cid

	// Date 消息生成时间
	Date time.Time
}

// IdentityClaim 身份声明
type IdentityClaim struct {
	VirtualPlanet string
	Handle        SpaceHandle

	// QRProof 包含 2-3 个独立证明的二维码图片 CID
	QRProof cid.Cid

	DID string

	// DocumentCID DID 文档的当前 CID，可选
	DocumentCID cid.Cid

	OrgDIDs []string

	// Avatar 头像 CID，可选
	Avatar cid.Cid
}

// CryptoBlock 所有权证明
type CryptoBlock struct {
	// DefaultRSAPubKey 默认 RSA 公钥（PEM）的 CID
	DefaultRSAPubKey cid.Cid

	// DIDSignature 对 DID 字符串的 PSS 签名的 CID
	DIDSignature cid.Cid
}

// HasProof 是否携带所有权证明签名
func (m *IdentityMessage) HasProof() bool {
	return m.Crypto != nil
}

// IsCurrent 是否为当前协议版本
func (m *IdentityMessage) IsCurrent() bool {
	return m.Version >= IdentVersionCurrent
}

// HandleString 返回 handle 字符串
func (m *IdentityMessage) HandleString() string {
	return m.Identity.Handle.String()
}
