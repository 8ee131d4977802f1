package protocolids

// ============================================================================
//                              Gossip 主题
// ============================================================================

// TopicPeers 身份公告主题
const TopicPeers = "didpeer.peers"

// ============================================================================
//                              直连协议
// ============================================================================

// Prefix 所有直连协议的前缀
const Prefix = "/didpeer/"

// DIDAuth DID 挑战应答协议（同时承载 /auth 与 /didping）
const DIDAuth = "/didpeer/didauth-vc-pss/1.0.0"

// LegacyPing 旧版本节点的往返探测协议
const LegacyPing = "/didpeer/ping/1.0.0"

// DIDAuth 协议内的请求路径
const (
	PathAuth    = "/auth"
	PathDIDPing = "/didping"
)

// All 返回全部直连协议 ID
func All() []string {
	return []string{DIDAuth, LegacyPing}
}
