package types

import "time"

// ============================================================================
//                              注册表事件
// ============================================================================
//
// 事件通过事件总线按类型分发，订阅时传入类型指针：
//
//	sub, _ := bus.Subscribe(new(types.EvtPeerAuthenticated))

// PeerRef 事件中携带的节点引用
type PeerRef struct {
	Handle string
	PeerID PeerID
	DID    string
}

// EvtPeerAdded 新节点记录被创建
type EvtPeerAdded struct {
	PeerRef
	Validated bool
	Timestamp time.Time
}

// EvtPeerModified 已有节点记录被更新（重新公告、信任缓存刷新等）
type EvtPeerModified struct {
	PeerRef
	Timestamp time.Time
}

// EvtPeerAuthenticated 节点通过 DID 挑战应答认证
type EvtPeerAuthenticated struct {
	PeerRef
	// Local DID 属于本节点，未经挑战直接认证
	Local     bool
	Timestamp time.Time
}

// EvtPeerAuthFailed 节点认证失败
type EvtPeerAuthFailed struct {
	PeerRef
	Reason       string
	FailureCount int
	Timestamp    time.Time
}

// EvtPeerDIDChanged 节点记录关联的 DID 发生变化
type EvtPeerDIDChanged struct {
	PeerRef
	OldDID    string
	Timestamp time.Time
}

// EvtPeerStatusChanged 节点存活状态更新（一次探测完成）
type EvtPeerStatusChanged struct {
	PeerRef
	Sample PingSample
	// UserStatus 对端在 DID ping 中报告的用户状态，旧版探测为空
	UserStatus string
	Timestamp  time.Time
}

// EvtIdentityAnnounced 本节点完成一次身份公告
type EvtIdentityAnnounced struct {
	PeerID    PeerID
	Handle    string
	DID       string
	Timestamp time.Time
}
