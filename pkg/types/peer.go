package types

import "time"

// PeerSnapshot 节点记录的只读快照
//
// 由注册表在读锁下复制生成，调用方可自由持有。
type PeerSnapshot struct {
	Handle string
	PeerID PeerID
	DID    string

	// Version 最近一次公告的消息版本
	Version int

	// IdentToken 最近一次公告携带的会话令牌（v3 为空）
	IdentToken string

	Validated     bool
	Authenticated bool

	// Local DID 属于本节点
	Local bool

	// IdentLast 最近一次接受公告的时间
	IdentLast time.Time

	// LastPingAt 最近一次发起探测的时间
	LastPingAt time.Time

	// Pings 探测历史，最新的在前
	Pings []PingSample

	AuthFailureCount  int
	AuthFailureLastAt time.Time

	// LastAuthFailure 最近一次认证失败原因（人类可读）
	LastAuthFailure string

	// UserStatus 对端最近报告的用户状态
	UserStatus string

	// AvatarRef 头像引用，未知时为占位符
	AvatarRef string
}

// PeerStatusReport DID ping 中对端报告的状态
type PeerStatusReport struct {
	UserStatus        string
	UserStatusMessage string
	Date              time.Time
}
