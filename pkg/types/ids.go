package types

// PeerID 传输层节点标识
//
// 对本包而言是不透明字符串，由网络层分配。
type PeerID string

// String 返回字符串形式
func (id PeerID) String() string {
	return string(id)
}

// ShortString 返回用于日志显示的短 ID
func (id PeerID) ShortString() string {
	if len(id) <= 8 {
		return string(id)
	}
	return string(id[:8])
}

// IsEmpty 是否为空
func (id PeerID) IsEmpty() bool {
	return id == ""
}
