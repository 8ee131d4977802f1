package interfaces

import (
	"context"
	"io"
	"time"

	"github.com/dep2p/go-didpeer/pkg/types"
)

// Host 直连网络主机
//
// 只要求按节点 ID + 协议名拨号的能力，寻址、打洞、中继均由实现负责。
type Host interface {
	// ID 返回本节点 ID
	ID() types.PeerID

	// NewStream 创建到指定节点的新流
	NewStream(ctx context.Context, peer types.PeerID, protocolID string) (Stream, error)

	// SetStreamHandler 为指定协议设置入站流处理器
	SetStreamHandler(protocolID string, handler StreamHandler)

	// RemoveStreamHandler 移除指定协议的流处理器
	RemoveStreamHandler(protocolID string)

	// Protect 请求保持与该节点的连接（不被连接管理器裁剪）
	Protect(peer types.PeerID, tag string)

	// Unprotect 取消保护
	Unprotect(peer types.PeerID, tag string) bool
}

// StreamHandler 流处理函数
type StreamHandler func(Stream)

// Stream 双向流
type Stream interface {
	io.ReadWriteCloser

	// RemotePeer 返回对端节点 ID
	RemotePeer() types.PeerID

	// Protocol 返回流的协议 ID
	Protocol() string

	// SetDeadline 设置读写截止时间
	SetDeadline(t time.Time) error
}
