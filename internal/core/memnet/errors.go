package memnet

import "errors"

var (
	// ErrPeerUnreachable 目标节点不存在或离线
	ErrPeerUnreachable = errors.New("memnet: peer unreachable")

	// ErrProtocolNotSupported 目标节点未注册该协议
	ErrProtocolNotSupported = errors.New("memnet: protocol not supported")

	// ErrBlobNotFound 内容不存在
	ErrBlobNotFound = errors.New("memnet: blob not found")

	// ErrTopicClosed 主题已关闭
	ErrTopicClosed = errors.New("memnet: topic closed")

	// ErrNotSymbolSheet 不是可解码的符号图片
	ErrNotSymbolSheet = errors.New("memnet: not a symbol sheet")
)
