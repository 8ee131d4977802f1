package pubsub

import "errors"

var (
	// ErrNilPubSub 未提供主题层
	ErrNilPubSub = errors.New("pubsub: nil pubsub")

	// ErrNilCodec 未提供编解码器
	ErrNilCodec = errors.New("pubsub: nil codec")

	// ErrNotStarted 服务未启动
	ErrNotStarted = errors.New("pubsub: service not started")

	// ErrStopped 服务已停止
	ErrStopped = errors.New("pubsub: service stopped")

	// errReceivePanic 接收循环中恢复的 panic
	errReceivePanic = errors.New("pubsub: receive loop panic")
)
