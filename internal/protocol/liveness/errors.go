package liveness

import "errors"

var (
	// ErrNilPeerTable 未提供节点表
	ErrNilPeerTable = errors.New("liveness: peer table is nil")

	// ErrNilAuthenticator 未提供探测客户端
	ErrNilAuthenticator = errors.New("liveness: authenticator is nil")

	// ErrAlreadyStarted 服务已启动
	ErrAlreadyStarted = errors.New("liveness: already started")

	// ErrNotStarted 服务未启动
	ErrNotStarted = errors.New("liveness: not started")
)
