package didpeer

import "errors"

// 公共错误定义
var (
	// ErrNotStarted 节点未启动
	ErrNotStarted = errors.New("didpeer: node not started")

	// ErrAlreadyStarted 节点已启动
	ErrAlreadyStarted = errors.New("didpeer: node already started")

	// ErrNodeClosed 节点已关闭
	ErrNodeClosed = errors.New("didpeer: node closed")

	// ErrMissingCollaborator 缺少外部协作者
	ErrMissingCollaborator = errors.New("didpeer: missing collaborator")

	// ErrPeerNotFound 节点记录不存在
	ErrPeerNotFound = errors.New("didpeer: peer not found")
)
