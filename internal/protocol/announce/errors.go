package announce

import "errors"

var (
	// ErrNoLocalDID 本节点尚无 DID
	ErrNoLocalDID = errors.New("announce: no local did")

	// ErrDocumentNotFound 本地 DID 文档无法解析
	ErrDocumentNotFound = errors.New("announce: local did document not found")

	// ErrNoProfile 缺少身份资料
	ErrNoProfile = errors.New("announce: no profile")
)

// ErrPublishFailed 公告发布失败
var ErrPublishFailed = errors.New("announce: publish failed")
