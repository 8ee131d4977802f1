package registry

import "errors"

var (
	// ErrNilMessage 公告为空
	ErrNilMessage = errors.New("registry: nil identity message")

	// ErrSenderMismatch 传输层发送方与公告中的 peer_id 不一致
	ErrSenderMismatch = errors.New("registry: sender does not match payload peer id")

	// ErrHandleSuffixMismatch handle 的 peer 后缀不属于发送方
	ErrHandleSuffixMismatch = errors.New("registry: handle peer suffix does not match sender")

	// ErrInFlight 同一 DID 的注册正在进行
	ErrInFlight = errors.New("registry: registration already in flight")

	// ErrSignatureInvalid DID 签名校验失败
	ErrSignatureInvalid = errors.New("registry: did signature invalid")

	// ErrKeyMismatch 公告的公钥不在 DID 文档中
	ErrKeyMismatch = errors.New("registry: announced key not in did document")

	// ErrQRProofInvalid QR 证明匹配不足
	ErrQRProofInvalid = errors.New("registry: qr proof invalid")

	// ErrResolveExhausted DID 文档解析重试耗尽
	ErrResolveExhausted = errors.New("registry: did resolution exhausted")

	// ErrDocumentNotFound DID 文档不存在
	ErrDocumentNotFound = errors.New("registry: did document not found")

	// ErrPeerNotFound 记录不存在
	ErrPeerNotFound = errors.New("registry: peer not found")

	// ErrNoAvatar 节点未公告头像
	ErrNoAvatar = errors.New("registry: peer has no avatar")

	// ErrAvatarTooLarge 头像超过大小上限
	ErrAvatarTooLarge = errors.New("registry: avatar too large")

	// ErrMissingDependency 缺少必需的依赖
	ErrMissingDependency = errors.New("registry: missing dependency")
)
