package didauth

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameTooLarge 帧超过上限
	ErrFrameTooLarge = errors.New("didauth: frame too large")

	// ErrInvalidFrame 帧内容无法解析
	ErrInvalidFrame = errors.New("didauth: invalid frame")

	// ErrRejected 对端拒绝请求（非 200 状态）
	ErrRejected = errors.New("didauth: request rejected")

	// ErrInvalidProof 凭证或签名校验失败
	ErrInvalidProof = errors.New("didauth: invalid proof")

	// ErrNilPublicKey 缺少对端公钥
	ErrNilPublicKey = errors.New("didauth: nil public key")

	// ErrNilHost 未提供主机
	ErrNilHost = errors.New("didauth: nil host")
)

// StatusError 对端返回的非 200 响应
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("didauth: remote status %d", e.Status)
	}
	return fmt.Sprintf("didauth: remote status %d: %s", e.Status, e.Message)
}

// Unwrap 使 errors.Is(err, ErrRejected) 成立
func (e *StatusError) Unwrap() error {
	return ErrRejected
}

// IsUnauthorized 是否为 401 拒绝
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == StatusUnauthorized
}
