package types

import "errors"

// ============================================================================
//                              错误定义
// ============================================================================

var (
	// ErrInvalidHandle handle 不符合 username[#n]@planet[@suffix] 语法
	ErrInvalidHandle = errors.New("types: invalid space handle")

	// ErrInvalidDID DID 语法无效
	ErrInvalidDID = errors.New("types: invalid DID")

	// ErrInvalidContentPath 不是有效的 /ipfs/<cid> 路径
	ErrInvalidContentPath = errors.New("types: invalid content path")

	// ErrMalformedIdentity 身份消息无法解析
	ErrMalformedIdentity = errors.New("types: malformed identity message")

	// ErrUnknownIdentityVariant 未知的身份消息类型或版本
	ErrUnknownIdentityVariant = errors.New("types: unknown identity message variant")

	// ErrIdentitySchema 身份消息未通过模式校验
	ErrIdentitySchema = errors.New("types: identity message schema violation")
)
