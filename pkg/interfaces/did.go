package interfaces

import (
	"context"

	"github.com/ipfs/go-cid"
)

// DIDResolver DID 文档解析
type DIDResolver interface {
	// Resolve 加载 DID 文档
	//
	// 文档不存在时返回 (nil, nil)。
	Resolve(ctx context.Context, did string) (*DIDDocument, error)

	// LocalDID 返回本节点当前的 DID
	LocalDID(ctx context.Context) (string, error)
}

// DIDDocument DID 文档中本系统关心的部分
type DIDDocument struct {
	// ID 文档所描述的 DID
	ID string

	// ContentID 文档当前版本的 CID
	ContentID cid.Cid

	// VerificationMethods 验证方法列表
	VerificationMethods []VerificationMethod
}

// VerificationMethod DID 验证方法
type VerificationMethod struct {
	ID           string
	Type         string
	Controller   string
	PublicKeyPem string
}
