package memnet

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// verificationMethodType 文档中 RSA 验证方法的类型名
const verificationMethodType = "RsaVerificationKey2018"

// DIDRegistry 全网共享的 DID 文档表
type DIDRegistry struct {
	mu   sync.RWMutex
	docs map[string]*interfaces.DIDDocument
}

// NewDIDRegistry 创建空注册表
func NewDIDRegistry() *DIDRegistry {
	return &DIDRegistry{docs: make(map[string]*interfaces.DIDDocument)}
}

// Register 写入（或轮换）DID 文档，文档 CID 由其内容计算
func (r *DIDRegistry) Register(did string, pub *crypto.RSAPublicKey) (*interfaces.DIDDocument, error) {
	if !types.IsValidDID(did) {
		return nil, types.ErrInvalidDID
	}
	pemBytes, err := pub.MarshalPEM()
	if err != nil {
		return nil, err
	}

	doc := &interfaces.DIDDocument{
		ID: did,
		VerificationMethods: []interfaces.VerificationMethod{{
			ID:           types.VerificationMethodID(did),
			Type:         verificationMethodType,
			Controller:   did,
			PublicKeyPem: string(pemBytes),
		}},
	}
	body, err := json.Marshal(struct {
		ID                  string                          `json:"id"`
		VerificationMethods []interfaces.VerificationMethod `json:"verificationMethod"`
	}{doc.ID, doc.VerificationMethods})
	if err != nil {
		return nil, err
	}
	if doc.ContentID, err = types.ContentID(body); err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.docs[did] = doc
	r.mu.Unlock()
	return cloneDocument(doc), nil
}

// Remove 删除文档
func (r *DIDRegistry) Remove(did string) {
	r.mu.Lock()
	delete(r.docs, did)
	r.mu.Unlock()
}

func (r *DIDRegistry) lookup(did string) *interfaces.DIDDocument {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[did]
	if !ok {
		return nil
	}
	return cloneDocument(doc)
}

func cloneDocument(doc *interfaces.DIDDocument) *interfaces.DIDDocument {
	out := *doc
	out.VerificationMethods = append([]interfaces.VerificationMethod(nil), doc.VerificationMethods...)
	return &out
}

// ============================================================================
//                              Resolver
// ============================================================================

// Resolver 单个节点的 DID 解析视图
type Resolver struct {
	reg *DIDRegistry

	mu    sync.RWMutex
	local string
}

var _ interfaces.DIDResolver = (*Resolver)(nil)

// NewResolver 创建解析器
func NewResolver(reg *DIDRegistry, localDID string) *Resolver {
	return &Resolver{reg: reg, local: localDID}
}

// Resolve 加载文档，不存在返回 (nil, nil)
func (r *Resolver) Resolve(ctx context.Context, did string) (*interfaces.DIDDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.reg.lookup(did), nil
}

// LocalDID 返回本节点 DID
func (r *Resolver) LocalDID(ctx context.Context) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.local, nil
}

// SetLocalDID 切换本节点 DID
func (r *Resolver) SetLocalDID(did string) {
	r.mu.Lock()
	r.local = did
	r.mu.Unlock()
}
