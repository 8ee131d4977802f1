// Package keybook 实现远端 RSA 公钥簿
//
// 公钥有两个来源：身份公告签名块中的公钥 CID，以及 DID 文档中的验证方法。
// 解析结果按 CID 和 DID 两个维度缓存在 LRU 中。
package keybook

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/ipfs/go-cid"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
)

var (
	// ErrNotFound 未找到公钥
	ErrNotFound = errors.New("keybook: key not found")

	// ErrKeyTooLarge 公钥数据超过上限
	ErrKeyTooLarge = errors.New("keybook: key blob too large")

	// ErrNoVerificationMethod DID 文档中没有可用的 RSA 公钥
	ErrNoVerificationMethod = errors.New("keybook: no usable verification method")
)

// maxKeyBlobSize 公钥 PEM 的大小上限
const maxKeyBlobSize = 16 * 1024

// KeyBook 公钥簿
type KeyBook struct {
	content interfaces.ContentStore
	byCID   *lru.Cache[string, *crypto.RSAPublicKey]
	byDID   *lru.Cache[string, *crypto.RSAPublicKey]
}

// New 创建公钥簿
func New(content interfaces.ContentStore, size int) (*KeyBook, error) {
	byCID, err := lru.New[string, *crypto.RSAPublicKey](size)
	if err != nil {
		return nil, err
	}
	byDID, err := lru.New[string, *crypto.RSAPublicKey](size)
	if err != nil {
		return nil, err
	}
	return &KeyBook{content: content, byCID: byCID, byDID: byDID}, nil
}

// cidKey 以 multihash 作为缓存键，CIDv0/v1 共享条目
func cidKey(c cid.Cid) string {
	return string(c.Hash())
}

// FetchByCID 获取 CID 指向的 PEM 公钥
func (kb *KeyBook) FetchByCID(ctx context.Context, c cid.Cid) (*crypto.RSAPublicKey, error) {
	if !c.Defined() {
		return nil, fmt.Errorf("%w: undefined cid", ErrNotFound)
	}
	if pub, ok := kb.byCID.Get(cidKey(c)); ok {
		return pub, nil
	}

	data, err := kb.content.FetchBlob(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("keybook: fetch %s: %w", c, err)
	}
	if len(data) > maxKeyBlobSize {
		return nil, ErrKeyTooLarge
	}

	pub, err := crypto.UnmarshalRSAPublicKeyPEM(data)
	if err != nil {
		return nil, err
	}
	kb.byCID.Add(cidKey(c), pub)
	return pub, nil
}

// FromDocument 从 DID 文档提取第一个可用的 RSA 公钥，并关联到该 DID
func (kb *KeyBook) FromDocument(doc *interfaces.DIDDocument) (*crypto.RSAPublicKey, error) {
	if doc == nil {
		return nil, ErrNoVerificationMethod
	}
	for _, vm := range doc.VerificationMethods {
		if vm.PublicKeyPem == "" {
			continue
		}
		pub, err := crypto.UnmarshalRSAPublicKeyPEM([]byte(vm.PublicKeyPem))
		if err != nil {
			continue
		}
		kb.byDID.Add(doc.ID, pub)
		return pub, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoVerificationMethod, doc.ID)
}

// Bind 将公钥关联到 DID
func (kb *KeyBook) Bind(did string, pub *crypto.RSAPublicKey) {
	kb.byDID.Add(did, pub)
}

// ForDID 返回已关联到 DID 的公钥
func (kb *KeyBook) ForDID(did string) (*crypto.RSAPublicKey, error) {
	pub, ok := kb.byDID.Get(did)
	if !ok {
		return nil, ErrNotFound
	}
	return pub, nil
}
