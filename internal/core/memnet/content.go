package memnet

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// ContentStore 内容寻址的内存块存储
//
// 以 multihash 为键，CIDv0/CIDv1 写法可互相取回。
type ContentStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

var _ interfaces.ContentStore = (*ContentStore)(nil)

// NewContentStore 创建空存储
func NewContentStore() *ContentStore {
	return &ContentStore{blobs: make(map[string][]byte)}
}

// FetchBlob 按 CID 读取
func (s *ContentStore) FetchBlob(ctx context.Context, c cid.Cid) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Defined() {
		return nil, ErrBlobNotFound
	}
	s.mu.RLock()
	data, ok := s.blobs[string(c.Hash())]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return append([]byte(nil), data...), nil
}

// StoreBlob 存储并返回 CIDv1/raw
func (s *ContentStore) StoreBlob(ctx context.Context, data []byte) (cid.Cid, error) {
	if err := ctx.Err(); err != nil {
		return cid.Undef, err
	}
	c, err := types.ContentID(data)
	if err != nil {
		return cid.Undef, err
	}
	s.mu.Lock()
	s.blobs[string(c.Hash())] = append([]byte(nil), data...)
	s.mu.Unlock()
	return c, nil
}

// Len 返回已存储块数
func (s *ContentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
