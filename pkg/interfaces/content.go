package interfaces

import (
	"context"

	"github.com/ipfs/go-cid"
)

// ContentStore 内容寻址存储
type ContentStore interface {
	// FetchBlob 按 CID 读取字节
	FetchBlob(ctx context.Context, c cid.Cid) ([]byte, error)

	// StoreBlob 存储字节并返回其 CID
	StoreBlob(ctx context.Context, data []byte) (cid.Cid, error)
}
