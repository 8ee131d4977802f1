package types

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// 路径前缀
const (
	IPFSPathPrefix = "/ipfs/"
	IPNSPathPrefix = "/ipns/"
)

// ContentID 计算任意字节的内容标识（CIDv1/raw + sha2-256）
func ContentID(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// HandleContentID 计算 handle 的内容哈希
func HandleContentID(handle string) (cid.Cid, error) {
	return ContentID([]byte(handle))
}

// SameContent 比较两个 CID 是否指向同一内容
//
// 比较 multihash，CIDv0 与 CIDv1 写法视为相同。
func SameContent(a, b cid.Cid) bool {
	if !a.Defined() || !b.Defined() {
		return false
	}
	return bytes.Equal(a.Hash(), b.Hash())
}

// IPNSPath 返回节点的 IPNS 密钥路径
func IPNSPath(id PeerID) string {
	return IPNSPathPrefix + string(id)
}

// IPFSPath 返回内容的 IPFS 路径
func IPFSPath(c cid.Cid) string {
	return IPFSPathPrefix + c.String()
}

// ParseIPFSPath 解析 /ipfs/<cid>[/...] 并返回根 CID
func ParseIPFSPath(p string) (cid.Cid, error) {
	if !strings.HasPrefix(p, IPFSPathPrefix) {
		return cid.Undef, fmt.Errorf("%w: %q", ErrInvalidContentPath, p)
	}
	rest := strings.TrimPrefix(p, IPFSPathPrefix)
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	c, err := cid.Decode(rest)
	if err != nil {
		return cid.Undef, fmt.Errorf("%w: %v", ErrInvalidContentPath, err)
	}
	return c, nil
}

// CIDString 返回 CID 字符串，未定义时返回空串
func CIDString(c cid.Cid) string {
	if !c.Defined() {
		return ""
	}
	return c.String()
}

// ParseOptionalCID 解析可选 CID，空串返回 cid.Undef
func ParseOptionalCID(s string) (cid.Cid, error) {
	if s == "" {
		return cid.Undef, nil
	}
	return cid.Decode(s)
}
