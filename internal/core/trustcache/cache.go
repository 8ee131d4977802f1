// Package trustcache 实现持久化的 DID 信任缓存
//
// DID 首次完整验证并认证通过后写入缓存，后续公告直接按缓存刷新，
// 不再重复 QR 证明、签名和挑战应答（首次使用即信任）。
package trustcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-didpeer/internal/core/storage/engine"
	"github.com/dep2p/go-didpeer/internal/core/storage/kv"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
	"github.com/dep2p/go-didpeer/pkg/types"
)

var logger = log.Logger("core/trustcache")

// keyPrefix 信任缓存的存储前缀
var keyPrefix = []byte("t/")

// ErrEmptyDID DID 为空
var ErrEmptyDID = errors.New("trustcache: empty did")

// Entry 信任缓存条目
type Entry struct {
	DID    string       `json:"did"`
	PeerID types.PeerID `json:"peer_id"`
	Handle string       `json:"handle"`

	// DocumentCID 认证时 DID 文档的 CID
	DocumentCID string `json:"document_cid,omitempty"`

	FirstAuthenticatedAt time.Time `json:"first_authenticated_at"`
	LastSeenAt           time.Time `json:"last_seen_at"`
}

// Cache 信任缓存
//
// 读写直接落在存储引擎上，本地读己之写一致。
type Cache struct {
	store *kv.Store
	clock clock.Clock

	// mu 串行化读-改-写
	mu sync.Mutex
}

// New 创建信任缓存
func New(eng engine.Engine, clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.New()
	}
	return &Cache{
		store: kv.New(eng, keyPrefix),
		clock: clk,
	}
}

// Get 查找 DID 的缓存条目
func (c *Cache) Get(did string) (*Entry, bool, error) {
	if did == "" {
		return nil, false, ErrEmptyDID
	}

	var e Entry
	if err := c.store.GetJSON([]byte(did), &e); err != nil {
		if engine.IsNotFound(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("trustcache: get %s: %w", did, err)
	}
	return &e, true, nil
}

// Put 写入认证通过的条目
//
// 已存在时保留首次认证时间。
func (c *Cache) Put(e Entry) error {
	if e.DID == "" {
		return ErrEmptyDID
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	e.LastSeenAt = now
	e.FirstAuthenticatedAt = now

	var prev Entry
	if err := c.store.GetJSON([]byte(e.DID), &prev); err == nil {
		e.FirstAuthenticatedAt = prev.FirstAuthenticatedAt
	} else if !engine.IsNotFound(err) {
		return fmt.Errorf("trustcache: read %s: %w", e.DID, err)
	}

	if err := c.store.PutJSON([]byte(e.DID), &e); err != nil {
		return fmt.Errorf("trustcache: write %s: %w", e.DID, err)
	}
	logger.Debug("写入信任缓存", "did", e.DID, "handle", e.Handle)
	return nil
}

// Touch 刷新最近可见时间，documentCID 非空时一并更新
func (c *Cache) Touch(did, handle, documentCID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var e Entry
	if err := c.store.GetJSON([]byte(did), &e); err != nil {
		return fmt.Errorf("trustcache: touch %s: %w", did, err)
	}
	e.LastSeenAt = c.clock.Now()
	if handle != "" {
		e.Handle = handle
	}
	if documentCID != "" {
		e.DocumentCID = documentCID
	}
	return c.store.PutJSON([]byte(did), &e)
}

// List 返回全部条目
func (c *Cache) List() ([]Entry, error) {
	var out []Entry
	err := c.store.ForEach(func(_, value []byte) error {
		var e Entry
		if err := json.Unmarshal(value, &e); err != nil {
			// 损坏的条目跳过，不影响其余条目
			logger.Warn("信任缓存条目损坏", "error", err)
			return nil
		}
		out = append(out, e)
		return nil
	})
	return out, err
}

// Forget 删除 DID 的条目，下次公告将重新完整验证
func (c *Cache) Forget(did string) error {
	if did == "" {
		return ErrEmptyDID
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Delete([]byte(did))
}
