package registry

import (
	"context"
	"fmt"
)

// Avatar 按需获取节点公告的头像
//
// 结果缓存在 LRU 中，获取成功后记录的头像引用从占位符变为头像 CID。
func (r *Registry) Avatar(ctx context.Context, handle string) ([]byte, error) {
	r.mu.RLock()
	rec, ok := r.byHandle[handle]
	if !ok {
		r.mu.RUnlock()
		return nil, ErrPeerNotFound
	}
	c := rec.avatarCID()
	r.mu.RUnlock()
	if !c.Defined() {
		return nil, ErrNoAvatar
	}

	key := c.KeyString()
	if data, ok := r.avatars.Get(key); ok {
		return data, nil
	}

	data, err := r.deps.Content.FetchBlob(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("registry: fetch avatar %s: %w", c, err)
	}
	if len(data) > r.cfg.MaxAvatarSize {
		return nil, ErrAvatarTooLarge
	}
	r.avatars.Add(key, data)

	r.mu.Lock()
	if rec, ok := r.byHandle[handle]; ok && rec.avatarCID().Equals(c) {
		rec.avatarRef = c.String()
	}
	r.mu.Unlock()
	return data, nil
}
