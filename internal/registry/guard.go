package registry

import "sync"

// Guard 按键的单飞标记
//
// 已被持有时 TryAcquire 直接失败，调用方丢弃本次操作而不是排队。
type Guard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewGuard 创建单飞标记集合
func NewGuard() *Guard {
	return &Guard{held: make(map[string]struct{})}
}

// TryAcquire 尝试持有 key
func (g *Guard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return false
	}
	g.held[key] = struct{}{}
	return true
}

// Release 释放 key
func (g *Guard) Release(key string) {
	g.mu.Lock()
	delete(g.held, key)
	g.mu.Unlock()
}

// Held 检查 key 是否被持有
func (g *Guard) Held(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.held[key]
	return ok
}

// Len 当前持有数
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}
