package eventbus

import "sync"

// Subscription 事件订阅
type Subscription struct {
	bus       *Bus
	node      *node
	out       chan interface{}
	closeOnce sync.Once
}

// Out 返回事件通道
func (s *Subscription) Out() <-chan interface{} {
	return s.out
}

// Close 取消订阅
//
// 可重复调用。先从总线移除再关闭通道，之后不会再有发射写入。
func (s *Subscription) Close() error {
	s.closeOnce.Do(func() {
		s.bus.removeSub(s)
		close(s.out)
	})
	return nil
}
