package eventbus

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	pkgif "github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
)

var logger = log.Logger("core/eventbus")

// defaultBuffer 默认订阅缓冲区大小
const defaultBuffer = 16

var (
	// ErrInvalidEventType 无效的事件类型
	ErrInvalidEventType = errors.New("eventbus: invalid event type")
	// ErrNonPointerType 订阅/发射器必须传入类型指针
	ErrNonPointerType = errors.New("eventbus: expected pointer to event type")
	// ErrEmitterClosed 发射器已关闭
	ErrEmitterClosed = errors.New("eventbus: emitter closed")
	// ErrTypeMismatch 发射的事件类型与发射器不一致
	ErrTypeMismatch = errors.New("eventbus: event type mismatch")
)

// Bus 事件总线
type Bus struct {
	mu    sync.Mutex
	nodes map[reflect.Type]*node

	// onDrop 事件被丢弃时的回调（用于指标）
	onDrop func(typ string)
}

var _ pkgif.EventBus = (*Bus)(nil)

// node 某一事件类型的订阅者集合
type node struct {
	mu        sync.Mutex
	typ       reflect.Type
	sinks     []*Subscription
	emitters  int
	keepLast  bool
	last      interface{}
	dropCount atomic.Int64
}

// Option 总线选项
type Option func(*Bus)

// WithDropHook 设置事件丢弃回调
func WithDropHook(fn func(eventType string)) Option {
	return func(b *Bus) {
		b.onDrop = fn
	}
}

// NewBus 创建事件总线
func NewBus(opts ...Option) *Bus {
	b := &Bus{nodes: make(map[reflect.Type]*node)}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// elemType 从类型指针得到事件类型
func elemType(eventType interface{}) (reflect.Type, error) {
	if eventType == nil {
		return nil, ErrInvalidEventType
	}
	typ := reflect.TypeOf(eventType)
	if typ.Kind() != reflect.Ptr {
		return nil, ErrNonPointerType
	}
	return typ.Elem(), nil
}

// Subscribe 订阅事件
func (b *Bus) Subscribe(eventType interface{}, opts ...pkgif.SubscriptionOpt) (pkgif.Subscription, error) {
	typ, err := elemType(eventType)
	if err != nil {
		return nil, err
	}

	settings := pkgif.SubscriptionSettings{Buffer: defaultBuffer}
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Buffer < 0 {
		settings.Buffer = 0
	}

	sub := &Subscription{
		bus: b,
		out: make(chan interface{}, settings.Buffer),
	}
	b.withNode(typ, func(n *node) {
		sub.node = n
		n.sinks = append(n.sinks, sub)
		if n.keepLast && n.last != nil {
			select {
			case sub.out <- n.last:
			default:
			}
		}
	})

	return sub, nil
}

// Emitter 获取发射器
func (b *Bus) Emitter(eventType interface{}, opts ...pkgif.EmitterOpt) (pkgif.Emitter, error) {
	typ, err := elemType(eventType)
	if err != nil {
		return nil, err
	}

	var settings pkgif.EmitterSettings
	for _, opt := range opts {
		opt(&settings)
	}

	e := &Emitter{bus: b}
	b.withNode(typ, func(n *node) {
		e.node = n
		n.emitters++
		if settings.Stateful {
			n.keepLast = true
		}
	})

	return e, nil
}

// withNode 获取或创建类型节点，并在节点锁内执行 fn
func (b *Bus) withNode(typ reflect.Type, fn func(*node)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n, ok := b.nodes[typ]
	if !ok {
		n = &node{typ: typ}
		b.nodes[typ] = n
	}
	n.mu.Lock()
	fn(n)
	n.mu.Unlock()
}

// release 节点没有订阅者和发射器时删除
func (b *Bus) release(n *node) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n.mu.Lock()
	idle := len(n.sinks) == 0 && n.emitters == 0 && !n.keepLast
	n.mu.Unlock()

	if idle && b.nodes[n.typ] == n {
		delete(b.nodes, n.typ)
	}
}

// removeSub 移除订阅
func (b *Bus) removeSub(sub *Subscription) {
	n := sub.node
	n.mu.Lock()
	for i, s := range n.sinks {
		if s == sub {
			n.sinks = append(n.sinks[:i], n.sinks[i+1:]...)
			break
		}
	}
	n.mu.Unlock()

	b.release(n)
}

// emit 投递事件到全部订阅者，不阻塞
func (n *node) emit(b *Bus, event interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.keepLast {
		n.last = event
	}

	for _, sub := range n.sinks {
		select {
		case sub.out <- event:
		default:
			dropped := n.dropCount.Add(1)
			if b.onDrop != nil {
				b.onDrop(n.typ.String())
			}
			// 每 100 次警告一次
			if dropped%100 == 1 {
				logger.Warn("慢消费者，事件被丢弃",
					"type", n.typ.String(),
					"dropped", dropped)
			}
		}
	}
}

// ============================================================================
//                              Emitter
// ============================================================================

// Emitter 事件发射器
type Emitter struct {
	bus       *Bus
	node      *node
	closed    atomic.Bool
	closeOnce sync.Once
}

// Emit 发射事件
func (e *Emitter) Emit(event interface{}) error {
	if e.closed.Load() {
		return ErrEmitterClosed
	}
	if t := reflect.TypeOf(event); t != e.node.typ {
		return fmt.Errorf("%w: got %v, want %v", ErrTypeMismatch, t, e.node.typ)
	}
	e.node.emit(e.bus, event)
	return nil
}

// Close 关闭发射器
func (e *Emitter) Close() error {
	e.closeOnce.Do(func() {
		e.closed.Store(true)
		e.node.mu.Lock()
		e.node.emitters--
		e.node.mu.Unlock()
		e.bus.release(e.node)
	})
	return nil
}
