package memnet

import (
	"context"
	"sync"
	"time"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// subscriptionBuffer 每个订阅的缓冲消息数，满时丢弃新消息
const subscriptionBuffer = 256

// topicHub 全网共享的主题
type topicHub struct {
	name string

	mu   sync.RWMutex
	subs map[*subscription]struct{}
}

func newTopicHub(name string) *topicHub {
	return &topicHub{name: name, subs: make(map[*subscription]struct{})}
}

func (t *topicHub) deliver(from types.PeerID, data []byte) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for s := range t.subs {
		if s.owner.offline() {
			continue
		}
		msg := &interfaces.Message{
			From:       from,
			Data:       append([]byte(nil), data...),
			Topic:      t.name,
			ReceivedAt: time.Now(),
		}
		select {
		case s.ch <- msg:
		default:
		}
	}
}

func (t *topicHub) remove(s *subscription) {
	t.mu.Lock()
	delete(t.subs, s)
	t.mu.Unlock()
}

// ============================================================================
//                              PubSub
// ============================================================================

// PubSub 单个节点的主题视图
//
// 发布的消息会投递给全部订阅者（包括发布者自己）。
type PubSub struct {
	net  *Network
	self types.PeerID
}

var _ interfaces.PubSub = (*PubSub)(nil)

// NewPubSub 返回节点 self 的主题视图
func NewPubSub(n *Network, self types.PeerID) *PubSub {
	return &PubSub{net: n, self: self}
}

// Network 返回所属网络
func (p *PubSub) Network() *Network {
	return p.net
}

func (p *PubSub) offline() bool {
	h, ok := p.net.host(p.self)
	return ok && h.offline.Load()
}

// Join 加入主题
func (p *PubSub) Join(topic string) (interfaces.Topic, error) {
	return &topicHandle{ps: p, hub: p.net.hub(topic)}, nil
}

type topicHandle struct {
	ps  *PubSub
	hub *topicHub

	mu     sync.Mutex
	closed bool
}

func (t *topicHandle) String() string { return t.hub.name }

func (t *topicHandle) Publish(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrTopicClosed
	}
	if t.ps.offline() {
		return ErrPeerUnreachable
	}
	t.hub.deliver(t.ps.self, data)
	return nil
}

func (t *topicHandle) Subscribe() (interfaces.TopicSubscription, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil, ErrTopicClosed
	}
	s := &subscription{
		hub:   t.hub,
		owner: t.ps,
		ch:    make(chan *interfaces.Message, subscriptionBuffer),
		done:  make(chan struct{}),
	}
	t.hub.mu.Lock()
	t.hub.subs[s] = struct{}{}
	t.hub.mu.Unlock()
	return s, nil
}

func (t *topicHandle) Close() error {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

// ============================================================================
//                              subscription
// ============================================================================

type subscription struct {
	hub   *topicHub
	owner *PubSub
	ch    chan *interfaces.Message

	once sync.Once
	done chan struct{}
}

func (s *subscription) Next(ctx context.Context) (*interfaces.Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrTopicClosed
	case msg := <-s.ch:
		return msg, nil
	}
}

func (s *subscription) Cancel() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.done)
	})
}
