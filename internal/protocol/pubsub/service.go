package pubsub

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/metrics"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
	"github.com/dep2p/go-didpeer/pkg/types"
)

var logger = log.Logger("protocol/pubsub")

// Handler 处理已解码的入站消息
type Handler[T any] func(ctx context.Context, from types.PeerID, msg T)

// Service 单主题传输服务
type Service[T any] struct {
	cfg     config.PubSubConfig
	ps      interfaces.PubSub
	self    types.PeerID
	codec   Codec[T]
	handler Handler[T]

	clock    clock.Clock
	metrics  *metrics.Metrics
	limiter  *rate.Limiter
	interval *intervalTracker
	inbound  chan *interfaces.Message

	periodic func(ctx context.Context)
	every    time.Duration

	filterMu sync.RWMutex
	filters  []namedFilter

	decodeErrors atomic.Uint64

	mu      sync.Mutex
	started bool
	stopped bool
	topic   interfaces.Topic
	extra   map[string]interfaces.Topic
	cancel  context.CancelFunc
	group   *errgroup.Group
}

// New 创建主题传输服务
//
// self 为本节点 ID，用于自身来源过滤；handler 可为 nil（仅发送）。
func New[T any](cfg config.PubSubConfig, ps interfaces.PubSub, self types.PeerID, codec Codec[T], handler Handler[T], opts ...Option) (*Service[T], error) {
	if ps == nil {
		return nil, ErrNilPubSub
	}
	if codec.Encode == nil || codec.Decode == nil {
		return nil, ErrNilCodec
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &options{clock: clock.New()}
	for _, opt := range opts {
		opt(o)
	}

	interval, err := newIntervalTracker(cfg.MaxTrackedSenders, cfg.IntervalWindow, cfg.MinInterval.Duration())
	if err != nil {
		return nil, err
	}

	every := cfg.RatePeriod.Duration() / time.Duration(cfg.RateCount)
	s := &Service[T]{
		cfg:      cfg,
		ps:       ps,
		self:     self,
		codec:    codec,
		handler:  handler,
		clock:    o.clock,
		metrics:  o.metrics,
		limiter:  rate.NewLimiter(rate.Every(every), cfg.RateCount),
		interval: interval,
		inbound:  make(chan *interfaces.Message, cfg.InboundQueueSize),
		periodic: o.periodic,
		every:    o.every,
		extra:    make(map[string]interfaces.Topic),
	}

	s.filters = []namedFilter{
		{name: FilterSize, fn: s.sizeFilter},
		{name: FilterSelf, fn: s.selfFilter},
		{name: FilterInterval, fn: s.intervalFilter},
	}
	s.filters = append(s.filters, o.filters...)
	return s, nil
}

// Topic 返回默认主题名称
func (s *Service[T]) Topic() string {
	return s.cfg.Topic
}

// AddFilter 追加过滤器，返回 true 表示丢弃
func (s *Service[T]) AddFilter(name string, f Filter) {
	s.filterMu.Lock()
	defer s.filterMu.Unlock()
	s.filters = append(s.filters, namedFilter{name: name, fn: f})
}

// DecodeErrors 返回累计解码失败次数
func (s *Service[T]) DecodeErrors() uint64 {
	return s.decodeErrors.Load()
}

// RecentArrivals 返回发送方最近的到达记录（最旧在前）
func (s *Service[T]) RecentArrivals(from types.PeerID) []Arrival {
	return s.interval.arrivals(from)
}

// ============================================================================
//                              生命周期
// ============================================================================

// Start 加入主题并启动接收、分发和周期循环
//
// 返回时订阅已建立，之后发布的消息不会丢失。重复调用为空操作，停止后返回 ErrStopped。
func (s *Service[T]) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if s.started {
		return nil
	}

	topic, err := s.ps.Join(s.cfg.Topic)
	if err != nil {
		return fmt.Errorf("join topic %s: %w", s.cfg.Topic, err)
	}
	sub, err := topic.Subscribe()
	if err != nil {
		_ = topic.Close()
		return fmt.Errorf("subscribe topic %s: %w", s.cfg.Topic, err)
	}
	s.topic = topic

	runCtx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = group

	group.Go(func() error { return s.receiveLoop(gctx, sub) })
	group.Go(func() error { return s.dispatchLoop(gctx) })
	if s.periodic != nil && s.every > 0 {
		group.Go(func() error { return s.periodicLoop(gctx) })
	}

	s.started = true
	logger.Debug("主题服务已启动", "topic", s.cfg.Topic)
	return nil
}

// Stop 停止全部循环并离开主题
func (s *Service[T]) Stop() error {
	s.mu.Lock()
	if !s.started || s.stopped {
		s.stopped = true
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	cancel, group, topic := s.cancel, s.group, s.topic
	extra := s.extra
	s.extra = map[string]interfaces.Topic{}
	s.mu.Unlock()

	cancel()
	err := group.Wait()
	_ = topic.Close()
	for _, t := range extra {
		_ = t.Close()
	}
	if err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// ============================================================================
//                              发送
// ============================================================================

// Send 编码并发布到默认主题
//
// 发布失败只记录日志，不重试。
func (s *Service[T]) Send(ctx context.Context, v T) bool {
	return s.SendTo(ctx, "", v)
}

// SendTo 编码并发布到指定主题，topic 为空表示默认主题
func (s *Service[T]) SendTo(ctx context.Context, topic string, v T) bool {
	t, err := s.publishTopic(topic)
	if err != nil {
		logger.Warn("获取发布主题失败", "topic", topic, "error", err)
		return false
	}

	data, err := s.codec.Encode(v)
	if err != nil {
		logger.Warn("消息编码失败", "topic", t.String(), "error", err)
		return false
	}
	if err := t.Publish(ctx, data); err != nil {
		logger.Warn("消息发布失败", "topic", t.String(), "error", err)
		return false
	}
	return true
}

func (s *Service[T]) publishTopic(name string) (interfaces.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}
	if !s.started {
		return nil, ErrNotStarted
	}
	if name == "" || name == s.cfg.Topic {
		return s.topic, nil
	}
	if t, ok := s.extra[name]; ok {
		return t, nil
	}
	t, err := s.ps.Join(name)
	if err != nil {
		return nil, err
	}
	s.extra[name] = t
	return t, nil
}

// ============================================================================
//                              接收
// ============================================================================

// receiveLoop 首次会话使用 Start 建立的订阅，之后每次重新订阅
func (s *Service[T]) receiveLoop(ctx context.Context, first interfaces.TopicSubscription) error {
	sub := first
	for {
		err := s.receive(ctx, sub)
		sub = nil
		if ctx.Err() != nil {
			return nil
		}
		logger.Warn("接收循环异常，稍后重新订阅",
			"topic", s.cfg.Topic,
			"delay", s.cfg.ResubscribeDelay.Duration(),
			"error", err)

		select {
		case <-ctx.Done():
			return nil
		case <-s.clock.After(s.cfg.ResubscribeDelay.Duration()):
		}
	}
}

// receive 单次订阅会话，sub 为 nil 时重新订阅；返回时订阅已取消
func (s *Service[T]) receive(ctx context.Context, sub interfaces.TopicSubscription) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errReceivePanic, r)
		}
	}()

	if sub == nil {
		if sub, err = s.topic.Subscribe(); err != nil {
			return err
		}
	}
	defer sub.Cancel()

	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return err
		}
		if !s.accept(msg) {
			continue
		}

		select {
		case s.inbound <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// accept 执行过滤链，接纳时更新发送方间隔窗口
func (s *Service[T]) accept(msg *interfaces.Message) bool {
	s.metrics.ObserveReceived(s.cfg.Topic)

	if name, drop := s.applyFilters(msg); drop {
		s.metrics.ObserveDropped(s.cfg.Topic, name)
		logger.Debug("消息被过滤", "filter", name, "from", msg.From.ShortString(), "size", len(msg.Data))
		return false
	}
	s.interval.admit(msg.From, s.clock.Now())
	s.metrics.ObserveAdmitted(s.cfg.Topic)
	return true
}

func (s *Service[T]) applyFilters(msg *interfaces.Message) (string, bool) {
	s.filterMu.RLock()
	defer s.filterMu.RUnlock()
	for _, f := range s.filters {
		if f.fn(msg) {
			return f.name, true
		}
	}
	return "", false
}

func (s *Service[T]) sizeFilter(msg *interfaces.Message) bool {
	return len(msg.Data) > s.cfg.MaxMessageSize
}

func (s *Service[T]) selfFilter(msg *interfaces.Message) bool {
	return msg.From == s.self
}

func (s *Service[T]) intervalFilter(msg *interfaces.Message) bool {
	return s.interval.observe(msg.From, s.clock.Now(), len(msg.Data))
}

// ============================================================================
//                              分发
// ============================================================================

func (s *Service[T]) dispatchLoop(ctx context.Context) error {
	for {
		var msg *interfaces.Message
		select {
		case <-ctx.Done():
			return nil
		case msg = <-s.inbound:
		}

		for !s.limiter.AllowN(s.clock.Now(), 1) {
			select {
			case <-ctx.Done():
				return nil
			case <-s.clock.After(s.cfg.RetryInterval.Duration()):
			}
		}

		s.dispatch(ctx, msg)
	}
}

func (s *Service[T]) dispatch(ctx context.Context, msg *interfaces.Message) {
	v, err := s.codec.Decode(msg.Data)
	if err != nil {
		s.decodeErrors.Add(1)
		s.metrics.ObserveDecodeError(s.cfg.Topic)
		logger.Debug("消息解码失败", "from", msg.From.ShortString(), "error", err)
		return
	}
	if s.handler == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("消息处理器 panic", "from", msg.From.ShortString(), "panic", r)
		}
	}()
	s.handler(ctx, msg.From, v)
}

// ============================================================================
//                              周期循环
// ============================================================================

func (s *Service[T]) periodicLoop(ctx context.Context) error {
	ticker := s.clock.Ticker(s.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.periodic(ctx)
		}
	}
}
