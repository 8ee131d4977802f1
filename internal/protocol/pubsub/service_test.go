package pubsub

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/memnet"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/types"
)

type note struct {
	N int `json:"n"`
}

type received struct {
	from types.PeerID
	msg  note
}

func testConfig() config.PubSubConfig {
	cfg := config.DefaultPubSubConfig()
	cfg.Topic = "test.topic"
	return cfg
}

func newPair(t *testing.T, cfg config.PubSubConfig, opts ...Option) (*Service[note], *Service[note], chan received) {
	t.Helper()
	n := memnet.NewNetwork()
	a := n.AddHost("QmA")
	b := n.AddHost("QmB")

	out := make(chan received, 16)
	recv := func(_ context.Context, from types.PeerID, msg note) {
		out <- received{from: from, msg: msg}
	}

	sa, err := New[note](cfg, memnet.NewPubSub(n, a.ID()), a.ID(), JSONCodec[note](), nil)
	require.NoError(t, err)
	sb, err := New[note](cfg, memnet.NewPubSub(n, b.ID()), b.ID(), JSONCodec[note](), recv, opts...)
	require.NoError(t, err)

	require.NoError(t, sa.Start(context.Background()))
	require.NoError(t, sb.Start(context.Background()))
	t.Cleanup(func() {
		_ = sa.Stop()
		_ = sb.Stop()
	})
	return sa, sb, out
}

func expect(t *testing.T, out chan received) received {
	t.Helper()
	select {
	case r := <-out:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("未收到消息")
		return received{}
	}
}

func TestNew_Errors(t *testing.T) {
	_, err := New[note](testConfig(), nil, "QmA", JSONCodec[note](), nil)
	assert.ErrorIs(t, err, ErrNilPubSub)

	n := memnet.NewNetwork()
	_, err = New[note](testConfig(), memnet.NewPubSub(n, "QmA"), "QmA", Codec[note]{}, nil)
	assert.ErrorIs(t, err, ErrNilCodec)

	cfg := testConfig()
	cfg.MaxMessageSize = 0
	_, err = New[note](cfg, memnet.NewPubSub(n, "QmA"), "QmA", JSONCodec[note](), nil)
	assert.Error(t, err)
}

func TestService_Delivers(t *testing.T) {
	sa, _, out := newPair(t, testConfig())

	require.True(t, sa.Send(context.Background(), note{N: 7}))

	r := expect(t, out)
	assert.Equal(t, types.PeerID("QmA"), r.from)
	assert.Equal(t, 7, r.msg.N)
}

func TestService_DropsSelfOrigin(t *testing.T) {
	sa, sb, out := newPair(t, testConfig())

	require.True(t, sb.Send(context.Background(), note{N: 1}))
	require.True(t, sa.Send(context.Background(), note{N: 2}))

	r := expect(t, out)
	assert.Equal(t, 2, r.msg.N)
	assert.Equal(t, types.PeerID("QmA"), r.from)
}

func TestService_StartIdempotent(t *testing.T) {
	n := memnet.NewNetwork()
	s, err := New[note](testConfig(), memnet.NewPubSub(n, "QmA"), "QmA", JSONCodec[note](), nil)
	require.NoError(t, err)

	assert.False(t, s.Send(context.Background(), note{}))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())

	assert.ErrorIs(t, s.Start(context.Background()), ErrStopped)
	assert.False(t, s.Send(context.Background(), note{}))
}

func TestService_FilterOrder(t *testing.T) {
	n := memnet.NewNetwork()
	cfg := testConfig()
	cfg.MaxMessageSize = 8

	var customCalls atomic.Int32
	s, err := New[note](cfg, memnet.NewPubSub(n, "QmSelf"), "QmSelf", JSONCodec[note](), nil,
		WithFilter("custom", func(*interfaces.Message) bool {
			customCalls.Add(1)
			return false
		}))
	require.NoError(t, err)

	tests := []struct {
		name   string
		msg    *interfaces.Message
		filter string
		drop   bool
	}{
		{"超大消息先于来源检查", &interfaces.Message{From: "QmSelf", Data: make([]byte, 9)}, FilterSize, true},
		{"自身消息", &interfaces.Message{From: "QmSelf", Data: []byte("{}")}, FilterSelf, true},
		{"正常消息", &interfaces.Message{From: "QmOther", Data: []byte("{}")}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			name, drop := s.applyFilters(tt.msg)
			assert.Equal(t, tt.drop, drop)
			assert.Equal(t, tt.filter, name)
		})
	}
	assert.Equal(t, int32(1), customCalls.Load())
}

func TestService_MinInterval(t *testing.T) {
	mock := clock.NewMock()
	cfg := testConfig()
	cfg.MinInterval = config.Duration(time.Second)
	cfg.IntervalWindow = 2

	n := memnet.NewNetwork()
	s, err := New[note](cfg, memnet.NewPubSub(n, "QmSelf"), "QmSelf", JSONCodec[note](), nil, WithClock(mock))
	require.NoError(t, err)

	msg := &interfaces.Message{From: "QmOther", Data: []byte("{}")}
	assert.True(t, s.accept(msg))
	assert.False(t, s.accept(msg), "间隔不足应丢弃")

	mock.Add(500 * time.Millisecond)
	assert.False(t, s.accept(msg), "间隔从上一次接纳算起")

	mock.Add(500 * time.Millisecond)
	assert.True(t, s.accept(msg))

	assert.True(t, s.accept(&interfaces.Message{From: "QmThird", Data: []byte("{}")}), "发送方之间互不影响")
	assert.Len(t, s.RecentArrivals("QmOther"), 2)
}

func TestService_DecodeErrorCounted(t *testing.T) {
	cfg := testConfig()
	cfg.MinInterval = 0
	sa, sb, out := newPair(t, cfg)

	topic, err := memnet.NewPubSub(sa.ps.(*memnet.PubSub).Network(), "QmA").Join(cfg.Topic)
	require.NoError(t, err)
	require.NoError(t, topic.Publish(context.Background(), []byte("not json")))
	require.True(t, sa.Send(context.Background(), note{N: 3}))

	r := expect(t, out)
	assert.Equal(t, 3, r.msg.N)
	assert.Equal(t, uint64(1), sb.DecodeErrors())
}

func TestService_RateLimitBackpressure(t *testing.T) {
	mock := clock.NewMock()
	cfg := testConfig()
	cfg.MinInterval = 0
	cfg.RateCount = 1
	cfg.RatePeriod = config.Duration(time.Hour)
	sa, _, out := newPair(t, cfg, WithClock(mock))

	require.True(t, sa.Send(context.Background(), note{N: 1}))
	require.True(t, sa.Send(context.Background(), note{N: 2}))

	assert.Equal(t, 1, expect(t, out).msg.N)
	select {
	case r := <-out:
		t.Fatalf("令牌耗尽时不应分发: %+v", r)
	case <-time.After(100 * time.Millisecond):
	}

	require.Eventually(t, func() bool {
		mock.Add(time.Hour)
		select {
		case r := <-out:
			return r.msg.N == 2
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_Periodic(t *testing.T) {
	mock := clock.NewMock()
	var ticks atomic.Int32

	n := memnet.NewNetwork()
	s, err := New[note](testConfig(), memnet.NewPubSub(n, "QmA"), "QmA", JSONCodec[note](), nil,
		WithClock(mock),
		WithPeriodic(time.Minute, func(context.Context) { ticks.Add(1) }))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	require.Eventually(t, func() bool {
		mock.Add(time.Minute)
		return ticks.Load() > 0
	}, 2*time.Second, 10*time.Millisecond)
}

// ============================================================================
//                              重新订阅
// ============================================================================

type flakyPubSub struct {
	mu         sync.Mutex
	subscribes int
}

func (p *flakyPubSub) Join(topic string) (interfaces.Topic, error) {
	return &flakyTopic{p: p, name: topic}, nil
}

func (p *flakyPubSub) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.subscribes
}

type flakyTopic struct {
	p    *flakyPubSub
	name string
}

func (t *flakyTopic) String() string                        { return t.name }
func (t *flakyTopic) Publish(context.Context, []byte) error { return errors.New("offline") }
func (t *flakyTopic) Close() error                          { return nil }

func (t *flakyTopic) Subscribe() (interfaces.TopicSubscription, error) {
	t.p.mu.Lock()
	defer t.p.mu.Unlock()
	t.p.subscribes++
	return &flakySub{first: t.p.subscribes == 1}, nil
}

type flakySub struct {
	first bool
}

func (s *flakySub) Next(ctx context.Context) (*interfaces.Message, error) {
	if s.first {
		panic("transport exploded")
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *flakySub) Cancel() {}

func TestService_SubscribedWhenStartReturns(t *testing.T) {
	ps := &flakyPubSub{}
	s, err := New[note](testConfig(), ps, "QmA", JSONCodec[note](), nil, WithClock(clock.NewMock()))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.Equal(t, 1, ps.count())
	require.NoError(t, s.Start(context.Background()))
	assert.Equal(t, 1, ps.count(), "重复启动不应再次订阅")
}

func TestService_ResubscribeAfterPanic(t *testing.T) {
	mock := clock.NewMock()
	ps := &flakyPubSub{}

	s, err := New[note](testConfig(), ps, "QmA", JSONCodec[note](), nil, WithClock(mock))
	require.NoError(t, err)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.False(t, s.Send(context.Background(), note{}), "发布失败返回 false")

	require.Eventually(t, func() bool {
		mock.Add(testConfig().ResubscribeDelay.Duration())
		return ps.count() >= 2
	}, 2*time.Second, 10*time.Millisecond)
}
