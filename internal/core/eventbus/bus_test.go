package eventbus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	pkgif "github.com/dep2p/go-didpeer/pkg/interfaces"
)

type testEvent struct {
	Value int
}

type otherEvent struct {
	Name string
}

func recv(t *testing.T, sub pkgif.Subscription) interface{} {
	t.Helper()
	select {
	case ev := <-sub.Out():
		return ev
	case <-time.After(time.Second):
		t.Fatal("等待事件超时")
		return nil
	}
}

func TestBus_EmitAndReceive(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(testEvent))
	require.NoError(t, err)
	defer sub.Close()

	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	defer em.Close()

	require.NoError(t, em.Emit(testEvent{Value: 7}))
	assert.Equal(t, testEvent{Value: 7}, recv(t, sub))
}

func TestBus_TypeRouting(t *testing.T) {
	bus := NewBus()

	subA, err := bus.Subscribe(new(testEvent))
	require.NoError(t, err)
	subB, err := bus.Subscribe(new(otherEvent))
	require.NoError(t, err)

	emB, err := bus.Emitter(new(otherEvent))
	require.NoError(t, err)
	require.NoError(t, emB.Emit(otherEvent{Name: "b"}))

	assert.Equal(t, otherEvent{Name: "b"}, recv(t, subB))
	select {
	case ev := <-subA.Out():
		t.Fatalf("不应收到其他类型的事件: %v", ev)
	default:
	}
}

func TestBus_InvalidArguments(t *testing.T) {
	bus := NewBus()

	_, err := bus.Subscribe(nil)
	assert.ErrorIs(t, err, ErrInvalidEventType)

	_, err = bus.Subscribe(testEvent{})
	assert.ErrorIs(t, err, ErrNonPointerType)

	_, err = bus.Emitter(testEvent{})
	assert.ErrorIs(t, err, ErrNonPointerType)

	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	assert.ErrorIs(t, em.Emit(otherEvent{}), ErrTypeMismatch)

	require.NoError(t, em.Close())
	assert.ErrorIs(t, em.Emit(testEvent{}), ErrEmitterClosed)
}

func TestBus_Stateful(t *testing.T) {
	bus := NewBus()

	em, err := bus.Emitter(new(testEvent), pkgif.Stateful())
	require.NoError(t, err)
	require.NoError(t, em.Emit(testEvent{Value: 1}))
	require.NoError(t, em.Emit(testEvent{Value: 2}))

	// 后订阅者立即收到最后一个事件
	sub, err := bus.Subscribe(new(testEvent))
	require.NoError(t, err)
	assert.Equal(t, testEvent{Value: 2}, recv(t, sub))
}

func TestBus_SlowConsumerDrops(t *testing.T) {
	var drops atomic.Int32
	bus := NewBus(WithDropHook(func(string) { drops.Add(1) }))

	sub, err := bus.Subscribe(new(testEvent), pkgif.BufSize(1))
	require.NoError(t, err)
	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)

	// 发射永不阻塞
	for i := 0; i < 5; i++ {
		require.NoError(t, em.Emit(testEvent{Value: i}))
	}

	assert.Equal(t, int32(4), drops.Load())
	assert.Equal(t, testEvent{Value: 0}, recv(t, sub))
}

func TestSubscription_CloseIdempotent(t *testing.T) {
	bus := NewBus()

	sub, err := bus.Subscribe(new(testEvent))
	require.NoError(t, err)
	require.NoError(t, sub.Close())
	require.NoError(t, sub.Close())

	_, ok := <-sub.Out()
	assert.False(t, ok, "关闭后通道应关闭")

	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)
	assert.NoError(t, em.Emit(testEvent{Value: 1}), "无订阅者时发射不应失败")
}

func TestBus_ConcurrentEmitClose(t *testing.T) {
	bus := NewBus()
	em, err := bus.Emitter(new(testEvent))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub, err := bus.Subscribe(new(testEvent), pkgif.BufSize(4))
			if err != nil {
				return
			}
			for j := 0; j < 50; j++ {
				_ = em.Emit(testEvent{Value: j})
			}
			_ = sub.Close()
		}()
	}
	wg.Wait()
}

func TestModule(t *testing.T) {
	var bus pkgif.EventBus
	app := fxtest.New(t,
		fx.NopLogger,
		Module(),
		fx.Populate(&bus),
	)
	app.RequireStart()
	defer app.RequireStop()

	require.NotNil(t, bus)
	_, ok := bus.(*Bus)
	assert.True(t, ok)
}
