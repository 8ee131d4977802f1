package liveness

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
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// fakeTable 内存节点表
type fakeTable struct {
	mu      sync.Mutex
	peers   []types.PeerSnapshot
	samples map[string][]types.PingSample
	reports map[string]*types.PeerStatusReport
}

func newFakeTable(peers ...types.PeerSnapshot) *fakeTable {
	return &fakeTable{
		peers:   peers,
		samples: make(map[string][]types.PingSample),
		reports: make(map[string]*types.PeerStatusReport),
	}
}

func (f *fakeTable) Peers() []types.PeerSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.PeerSnapshot(nil), f.peers...)
}

func (f *fakeTable) MarkPinged(handle string, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.peers {
		if f.peers[i].Handle == handle {
			f.peers[i].LastPingAt = at
		}
	}
}

func (f *fakeTable) RecordPing(handle string, sample types.PingSample, report *types.PeerStatusReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.samples[handle] = append(f.samples[handle], sample)
	if report != nil {
		f.reports[handle] = report
	}
}

func (f *fakeTable) sampleCount(handle string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.samples[handle])
}

// fakeAuth 记录探测调用
type fakeAuth struct {
	didPings    atomic.Int32
	legacyPings atomic.Int32
	active      atomic.Int32
	maxActive   atomic.Int32
	gate        chan struct{}
	fail        map[types.PeerID]bool
	tokens      sync.Map
}

func (f *fakeAuth) enter() func() {
	n := f.active.Add(1)
	for {
		m := f.maxActive.Load()
		if n <= m || f.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	if f.gate != nil {
		<-f.gate
	}
	return func() { f.active.Add(-1) }
}

func (f *fakeAuth) Authenticate(context.Context, types.PeerID, string, string, *crypto.RSAPublicKey) error {
	return errors.New("unused")
}

func (f *fakeAuth) DIDPing(_ context.Context, peer types.PeerID, _ string, token string) (*types.PeerStatusReport, time.Duration, error) {
	defer f.enter()()
	f.didPings.Add(1)
	f.tokens.Store(peer, token)
	if f.fail[peer] {
		return nil, 0, errors.New("unreachable")
	}
	return &types.PeerStatusReport{UserStatus: "online"}, 12 * time.Millisecond, nil
}

func (f *fakeAuth) LegacyPing(_ context.Context, peer types.PeerID) (time.Duration, error) {
	defer f.enter()()
	f.legacyPings.Add(1)
	if f.fail[peer] {
		return 0, errors.New("unreachable")
	}
	return 30 * time.Millisecond, nil
}

var _ interfaces.DIDAuthenticator = (*fakeAuth)(nil)

func newMock() *clock.Mock {
	m := clock.NewMock()
	m.Set(time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	return m
}

func snapshot(handle string, peer types.PeerID, version int, identLast time.Time) types.PeerSnapshot {
	s := types.PeerSnapshot{
		Handle:    handle,
		PeerID:    peer,
		DID:       "did:example:" + string(peer),
		Version:   version,
		IdentLast: identLast,
	}
	if version >= types.IdentVersionCurrent {
		s.IdentToken = "tok-" + string(peer)
	}
	return s
}

func TestScan_SelectsProbeKind(t *testing.T) {
	mock := newMock()
	now := mock.Now()
	table := newFakeTable(
		snapshot("a@Earth", "QmA", types.IdentVersionCurrent, now),
		snapshot("b@Earth", "QmB", types.IdentVersionLegacy, now),
	)
	auth := &fakeAuth{}
	w, err := New(config.DefaultLivenessConfig(), table, auth, WithClock(mock))
	require.NoError(t, err)

	assert.Equal(t, 2, w.Scan(context.Background()))
	assert.Equal(t, int32(1), auth.didPings.Load())
	assert.Equal(t, int32(1), auth.legacyPings.Load())

	tok, _ := auth.tokens.Load(types.PeerID("QmA"))
	assert.Equal(t, "tok-QmA", tok, "DID ping 携带对端公告的会话令牌")

	require.Equal(t, 1, table.sampleCount("a@Earth"))
	assert.Equal(t, int64(12), table.samples["a@Earth"][0].LatencyMs)
	assert.Equal(t, "online", table.reports["a@Earth"].UserStatus)
	assert.Equal(t, int64(30), table.samples["b@Earth"][0].LatencyMs)
	assert.Nil(t, table.reports["b@Earth"])
}

func TestScan_DueRules(t *testing.T) {
	mock := newMock()
	now := mock.Now()
	local := snapshot("me@Earth", "QmMe", types.IdentVersionCurrent, now)
	local.Local = true
	table := newFakeTable(
		snapshot("a@Earth", "QmA", types.IdentVersionCurrent, now),
		snapshot("silent@Earth", "QmS", types.IdentVersionCurrent, time.Time{}),
		local,
	)
	auth := &fakeAuth{}
	cfg := config.DefaultLivenessConfig()
	w, err := New(cfg, table, auth, WithClock(mock))
	require.NoError(t, err)
	ctx := context.Background()

	assert.Equal(t, 1, w.Scan(ctx), "未公告与本节点记录不探测")

	// 探测间隔内不重复
	mock.Add(cfg.PingInterval.Duration() / 2)
	assert.Equal(t, 0, w.Scan(ctx))

	mock.Add(cfg.PingInterval.Duration() / 2)
	assert.Equal(t, 1, w.Scan(ctx))
	assert.Equal(t, int32(2), auth.didPings.Load())
}

func TestScan_FailureLeavesRecordStale(t *testing.T) {
	mock := newMock()
	table := newFakeTable(snapshot("a@Earth", "QmA", types.IdentVersionCurrent, mock.Now()))
	auth := &fakeAuth{fail: map[types.PeerID]bool{"QmA": true}}
	w, err := New(config.DefaultLivenessConfig(), table, auth, WithClock(mock))
	require.NoError(t, err)

	assert.Equal(t, 1, w.Scan(context.Background()))
	assert.Zero(t, table.sampleCount("a@Earth"))
	assert.Equal(t, mock.Now(), table.Peers()[0].LastPingAt)
}

func TestScan_ConcurrencyLimit(t *testing.T) {
	mock := newMock()
	var peers []types.PeerSnapshot
	for _, id := range []types.PeerID{"QmA", "QmB", "QmC", "QmD", "QmE", "QmF"} {
		peers = append(peers, snapshot(string(id)+"@Earth", id, types.IdentVersionLegacy, mock.Now()))
	}
	table := newFakeTable(peers...)
	auth := &fakeAuth{gate: make(chan struct{})}
	cfg := config.DefaultLivenessConfig()
	cfg.Concurrency = 2
	w, err := New(cfg, table, auth, WithClock(mock))
	require.NoError(t, err)

	done := make(chan int)
	go func() { done <- w.Scan(context.Background()) }()

	for i := 0; i < len(peers); i++ {
		auth.gate <- struct{}{}
	}
	assert.Equal(t, len(peers), <-done)
	assert.LessOrEqual(t, auth.maxActive.Load(), int32(2))
}

func TestWatcher_StartStop(t *testing.T) {
	mock := newMock()
	table := newFakeTable(snapshot("a@Earth", "QmA", types.IdentVersionCurrent, mock.Now()))
	auth := &fakeAuth{}
	cfg := config.DefaultLivenessConfig()
	w, err := New(cfg, table, auth, WithClock(mock))
	require.NoError(t, err)
	ctx := context.Background()

	assert.ErrorIs(t, w.Stop(ctx), ErrNotStarted)
	require.NoError(t, w.Start(ctx))
	assert.ErrorIs(t, w.Start(ctx), ErrAlreadyStarted)

	// 等待循环注册 ticker 后推进时钟
	require.Eventually(t, func() bool {
		mock.Add(cfg.Interval.Duration())
		return table.sampleCount("a@Earth") > 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, w.Stop(ctx))
}

func TestNew_Validation(t *testing.T) {
	cfg := config.DefaultLivenessConfig()
	_, err := New(cfg, nil, &fakeAuth{})
	assert.ErrorIs(t, err, ErrNilPeerTable)
	_, err = New(cfg, newFakeTable(), nil)
	assert.ErrorIs(t, err, ErrNilAuthenticator)

	cfg.Concurrency = 0
	_, err = New(cfg, newFakeTable(), &fakeAuth{})
	assert.Error(t, err)
}

func TestModule(t *testing.T) {
	cfg := config.NewConfig()
	var w *Watcher
	app := fxtest.New(t,
		fx.Supply(cfg),
		fx.Provide(
			func() interfaces.PeerTable { return newFakeTable() },
			func() interfaces.DIDAuthenticator { return &fakeAuth{} },
			func() clock.Clock { return newMock() },
		),
		Module(),
		fx.Populate(&w),
	)
	app.RequireStart()
	require.NotNil(t, w)
	assert.True(t, w.started)
	app.RequireStop()
	assert.False(t, w.started)
}
