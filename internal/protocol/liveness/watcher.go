package liveness

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
	"github.com/dep2p/go-didpeer/pkg/types"
)

var logger = log.Logger("protocol/liveness")

// Watcher 周期探测器
type Watcher struct {
	cfg   config.LivenessConfig
	table interfaces.PeerTable
	auth  interfaces.DIDAuthenticator
	clock clock.Clock

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New 创建探测器
func New(cfg config.LivenessConfig, table interfaces.PeerTable, auth interfaces.DIDAuthenticator, opts ...Option) (*Watcher, error) {
	if table == nil {
		return nil, ErrNilPeerTable
	}
	if auth == nil {
		return nil, ErrNilAuthenticator
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &options{clock: clock.New()}
	for _, opt := range opts {
		opt(o)
	}
	return &Watcher{cfg: cfg, table: table, auth: auth, clock: o.clock}, nil
}

// Start 启动扫描循环
func (w *Watcher) Start(_ context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return ErrAlreadyStarted
	}

	// 后台循环不绑定 OnStart 的 ctx，它在返回后即被取消
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.started = true

	w.wg.Add(1)
	go w.loop(ctx)
	logger.Debug("存活检测已启动", "interval", w.cfg.Interval.Duration())
	return nil
}

// Stop 停止扫描并等待进行中的探测结束
func (w *Watcher) Stop(_ context.Context) error {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return ErrNotStarted
	}
	w.cancel()
	w.started = false
	w.mu.Unlock()

	w.wg.Wait()
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()
	ticker := w.clock.Ticker(w.cfg.Interval.Duration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Scan(ctx)
		}
	}
}

// Scan 执行一轮扫描，返回发起探测的节点数
func (w *Watcher) Scan(ctx context.Context) int {
	now := w.clock.Now()

	var due []types.PeerSnapshot
	for _, s := range w.table.Peers() {
		if w.isDue(s, now) {
			due = append(due, s)
		}
	}
	if len(due) == 0 {
		return 0
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, s := range due {
		w.table.MarkPinged(s.Handle, now)
		g.Go(func() error {
			w.probe(ctx, s)
			return nil
		})
	}
	_ = g.Wait()
	return len(due)
}

// isDue 已公告、非本节点且超过探测间隔
func (w *Watcher) isDue(s types.PeerSnapshot, now time.Time) bool {
	if s.IdentLast.IsZero() || s.Local {
		return false
	}
	if s.LastPingAt.IsZero() {
		return true
	}
	return now.Sub(s.LastPingAt) >= w.cfg.PingInterval.Duration()
}

// probe 按对端版本选择探测方式
func (w *Watcher) probe(ctx context.Context, s types.PeerSnapshot) {
	var (
		report *types.PeerStatusReport
		rtt    time.Duration
		err    error
	)
	if s.Version >= types.IdentVersionCurrent && s.IdentToken != "" {
		report, rtt, err = w.auth.DIDPing(ctx, s.PeerID, s.DID, s.IdentToken)
	} else {
		rtt, err = w.auth.LegacyPing(ctx, s.PeerID)
	}
	if err != nil {
		logger.Debug("探测失败", "handle", s.Handle, "peer", s.PeerID.ShortString(), "error", err)
		return
	}

	w.table.RecordPing(s.Handle, types.PingSample{
		LatencyMs: rtt.Milliseconds(),
		At:        w.clock.Now(),
	}, report)
}
