package pubsub

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// 内置过滤器名称（用于日志与指标标签）
const (
	FilterSize     = "size"
	FilterSelf     = "self"
	FilterInterval = "interval"
)

// Filter 消息过滤谓词，返回 true 表示丢弃
type Filter func(msg *interfaces.Message) bool

type namedFilter struct {
	name string
	fn   Filter
}

// Arrival 一次到达记录
type Arrival struct {
	At   time.Time
	Size int
}

// arrivalWindow 单个发送方最近的到达记录
type arrivalWindow struct {
	mu           sync.Mutex
	arrivals     []Arrival
	lastAdmitted time.Time
}

func (w *arrivalWindow) record(a Arrival, capacity int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.arrivals = append(w.arrivals, a)
	if len(w.arrivals) > capacity {
		w.arrivals = w.arrivals[len(w.arrivals)-capacity:]
	}
}

func (w *arrivalWindow) admitted(at time.Time) {
	w.mu.Lock()
	w.lastAdmitted = at
	w.mu.Unlock()
}

func (w *arrivalWindow) tooSoon(now time.Time, min time.Duration) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastAdmitted.IsZero() {
		return false
	}
	return now.Sub(w.lastAdmitted) < min
}

func (w *arrivalWindow) snapshot() []Arrival {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Arrival(nil), w.arrivals...)
}

// intervalTracker 按发送方跟踪到达窗口，发送方数量由 LRU 限制
type intervalTracker struct {
	windows  *lru.Cache[types.PeerID, *arrivalWindow]
	capacity int
	min      time.Duration
}

func newIntervalTracker(maxSenders, capacity int, min time.Duration) (*intervalTracker, error) {
	cache, err := lru.New[types.PeerID, *arrivalWindow](maxSenders)
	if err != nil {
		return nil, err
	}
	return &intervalTracker{windows: cache, capacity: capacity, min: min}, nil
}

func (t *intervalTracker) window(from types.PeerID) *arrivalWindow {
	w, ok := t.windows.Get(from)
	if !ok {
		w = &arrivalWindow{}
		t.windows.Add(from, w)
	}
	return w
}

// observe 记录一次到达，返回是否因间隔过短应丢弃
func (t *intervalTracker) observe(from types.PeerID, now time.Time, size int) bool {
	w := t.window(from)
	w.record(Arrival{At: now, Size: size}, t.capacity)
	return t.min > 0 && w.tooSoon(now, t.min)
}

func (t *intervalTracker) admit(from types.PeerID, now time.Time) {
	t.window(from).admitted(now)
}

func (t *intervalTracker) arrivals(from types.PeerID) []Arrival {
	w, ok := t.windows.Peek(from)
	if !ok {
		return nil
	}
	return w.snapshot()
}
