package introspect

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sync"
	"time"

	"github.com/dep2p/go-didpeer/internal/core/trustcache"
	pkgif "github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
	"github.com/dep2p/go-didpeer/pkg/types"
)

var logger = log.Logger("debug/introspect")

// ============================================================================
//                              配置
// ============================================================================

// TrustLister 信任缓存只读视图
type TrustLister interface {
	TrustedEntries() ([]trustcache.Entry, error)
}

// Config 服务配置
type Config struct {
	// Addr 监听地址
	Addr string

	// Self 本节点 ID
	Self types.PeerID

	// Table 节点表
	Table pkgif.PeerTable

	// Trust 可选的信任缓存
	Trust TrustLister

	// Metrics 可选的指标处理器
	Metrics http.Handler
}

// ============================================================================
//                              Server
// ============================================================================

// Server 本地诊断 HTTP 服务
type Server struct {
	config Config

	server   *http.Server
	listener net.Listener

	running   bool
	startTime time.Time

	mu sync.Mutex
}

// New 创建诊断服务
func New(cfg Config) *Server {
	return &Server{config: cfg}
}

// Start 启动服务
func (s *Server) Start(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	listener, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return err
	}
	s.listener = listener
	s.server = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("诊断服务异常退出", "error", err)
		}
	}()

	s.running = true
	s.startTime = time.Now()
	logger.Info("诊断服务已启动", "addr", listener.Addr().String())
	return nil
}

// Stop 停止服务
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		logger.Error("关闭诊断服务失败", "error", err)
		return err
	}

	s.running = false
	logger.Info("诊断服务已停止")
	return nil
}

// Addr 返回实际监听地址
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Addr
}

// Handler 返回路由，未启动监听时也可直接挂载到其他服务
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/debug/introspect", s.handleIntrospect)
	mux.HandleFunc("/debug/introspect/peers", s.handlePeers)
	mux.HandleFunc("/debug/introspect/trust", s.handleTrust)
	mux.HandleFunc("/debug/introspect/runtime", s.handleRuntime)

	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)

	if s.config.Metrics != nil {
		mux.Handle("/metrics", s.config.Metrics)
	}
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// ============================================================================
//                              响应结构
// ============================================================================

// IntrospectResponse 完整诊断响应
type IntrospectResponse struct {
	Timestamp time.Time    `json:"timestamp"`
	Uptime    string       `json:"uptime"`
	Node      NodeInfo     `json:"node"`
	Peers     []PeerInfo   `json:"peers"`
	Trust     []TrustInfo  `json:"trust,omitempty"`
	Runtime   *RuntimeInfo `json:"runtime,omitempty"`
}

// NodeInfo 本节点概况
type NodeInfo struct {
	ID            string `json:"id"`
	Peers         int    `json:"peers"`
	Validated     int    `json:"validated"`
	Authenticated int    `json:"authenticated"`
}

// PeerInfo 节点记录
type PeerInfo struct {
	Handle          string    `json:"handle"`
	PeerID          string    `json:"peer_id"`
	DID             string    `json:"did"`
	Version         int       `json:"version"`
	Validated       bool      `json:"validated"`
	Authenticated   bool      `json:"authenticated"`
	Local           bool      `json:"local,omitempty"`
	IdentLast       time.Time `json:"ident_last"`
	LastRTTMs       *int64    `json:"last_rtt_ms,omitempty"`
	AuthFailures    int       `json:"auth_failures,omitempty"`
	LastAuthFailure string    `json:"last_auth_failure,omitempty"`
}

// TrustInfo 信任缓存条目
type TrustInfo struct {
	DID         string    `json:"did"`
	PeerID      string    `json:"peer_id"`
	Handle      string    `json:"handle"`
	DocumentCID string    `json:"document_cid"`
	LastSeenAt  time.Time `json:"last_seen_at"`
}

// RuntimeInfo 运行时信息
type RuntimeInfo struct {
	GoVersion    string `json:"go_version"`
	NumGoroutine int    `json:"num_goroutine"`
	NumCPU       int    `json:"num_cpu"`
	MemAlloc     uint64 `json:"mem_alloc"`
	MemSys       uint64 `json:"mem_sys"`
	NumGC        uint32 `json:"num_gc"`
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    string    `json:"uptime,omitempty"`
}

// ============================================================================
//                              HTTP 处理器
// ============================================================================

func (s *Server) handleIntrospect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	peers := s.collectPeers(false)
	resp := IntrospectResponse{
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
		Node:      s.collectNodeInfo(peers),
		Peers:     peers,
		Runtime:   collectRuntimeInfo(),
	}
	// 信任缓存读取失败不影响其余报告
	if trust, err := s.collectTrust(); err == nil {
		resp.Trust = trust
	}
	writeJSON(w, resp)
}

func (s *Server) handlePeers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	onlyAuth := r.URL.Query().Get("authenticated") == "1"
	writeJSON(w, s.collectPeers(onlyAuth))
}

func (s *Server) handleTrust(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.config.Trust == nil {
		http.Error(w, "Trust cache not available", http.StatusServiceUnavailable)
		return
	}
	trust, err := s.collectTrust()
	if err != nil {
		logger.Warn("读取信任缓存失败", "error", err)
		http.Error(w, "Trust cache read failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, trust)
}

func (s *Server) handleRuntime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, collectRuntimeInfo())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Uptime:    s.uptime(),
	}
	if s.config.Table == nil {
		health.Status = "degraded"
	}
	writeJSON(w, health)
}

// ============================================================================
//                              数据收集
// ============================================================================

func (s *Server) collectNodeInfo(peers []PeerInfo) NodeInfo {
	info := NodeInfo{ID: string(s.config.Self), Peers: len(peers)}
	for _, p := range peers {
		if p.Validated {
			info.Validated++
		}
		if p.Authenticated {
			info.Authenticated++
		}
	}
	return info
}

func (s *Server) collectPeers(onlyAuthenticated bool) []PeerInfo {
	out := make([]PeerInfo, 0)
	if s.config.Table == nil {
		return out
	}
	for _, p := range s.config.Table.Peers() {
		if onlyAuthenticated && !p.Authenticated {
			continue
		}
		info := PeerInfo{
			Handle:          p.Handle,
			PeerID:          string(p.PeerID),
			DID:             p.DID,
			Version:         p.Version,
			Validated:       p.Validated,
			Authenticated:   p.Authenticated,
			Local:           p.Local,
			IdentLast:       p.IdentLast,
			AuthFailures:    p.AuthFailureCount,
			LastAuthFailure: p.LastAuthFailure,
		}
		if len(p.Pings) > 0 {
			rtt := p.Pings[0].LatencyMs
			info.LastRTTMs = &rtt
		}
		out = append(out, info)
	}
	return out
}

func (s *Server) collectTrust() ([]TrustInfo, error) {
	if s.config.Trust == nil {
		return nil, nil
	}
	entries, err := s.config.Trust.TrustedEntries()
	if err != nil {
		return nil, err
	}
	out := make([]TrustInfo, 0, len(entries))
	for _, e := range entries {
		out = append(out, TrustInfo{
			DID:         e.DID,
			PeerID:      string(e.PeerID),
			Handle:      e.Handle,
			DocumentCID: e.DocumentCID,
			LastSeenAt:  e.LastSeenAt,
		})
	}
	return out, nil
}

func collectRuntimeInfo() *RuntimeInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return &RuntimeInfo{
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		NumCPU:       runtime.NumCPU(),
		MemAlloc:     memStats.Alloc,
		MemSys:       memStats.Sys,
		NumGC:        memStats.NumGC,
	}
}

// ============================================================================
//                              辅助方法
// ============================================================================

func (s *Server) uptime() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startTime.IsZero() {
		return ""
	}
	return time.Since(s.startTime).String()
}

func writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		logger.Error("JSON 编码失败", "error", err)
	}
}
