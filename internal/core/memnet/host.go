package memnet

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// Host 进程内主机
type Host struct {
	net *Network
	id  types.PeerID

	mu        sync.RWMutex
	handlers  map[string]interfaces.StreamHandler
	protected map[types.PeerID]map[string]struct{}

	offline atomic.Bool
}

var _ interfaces.Host = (*Host)(nil)

func newHost(n *Network, id types.PeerID) *Host {
	return &Host{
		net:       n,
		id:        id,
		handlers:  make(map[string]interfaces.StreamHandler),
		protected: make(map[types.PeerID]map[string]struct{}),
	}
}

// ID 返回本节点 ID
func (h *Host) ID() types.PeerID {
	return h.id
}

// SetOffline 模拟节点离线：入站和出站流都会失败
func (h *Host) SetOffline(offline bool) {
	h.offline.Store(offline)
}

// NewStream 打开到目标节点的流，对端处理器在独立 goroutine 中运行
func (h *Host) NewStream(ctx context.Context, peer types.PeerID, protocolID string) (interfaces.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if h.offline.Load() {
		return nil, fmt.Errorf("%w: local host offline", ErrPeerUnreachable)
	}

	remote, ok := h.net.host(peer)
	if !ok || remote.offline.Load() {
		return nil, fmt.Errorf("%w: %s", ErrPeerUnreachable, peer.ShortString())
	}

	remote.mu.RLock()
	handler, ok := remote.handlers[protocolID]
	remote.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProtocolNotSupported, protocolID)
	}

	local, inbound := net.Pipe()
	go handler(&stream{conn: inbound, remote: h.id, protocol: protocolID})

	return &stream{conn: local, remote: peer, protocol: protocolID}, nil
}

// SetStreamHandler 注册协议处理器
func (h *Host) SetStreamHandler(protocolID string, handler interfaces.StreamHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[protocolID] = handler
}

// RemoveStreamHandler 移除协议处理器
func (h *Host) RemoveStreamHandler(protocolID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.handlers, protocolID)
}

// Protect 记录连接保护标签
func (h *Host) Protect(peer types.PeerID, tag string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	tags, ok := h.protected[peer]
	if !ok {
		tags = make(map[string]struct{})
		h.protected[peer] = tags
	}
	tags[tag] = struct{}{}
}

// Unprotect 移除保护标签，返回该节点是否仍受保护
func (h *Host) Unprotect(peer types.PeerID, tag string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	tags, ok := h.protected[peer]
	if !ok {
		return false
	}
	delete(tags, tag)
	if len(tags) == 0 {
		delete(h.protected, peer)
		return false
	}
	return true
}

// IsProtected 检查节点是否带有指定保护标签
func (h *Host) IsProtected(peer types.PeerID, tag string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.protected[peer][tag]
	return ok
}

// ============================================================================
//                              stream
// ============================================================================

type stream struct {
	conn     net.Conn
	remote   types.PeerID
	protocol string
}

var _ interfaces.Stream = (*stream)(nil)

func (s *stream) Read(p []byte) (int, error) { return s.conn.Read(p) }
func (s *stream) Write(p []byte) (int, error) { return s.conn.Write(p) }
func (s *stream) Close() error { return s.conn.Close() }
func (s *stream) RemotePeer() types.PeerID { return s.remote }
func (s *stream) Protocol() string { return s.protocol }
func (s *stream) SetDeadline(t time.Time) error { return s.conn.SetDeadline(t) }
