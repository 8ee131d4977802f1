package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-didpeer/pkg/types"
)

// fakeMeshNode 在 ready 返回 true 后报告已认证 peers 个节点
type fakeMeshNode struct {
	peers     int
	ready     func() bool
	announces atomic.Int32
}

func (f *fakeMeshNode) AuthenticatedPeers() []types.PeerSnapshot {
	if f.ready != nil && !f.ready() {
		return nil
	}
	return make([]types.PeerSnapshot, f.peers)
}

func (f *fakeMeshNode) Announce(context.Context) error {
	f.announces.Add(1)
	return nil
}

func TestWaitMesh_CompletedNodesKeepAnnouncing(t *testing.T) {
	old := meshRound
	meshRound = 10 * time.Millisecond
	t.Cleanup(func() { meshRound = old })

	// early 已完成，late 只有在 early 再次公告后才能完成
	early := &fakeMeshNode{peers: 1}
	late := &fakeMeshNode{peers: 1}
	late.ready = func() bool { return early.announces.Load() > 0 }

	err := waitMesh(context.Background(), []*fakeMeshNode{early, late}, 2*time.Second)
	require.NoError(t, err)
	assert.Positive(t, early.announces.Load())
}

func TestWaitMesh_Timeout(t *testing.T) {
	old := meshRound
	meshRound = 10 * time.Millisecond
	t.Cleanup(func() { meshRound = old })

	stuck := &fakeMeshNode{peers: 0}
	err := waitMesh(context.Background(), []*fakeMeshNode{stuck, stuck}, 50*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Positive(t, stuck.announces.Load())
}
