package didpeer

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/memnet"
	"github.com/dep2p/go-didpeer/pkg/types"
)

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Storage.InMemory = true
	cfg.PubSub.MinInterval = config.Duration(time.Millisecond)
	cfg.Registry.ResolveRetrySleep = config.Duration(time.Millisecond)
	cfg.Liveness.Enable = false
	cfg.Metrics.Enable = false
	cfg.Log.Level = "error"
	return cfg
}

func collaboratorsFor(p *memnet.Peer) Collaborators {
	return Collaborators{
		Host:    p.Host,
		PubSub:  p.PubSub,
		Content: p.Content,
		DIDs:    p.Resolver,
		QR:      p.QR,
		Keys:    p.Keystore,
		Profile: p.Profile,
	}
}

func startNode(t *testing.T, n *memnet.Network, name string, key int) (*Node, *memnet.Peer) {
	t.Helper()
	ctx := context.Background()

	priv, err := memnet.PooledKey(key)
	require.NoError(t, err)
	peer, err := n.NewPeerWithKey(ctx, name, "Earth", priv)
	require.NoError(t, err)

	node, err := New(ctx,
		WithCollaborators(collaboratorsFor(peer)),
		WithConfig(testConfig()),
		WithSoftwareVersion("test/1.0"),
	)
	require.NoError(t, err)
	require.NoError(t, node.Start(ctx))
	t.Cleanup(func() { _ = node.Close() })
	return node, peer
}

// announceUntil 反复公告直到 cond 满足（订阅建立前的公告会丢失）
func announceUntil(t *testing.T, nodes []*Node, cond func() bool) {
	t.Helper()
	require.Eventually(t, func() bool {
		for _, n := range nodes {
			_ = n.Announce(context.Background())
		}
		return cond()
	}, 10*time.Second, 50*time.Millisecond)
}

func TestNode_MutualAuthentication(t *testing.T) {
	net := memnet.NewNetwork()
	alice, alicePeer := startNode(t, net, "alice", 0)
	bob, bobPeer := startNode(t, net, "bob", 1)
	carol, _ := startNode(t, net, "carol", 2)
	nodes := []*Node{alice, bob, carol}

	announceUntil(t, nodes, func() bool {
		for _, n := range nodes {
			if len(n.AuthenticatedPeers()) != 2 {
				return false
			}
		}
		return true
	})

	snap, ok := alice.GetByPeerID(bob.ID())
	require.True(t, ok)
	assert.Equal(t, bobPeer.DID, snap.DID)
	assert.True(t, snap.Validated)
	assert.Equal(t, bob.IdentToken(), snap.IdentToken)
	assert.True(t, alicePeer.Host.IsProtected(bob.ID(), "didpeer"))

	entries, err := alice.TrustedEntries()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestNode_EventsAndLiveness(t *testing.T) {
	net := memnet.NewNetwork()
	alice, _ := startNode(t, net, "alice", 0)

	sub, err := alice.Subscribe(new(types.EvtPeerAuthenticated))
	require.NoError(t, err)
	defer sub.Close()

	bob, _ := startNode(t, net, "bob", 1)
	nodes := []*Node{alice, bob}
	announceUntil(t, nodes, func() bool { return len(alice.AuthenticatedPeers()) == 1 })

	select {
	case e := <-sub.Out():
		evt := e.(types.EvtPeerAuthenticated)
		assert.Equal(t, bob.ID(), evt.PeerID)
	case <-time.After(5 * time.Second):
		t.Fatal("未收到认证事件")
	}

	probed, err := alice.ScanLiveness(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, probed)

	snap, ok := alice.GetByPeerID(bob.ID())
	require.True(t, ok)
	require.Len(t, snap.Pings, 1)
	assert.False(t, snap.LastPingAt.IsZero())
}

func TestNode_ForgetRequiresReauthentication(t *testing.T) {
	net := memnet.NewNetwork()
	alice, _ := startNode(t, net, "alice", 0)
	bob, bobPeer := startNode(t, net, "bob", 1)
	nodes := []*Node{alice, bob}
	announceUntil(t, nodes, func() bool { return len(alice.AuthenticatedPeers()) == 1 })
	// 等待在途公告处理完
	time.Sleep(200 * time.Millisecond)

	require.NoError(t, alice.Forget(bobPeer.DID))
	entries, err := alice.TrustedEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, alice.AuthenticatedPeers())

	announceUntil(t, nodes, func() bool { return len(alice.AuthenticatedPeers()) == 1 })
	entries, err = alice.TrustedEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, bob.ID(), entries[0].PeerID)
}

func TestNode_Lifecycle(t *testing.T) {
	ctx := context.Background()
	net := memnet.NewNetwork()
	peer, err := net.NewPeer(ctx, "dave", "Mars")
	require.NoError(t, err)

	node, err := New(ctx, WithCollaborators(collaboratorsFor(peer)), WithConfig(testConfig()))
	require.NoError(t, err)
	assert.Equal(t, StateIdle, node.State())
	assert.Equal(t, peer.ID, node.ID())

	assert.ErrorIs(t, node.Announce(ctx), ErrNotStarted)
	_, err = node.ScanLiveness(ctx)
	assert.ErrorIs(t, err, ErrNotStarted)

	require.NoError(t, node.Start(ctx))
	assert.Equal(t, StateRunning, node.State())
	assert.ErrorIs(t, node.Start(ctx), ErrAlreadyStarted)
	assert.NotEmpty(t, node.IdentToken())
	assert.Nil(t, node.MetricsHandler())
	assert.Empty(t, node.IntrospectAddr())

	require.NoError(t, node.Close())
	require.NoError(t, node.Close())
	assert.Equal(t, StateStopped, node.State())
	assert.ErrorIs(t, node.Start(ctx), ErrNodeClosed)
}

func TestNode_MetricsAndIntrospect(t *testing.T) {
	ctx := context.Background()
	net := memnet.NewNetwork()
	peer, err := net.NewPeer(ctx, "erin", "Mars")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Metrics.Enable = true
	cfg.Introspect.Enable = true
	cfg.Introspect.Addr = "127.0.0.1:0"
	node, err := New(ctx, WithCollaborators(collaboratorsFor(peer)), WithConfig(cfg))
	require.NoError(t, err)
	assert.NotNil(t, node.MetricsHandler())

	require.NoError(t, node.Start(ctx))
	defer node.Close()

	addr := node.IntrospectAddr()
	require.NotEqual(t, "127.0.0.1:0", addr)
	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestNew_Validation(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx)
	assert.ErrorIs(t, err, ErrMissingCollaborator)

	_, err = New(ctx, WithCollaborators(Collaborators{}))
	assert.ErrorIs(t, err, ErrMissingCollaborator)

	net := memnet.NewNetwork()
	peer, err := net.NewPeer(ctx, "frank", "Mars")
	require.NoError(t, err)

	cfg := testConfig()
	cfg.Announce.IdentEvery = 0
	_, err = New(ctx, WithCollaborators(collaboratorsFor(peer)), WithConfig(cfg))
	assert.Error(t, err)

	_, err = New(ctx, WithConfig(nil))
	assert.Error(t, err)
}

func TestNodeState_String(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "NodeState(42)", NodeState(42).String())
}

func TestVersionInfo(t *testing.T) {
	assert.Contains(t, VersionInfo(), Version)
}
