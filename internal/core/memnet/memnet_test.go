package memnet

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/types"
)

func newTestPeer(t *testing.T, n *Network, name string, key int) *Peer {
	t.Helper()
	priv, err := PooledKey(key)
	require.NoError(t, err)
	p, err := n.NewPeerWithKey(context.Background(), name, "Earth", priv)
	require.NoError(t, err)
	return p
}

func TestNewPeer(t *testing.T) {
	n := NewNetwork()
	p := newTestPeer(t, n, "alice", 0)

	assert.True(t, types.IsValidDID(p.DID))
	assert.Equal(t, "did:memnet:"+string(p.ID), p.DID)

	prof, err := p.Profile.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "alice", prof.Handle.Username)
	assert.Equal(t, "Earth", prof.Handle.Planet)
	assert.True(t, prof.QRProof.Defined())

	doc, err := p.Resolver.Resolve(context.Background(), p.DID)
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Len(t, doc.VerificationMethods, 1)
	assert.Equal(t, types.VerificationMethodID(p.DID), doc.VerificationMethods[0].ID)
}

func TestHost_NewStream(t *testing.T) {
	n := NewNetwork()
	a := newTestPeer(t, n, "alice", 0)
	b := newTestPeer(t, n, "bob", 1)

	b.Host.SetStreamHandler("/echo", func(s interfaces.Stream) {
		defer s.Close()
		assert.Equal(t, a.ID, s.RemotePeer())
		buf := make([]byte, 5)
		_, _ = io.ReadFull(s, buf)
		_, _ = s.Write(buf)
	})

	s, err := a.Host.NewStream(context.Background(), b.ID, "/echo")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Write([]byte("hello"))
	require.NoError(t, err)
	got := make([]byte, 5)
	_, err = io.ReadFull(s, got)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
	assert.Equal(t, b.ID, s.RemotePeer())

	t.Run("未注册协议", func(t *testing.T) {
		_, err := a.Host.NewStream(context.Background(), b.ID, "/nope")
		assert.ErrorIs(t, err, ErrProtocolNotSupported)
	})

	t.Run("离线节点", func(t *testing.T) {
		b.Host.SetOffline(true)
		defer b.Host.SetOffline(false)
		_, err := a.Host.NewStream(context.Background(), b.ID, "/echo")
		assert.ErrorIs(t, err, ErrPeerUnreachable)
	})
}

func TestHost_Protect(t *testing.T) {
	h := NewNetwork().AddHost("QmA")

	h.Protect("QmB", "didpeer")
	h.Protect("QmB", "other")
	assert.True(t, h.IsProtected("QmB", "didpeer"))

	assert.True(t, h.Unprotect("QmB", "didpeer"))
	assert.False(t, h.Unprotect("QmB", "other"))
	assert.False(t, h.IsProtected("QmB", "other"))
}

func TestPubSub_Deliver(t *testing.T) {
	n := NewNetwork()
	a := &PubSub{net: n, self: n.AddHost("QmA").ID()}
	b := &PubSub{net: n, self: n.AddHost("QmB").ID()}

	ta, err := a.Join("t")
	require.NoError(t, err)
	tb, err := b.Join("t")
	require.NoError(t, err)

	sub, err := tb.Subscribe()
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, ta.Publish(context.Background(), []byte("x")))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msg, err := sub.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.PeerID("QmA"), msg.From)
	assert.Equal(t, []byte("x"), msg.Data)
	assert.Equal(t, "t", msg.Topic)

	sub.Cancel()
	_, err = sub.Next(context.Background())
	assert.ErrorIs(t, err, ErrTopicClosed)
}

func TestContentStore(t *testing.T) {
	s := NewContentStore()
	ctx := context.Background()

	c, err := s.StoreBlob(ctx, []byte("blob"))
	require.NoError(t, err)

	data, err := s.FetchBlob(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, []byte("blob"), data)

	other, _ := types.ContentID([]byte("missing"))
	_, err = s.FetchBlob(ctx, other)
	assert.ErrorIs(t, err, ErrBlobNotFound)
}

func TestQRDecoder(t *testing.T) {
	syms, err := QRDecoder{}.DecodeSymbols(context.Background(), EncodeSymbolSheet("a", "b"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, syms)

	_, err = QRDecoder{}.DecodeSymbols(context.Background(), []byte("\x89PNG"))
	assert.ErrorIs(t, err, ErrNotSymbolSheet)
}

func TestDIDRegistry_Rotate(t *testing.T) {
	r := NewDIDRegistry()
	k0, err := PooledKey(0)
	require.NoError(t, err)
	k1, err := PooledKey(1)
	require.NoError(t, err)

	d0, err := r.Register("did:memnet:x", k0.Public())
	require.NoError(t, err)
	d1, err := r.Register("did:memnet:x", k1.Public())
	require.NoError(t, err)
	assert.False(t, d0.ContentID.Equals(d1.ContentID))

	r.Remove("did:memnet:x")
	doc, err := NewResolver(r, "").Resolve(context.Background(), "did:memnet:x")
	require.NoError(t, err)
	assert.Nil(t, doc)
}
