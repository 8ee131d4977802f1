package announce

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-didpeer/config"
	"github.com/dep2p/go-didpeer/internal/core/eventbus"
	"github.com/dep2p/go-didpeer/internal/core/memnet"
	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/types"
)

type setup struct {
	net   *memnet.Network
	alice *memnet.Peer
	ann   *Announcer
	bus   *eventbus.Bus
	sub   interfaces.TopicSubscription
	mock  *clock.Mock
}

func newSetup(t *testing.T, mutate func(cfg *config.Config)) *setup {
	t.Helper()
	n := memnet.NewNetwork()
	key, err := memnet.PooledKey(0)
	require.NoError(t, err)
	alice, err := n.NewPeerWithKey(context.Background(), "alice", "Earth", key)
	require.NoError(t, err)

	cfg := config.NewConfig()
	if mutate != nil {
		mutate(cfg)
	}
	session, err := NewSession(nil)
	require.NoError(t, err)

	mock := clock.NewMock()
	mock.Set(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	bus := eventbus.NewBus()

	ann, err := New(cfg, Deps{
		Self:    alice.ID,
		PubSub:  alice.PubSub,
		Content: alice.Content,
		DIDs:    alice.Resolver,
		Keys:    alice.Keystore,
		Profile: alice.Profile,
		Session: session,
		Bus:     bus,
	}, WithClock(mock), WithSoftwareVersion("v-test"))
	require.NoError(t, err)

	// 观察者直接订阅主题
	topic, err := memnet.NewPubSub(n, "QmObserver").Join(cfg.PubSub.Topic)
	require.NoError(t, err)
	sub, err := topic.Subscribe()
	require.NoError(t, err)
	t.Cleanup(sub.Cancel)

	return &setup{net: n, alice: alice, ann: ann, bus: bus, sub: sub, mock: mock}
}

func (s *setup) next(t *testing.T) *types.IdentityMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	raw, err := s.sub.Next(ctx)
	require.NoError(t, err)
	msg, err := types.DecodeIdentityMessage(raw.Data)
	require.NoError(t, err)
	return msg
}

func TestSession(t *testing.T) {
	a, err := NewSession(nil)
	require.NoError(t, err)
	b, err := NewSession(nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.IdentToken(), b.IdentToken())
	assert.Greater(t, len(a.IdentToken()), 64)

	fixed, err := NewSession(bytes.NewReader(make([]byte, tokenSize)))
	require.NoError(t, err)
	assert.Equal(t, fixed.IdentToken(), fixed.IdentToken())

	_, err = NewSession(bytes.NewReader([]byte("short")))
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	s := newSetup(t, nil)
	ctx := context.Background()

	msg, err := s.ann.Build(ctx)
	require.NoError(t, err)

	assert.Equal(t, types.IdentVersionCurrent, msg.Version)
	assert.Equal(t, s.alice.ID, msg.PeerID)
	assert.Equal(t, s.ann.IdentToken(), msg.IdentToken)
	assert.Equal(t, "v-test", msg.SoftwareVersion)
	assert.Equal(t, s.alice.DID, msg.Identity.DID)
	assert.Equal(t, "Earth", msg.Identity.VirtualPlanet)
	assert.True(t, msg.Identity.DocumentCID.Defined())
	assert.Equal(t, s.mock.Now().UTC(), msg.Date)
	require.True(t, msg.HasProof())

	// 签名块可被验证
	pemBytes, err := s.alice.Content.FetchBlob(ctx, msg.Crypto.DefaultRSAPubKey)
	require.NoError(t, err)
	pubPEM, err := s.alice.Key.Public().MarshalPEM()
	require.NoError(t, err)
	assert.Equal(t, pubPEM, pemBytes)

	sig, err := s.alice.Content.FetchBlob(ctx, msg.Crypto.DIDSignature)
	require.NoError(t, err)
	assert.True(t, s.alice.Key.Public().Verify([]byte(s.alice.DID), sig))

	_, err = types.EncodeIdentityMessage(msg)
	assert.NoError(t, err, "构建结果必须通过模式校验")
}

func TestBuild_CachesBlobs(t *testing.T) {
	s := newSetup(t, nil)
	ctx := context.Background()

	first, err := s.ann.Build(ctx)
	require.NoError(t, err)
	blobs := s.alice.Content.Len()

	second, err := s.ann.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, blobs, s.alice.Content.Len())
	assert.Equal(t, first.Crypto, second.Crypto)
}

func TestBuild_SkipsWithoutDID(t *testing.T) {
	s := newSetup(t, nil)
	s.alice.Resolver.SetLocalDID("")

	_, err := s.ann.Build(context.Background())
	assert.ErrorIs(t, err, ErrNoLocalDID)

	s.alice.Resolver.SetLocalDID("did:memnet:unregistered")
	_, err = s.ann.Build(context.Background())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestAnnounce_PublishesAndEmits(t *testing.T) {
	s := newSetup(t, func(cfg *config.Config) { cfg.Announce.Enable = false })
	ctx := context.Background()

	evSub, err := s.bus.Subscribe(new(types.EvtIdentityAnnounced))
	require.NoError(t, err)
	defer evSub.Close()

	require.NoError(t, s.ann.Start(ctx))
	defer s.ann.Stop(ctx)

	require.NoError(t, s.ann.Announce(ctx))

	msg := s.next(t)
	assert.Equal(t, s.alice.DID, msg.Identity.DID)

	select {
	case ev := <-evSub.Out():
		announced := ev.(types.EvtIdentityAnnounced)
		assert.Equal(t, s.alice.ID, announced.PeerID)
		assert.Equal(t, msg.HandleString(), announced.Handle)
	case <-time.After(time.Second):
		t.Fatal("未收到公告事件")
	}
}

func TestAnnounce_StartAndPeriodic(t *testing.T) {
	s := newSetup(t, nil)
	ctx := context.Background()

	require.NoError(t, s.ann.Start(ctx))
	defer s.ann.Stop(ctx)

	// 启动时立即公告一次
	first := s.next(t)
	assert.Equal(t, s.alice.ID, first.PeerID)

	// 周期公告
	got := make(chan *types.IdentityMessage, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if raw, err := s.sub.Next(ctx); err == nil {
			if msg, err := types.DecodeIdentityMessage(raw.Data); err == nil {
				got <- msg
			}
		}
	}()

	require.Eventually(t, func() bool {
		s.mock.Add(config.DefaultAnnounceConfig().IdentEvery.Duration())
		return len(got) > 0
	}, 2*time.Second, 20*time.Millisecond)
}

func TestAnnounce_ProfileChanged(t *testing.T) {
	s := newSetup(t, func(cfg *config.Config) { cfg.Announce.Enable = false })
	ctx := context.Background()

	require.NoError(t, s.ann.Start(ctx))
	defer s.ann.Stop(ctx)

	s.alice.Profile.Update(func(p *interfaces.Profile) {
		p.OrgDIDs = []string{"did:example:org"}
	})
	s.ann.ProfileChanged()

	msg := s.next(t)
	assert.Equal(t, []string{"did:example:org"}, msg.Identity.OrgDIDs)
}
