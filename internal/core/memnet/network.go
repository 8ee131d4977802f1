package memnet

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"

	"github.com/mr-tron/base58"
	"github.com/multiformats/go-multihash"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
	"github.com/dep2p/go-didpeer/pkg/types"
)

// Network 进程内网络
type Network struct {
	mu     sync.RWMutex
	hosts  map[types.PeerID]*Host
	topics map[string]*topicHub

	content *ContentStore
	dids    *DIDRegistry
}

// NewNetwork 创建网络
func NewNetwork() *Network {
	return &Network{
		hosts:   make(map[types.PeerID]*Host),
		topics:  make(map[string]*topicHub),
		content: NewContentStore(),
		dids:    NewDIDRegistry(),
	}
}

// Content 返回共享内容存储
func (n *Network) Content() *ContentStore {
	return n.content
}

// DIDs 返回共享 DID 注册表
func (n *Network) DIDs() *DIDRegistry {
	return n.dids
}

// PeerIDFromKey 由公钥派生节点 ID：base58(sha2-256 multihash(PKIX))
func PeerIDFromKey(pub *crypto.RSAPublicKey) (types.PeerID, error) {
	der, err := pub.Raw()
	if err != nil {
		return "", err
	}
	mh, err := multihash.Sum(der, multihash.SHA2_256, -1)
	if err != nil {
		return "", err
	}
	return types.PeerID(base58.Encode(mh)), nil
}

// AddHost 以指定 ID 加入网络
func (n *Network) AddHost(id types.PeerID) *Host {
	h := newHost(n, id)
	n.mu.Lock()
	n.hosts[id] = h
	n.mu.Unlock()
	return h
}

func (n *Network) host(id types.PeerID) (*Host, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()
	h, ok := n.hosts[id]
	return h, ok
}

func (n *Network) hub(topic string) *topicHub {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.topics[topic]
	if !ok {
		t = newTopicHub(topic)
		n.topics[topic] = t
	}
	return t
}

// ============================================================================
//                              Peer
// ============================================================================

// Peer 一个节点所需的全部协作者
type Peer struct {
	ID       types.PeerID
	DID      string
	Key      *crypto.RSAPrivateKey
	Host     *Host
	PubSub   *PubSub
	Content  *ContentStore
	Resolver *Resolver
	QR       QRDecoder
	Keystore *Keystore
	Profile  *StaticProfile
}

// NewPeer 创建节点：生成密钥、注册 DID 文档、生成 QR 证明图片
func (n *Network) NewPeer(ctx context.Context, username, planet string) (*Peer, error) {
	priv, err := crypto.GenerateRSAKey(crypto.RSADefaultKeySize, rand.Reader)
	if err != nil {
		return nil, err
	}
	return n.NewPeerWithKey(ctx, username, planet, priv)
}

// NewPeerWithKey 使用给定密钥创建节点
func (n *Network) NewPeerWithKey(ctx context.Context, username, planet string, priv *crypto.RSAPrivateKey) (*Peer, error) {
	id, err := PeerIDFromKey(priv.Public())
	if err != nil {
		return nil, err
	}

	did := "did:memnet:" + string(id)
	if _, err := n.dids.Register(did, priv.Public()); err != nil {
		return nil, err
	}

	suffix := string(id)
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	handle, err := types.ParseSpaceHandle(fmt.Sprintf("%s@%s@%s", username, planet, suffix))
	if err != nil {
		return nil, err
	}

	qr, err := n.StoreQRProof(ctx, id, handle.String(), did)
	if err != nil {
		return nil, err
	}

	host := n.AddHost(id)
	return &Peer{
		ID:       id,
		DID:      did,
		Key:      priv,
		Host:     host,
		PubSub:   NewPubSub(n, id),
		Content:  n.content,
		Resolver: &Resolver{reg: n.dids, local: did},
		QR:       QRDecoder{},
		Keystore: &Keystore{key: priv},
		Profile: NewStaticProfile(interfaces.Profile{
			Handle:        handle,
			VirtualPlanet: planet,
			QRProof:       qr,
			UserStatus:    "online",
		}),
	}, nil
}
