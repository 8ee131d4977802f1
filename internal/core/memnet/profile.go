package memnet

import (
	"context"
	"sync"

	"github.com/dep2p/go-didpeer/pkg/interfaces"
	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
)

// Keystore 固定密钥的密钥库
type Keystore struct {
	mu  sync.RWMutex
	key *crypto.RSAPrivateKey
}

var _ interfaces.Keystore = (*Keystore)(nil)

// NewKeystore 创建密钥库
func NewKeystore(key *crypto.RSAPrivateKey) *Keystore {
	return &Keystore{key: key}
}

// DefaultRSAKey 返回默认密钥
func (k *Keystore) DefaultRSAKey(ctx context.Context) (*crypto.RSAPrivateKey, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.key == nil {
		return nil, crypto.ErrNilPrivateKey
	}
	return k.key, nil
}

// SetKey 替换默认密钥
func (k *Keystore) SetKey(key *crypto.RSAPrivateKey) {
	k.mu.Lock()
	k.key = key
	k.mu.Unlock()
}

// StaticProfile 可修改的身份资料
type StaticProfile struct {
	mu sync.RWMutex
	p  interfaces.Profile
}

var _ interfaces.ProfileSource = (*StaticProfile)(nil)

// NewStaticProfile 创建资料源
func NewStaticProfile(p interfaces.Profile) *StaticProfile {
	return &StaticProfile{p: p}
}

// Profile 返回资料副本
func (s *StaticProfile) Profile(ctx context.Context) (*interfaces.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := s.p
	out.OrgDIDs = append([]string(nil), s.p.OrgDIDs...)
	return &out, nil
}

// Update 原地修改资料
func (s *StaticProfile) Update(fn func(p *interfaces.Profile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.p)
}
