package memnet

import (
	"crypto/rand"
	"sync"

	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
)

var (
	keyPoolMu sync.Mutex
	keyPool   = map[int]*crypto.RSAPrivateKey{}
)

// PooledKey 返回编号 i 对应的进程级缓存密钥
//
// 多个测试复用同一批 RSA 密钥，避免重复生成。
func PooledKey(i int) (*crypto.RSAPrivateKey, error) {
	keyPoolMu.Lock()
	defer keyPoolMu.Unlock()
	if k, ok := keyPool[i]; ok {
		return k, nil
	}
	k, err := crypto.GenerateRSAKey(crypto.RSADefaultKeySize, rand.Reader)
	if err != nil {
		return nil, err
	}
	keyPool[i] = k
	return k, nil
}
