package interfaces

import (
	"context"

	"github.com/dep2p/go-didpeer/pkg/lib/crypto"
)

// Keystore 本地密钥
type Keystore interface {
	// DefaultRSAKey 返回默认 RSA 私钥
	DefaultRSAKey(ctx context.Context) (*crypto.RSAPrivateKey, error)
}
