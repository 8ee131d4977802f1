package crypto

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"io"
)

// RSA 密钥常量
const (
	// RSAMinKeySize RSA 最小密钥大小（位）
	RSAMinKeySize = 2048
	// RSADefaultKeySize RSA 默认密钥大小（位）
	RSADefaultKeySize = 2048
	// RSAMaxKeySize RSA 最大密钥大小（位）
	RSAMaxKeySize = 8192
)

// PEM 块类型
const (
	pemTypePublicKey  = "PUBLIC KEY"
	pemTypePrivateKey = "PRIVATE KEY"
	pemTypeRSAPrivate = "RSA PRIVATE KEY"
)

// pssOptions PSS 参数：SHA-256，盐长度等于哈希长度
var pssOptions = &rsa.PSSOptions{
	SaltLength: rsa.PSSSaltLengthEqualsHash,
	Hash:       crypto.SHA256,
}

// ============================================================================
//                              RSAPublicKey
// ============================================================================

// RSAPublicKey RSA 公钥
type RSAPublicKey struct {
	k *rsa.PublicKey
}

// NewRSAPublicKey 包装标准库公钥
func NewRSAPublicKey(k *rsa.PublicKey) (*RSAPublicKey, error) {
	if k == nil {
		return nil, ErrNilPublicKey
	}
	if k.N.BitLen() < RSAMinKeySize {
		return nil, fmt.Errorf("%w: RSA key too small", ErrInvalidPublicKey)
	}
	return &RSAPublicKey{k: k}, nil
}

// Raw 返回 PKIX 格式的公钥字节
func (k *RSAPublicKey) Raw() ([]byte, error) {
	return x509.MarshalPKIXPublicKey(k.k)
}

// MarshalPEM 返回 PEM 编码的 PKIX 公钥
func (k *RSAPublicKey) MarshalPEM() ([]byte, error) {
	der, err := k.Raw()
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: pemTypePublicKey, Bytes: der}), nil
}

// Equals 比较两个公钥是否相等
func (k *RSAPublicKey) Equals(other *RSAPublicKey) bool {
	if other == nil {
		return false
	}
	return k.k.N.Cmp(other.k.N) == 0 && k.k.E == other.k.E
}

// Verify 验证 RSA-PSS/SHA-256 签名
func (k *RSAPublicKey) Verify(data, sig []byte) bool {
	if len(sig) == 0 {
		return false
	}
	hash := sha256.Sum256(data)
	return rsa.VerifyPSS(k.k, crypto.SHA256, hash[:], sig, pssOptions) == nil
}

// ============================================================================
//                              RSAPrivateKey
// ============================================================================

// RSAPrivateKey RSA 私钥
type RSAPrivateKey struct {
	k *rsa.PrivateKey
}

// Raw 返回 PKCS#1 格式的私钥字节
func (k *RSAPrivateKey) Raw() []byte {
	return x509.MarshalPKCS1PrivateKey(k.k)
}

// MarshalPEM 返回 PEM 编码的 PKCS#1 私钥
func (k *RSAPrivateKey) MarshalPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: pemTypeRSAPrivate, Bytes: k.Raw()})
}

// Public 返回对应的公钥
func (k *RSAPrivateKey) Public() *RSAPublicKey {
	return &RSAPublicKey{k: &k.k.PublicKey}
}

// Sign 使用 RSA-PSS/SHA-256 签名数据
func (k *RSAPrivateKey) Sign(data []byte) ([]byte, error) {
	hash := sha256.Sum256(data)
	return rsa.SignPSS(rand.Reader, k.k, crypto.SHA256, hash[:], pssOptions)
}

// ============================================================================
//                              工厂函数
// ============================================================================

// GenerateRSAKey 生成新的 RSA 密钥
//
// 参数：
//   - bits: 密钥大小（位），推荐 2048 或 4096
//   - src: 随机源
func GenerateRSAKey(bits int, src io.Reader) (*RSAPrivateKey, error) {
	if bits < RSAMinKeySize || bits > RSAMaxKeySize {
		return nil, fmt.Errorf("%w: %d bits (allowed %d-%d)", ErrInvalidKeySize, bits, RSAMinKeySize, RSAMaxKeySize)
	}

	priv, err := rsa.GenerateKey(src, bits)
	if err != nil {
		return nil, err
	}
	return &RSAPrivateKey{k: priv}, nil
}

// UnmarshalRSAPublicKey 从 PKIX/X.509 DER 字节反序列化 RSA 公钥
func UnmarshalRSAPublicKey(data []byte) (*RSAPublicKey, error) {
	pub, err := x509.ParsePKIXPublicKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}

	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("%w: not an RSA key", ErrInvalidPublicKey)
	}
	return NewRSAPublicKey(rsaPub)
}

// UnmarshalRSAPublicKeyPEM 从 PEM 文本反序列化 RSA 公钥
func UnmarshalRSAPublicKeyPEM(data []byte) (*RSAPublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMBlock
	}
	if block.Type != pemTypePublicKey {
		return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrInvalidPublicKey, block.Type)
	}
	return UnmarshalRSAPublicKey(block.Bytes)
}

// UnmarshalRSAPrivateKey 从字节反序列化 RSA 私钥
//
// 支持 PKCS#1 和 PKCS#8 格式
func UnmarshalRSAPrivateKey(data []byte) (*RSAPrivateKey, error) {
	// 尝试 PKCS#1 格式
	if priv, err := x509.ParsePKCS1PrivateKey(data); err == nil {
		return checkPrivate(priv)
	}

	// 尝试 PKCS#8 格式
	if key, err := x509.ParsePKCS8PrivateKey(data); err == nil {
		if rsaKey, ok := key.(*rsa.PrivateKey); ok {
			return checkPrivate(rsaKey)
		}
	}

	return nil, ErrInvalidPrivateKey
}

// UnmarshalRSAPrivateKeyPEM 从 PEM 文本反序列化 RSA 私钥
func UnmarshalRSAPrivateKeyPEM(data []byte) (*RSAPrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, ErrNoPEMBlock
	}
	switch block.Type {
	case pemTypeRSAPrivate, pemTypePrivateKey:
		return UnmarshalRSAPrivateKey(block.Bytes)
	default:
		return nil, fmt.Errorf("%w: unexpected PEM type %q", ErrInvalidPrivateKey, block.Type)
	}
}

func checkPrivate(priv *rsa.PrivateKey) (*RSAPrivateKey, error) {
	if priv.N.BitLen() < RSAMinKeySize {
		return nil, fmt.Errorf("%w: RSA key too small", ErrInvalidPrivateKey)
	}
	return &RSAPrivateKey{k: priv}, nil
}
