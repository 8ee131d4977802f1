package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRSA_Generate(t *testing.T) {
	priv, err := GenerateRSAKey(RSADefaultKeySize, rand.Reader)
	require.NoError(t, err)

	raw, err := priv.Public().Raw()
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.NotEmpty(t, priv.Raw())
}

func TestRSA_Generate_InvalidSize(t *testing.T) {
	_, err := GenerateRSAKey(1024, rand.Reader)
	assert.ErrorIs(t, err, ErrInvalidKeySize)

	_, err = GenerateRSAKey(16384, rand.Reader)
	assert.ErrorIs(t, err, ErrInvalidKeySize)
}

func TestRSA_SignVerifyPSS(t *testing.T) {
	priv, err := GenerateRSAKey(RSADefaultKeySize, rand.Reader)
	require.NoError(t, err)

	data := []byte("did:example:alice")
	sig, err := priv.Sign(data)
	require.NoError(t, err)

	pub := priv.Public()
	assert.True(t, pub.Verify(data, sig))
	assert.False(t, pub.Verify([]byte("did:example:mallory"), sig), "篡改数据应验证失败")
	assert.False(t, pub.Verify(data, nil), "空签名应验证失败")

	// PSS 为概率签名，两次签名结果不同但都有效
	sig2, err := priv.Sign(data)
	require.NoError(t, err)
	assert.NotEqual(t, sig, sig2)
	assert.True(t, pub.Verify(data, sig2))
}

func TestRSA_VerifyWrongKey(t *testing.T) {
	priv1, err := GenerateRSAKey(RSADefaultKeySize, rand.Reader)
	require.NoError(t, err)
	priv2, err := GenerateRSAKey(RSADefaultKeySize, rand.Reader)
	require.NoError(t, err)

	sig, err := priv1.Sign([]byte("challenge"))
	require.NoError(t, err)
	assert.False(t, priv2.Public().Verify([]byte("challenge"), sig))
}

func TestRSA_PEMRoundTrip(t *testing.T) {
	priv, err := GenerateRSAKey(RSADefaultKeySize, rand.Reader)
	require.NoError(t, err)

	pubPEM, err := priv.Public().MarshalPEM()
	require.NoError(t, err)
	assert.Contains(t, string(pubPEM), "BEGIN PUBLIC KEY")

	pub, err := UnmarshalRSAPublicKeyPEM(pubPEM)
	require.NoError(t, err)
	assert.True(t, pub.Equals(priv.Public()))

	priv2, err := UnmarshalRSAPrivateKeyPEM(priv.MarshalPEM())
	require.NoError(t, err)
	assert.True(t, priv2.Public().Equals(priv.Public()))
}

func TestRSA_UnmarshalInvalid(t *testing.T) {
	_, err := UnmarshalRSAPublicKeyPEM([]byte("not pem"))
	assert.ErrorIs(t, err, ErrNoPEMBlock)

	_, err = UnmarshalRSAPublicKey([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidPublicKey)

	_, err = UnmarshalRSAPrivateKey([]byte{0x01, 0x02})
	assert.ErrorIs(t, err, ErrInvalidPrivateKey)

	_, err = NewRSAPublicKey(nil)
	assert.ErrorIs(t, err, ErrNilPublicKey)
}
