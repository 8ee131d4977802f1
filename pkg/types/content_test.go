package types

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleContentID_Deterministic(t *testing.T) {
	a, err := HandleContentID("alice#1@Earth")
	require.NoError(t, err)
	b, err := HandleContentID("alice#1@Earth")
	require.NoError(t, err)
	c, err := HandleContentID("alice#2@Earth")
	require.NoError(t, err)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
	assert.Equal(t, uint64(cid.Raw), a.Type())
}

func TestSameContent_AcrossVersions(t *testing.T) {
	v1, err := ContentID([]byte("hello"))
	require.NoError(t, err)

	v0 := cid.NewCidV0(v1.Hash())
	dagpb := cid.NewCidV1(cid.DagProtobuf, v1.Hash())

	assert.True(t, SameContent(v1, v0))
	assert.True(t, SameContent(v1, dagpb))
	assert.False(t, SameContent(v1, cid.Undef))
}

func TestParseIPFSPath(t *testing.T) {
	c, err := ContentID([]byte("x"))
	require.NoError(t, err)

	got, err := ParseIPFSPath(IPFSPath(c))
	require.NoError(t, err)
	assert.True(t, got.Equals(c))

	got, err = ParseIPFSPath(IPFSPath(c) + "/sub/file")
	require.NoError(t, err)
	assert.True(t, got.Equals(c))

	_, err = ParseIPFSPath("/ipns/QmPeer")
	assert.ErrorIs(t, err, ErrInvalidContentPath)

	_, err = ParseIPFSPath("/ipfs/not-a-cid")
	assert.ErrorIs(t, err, ErrInvalidContentPath)

	assert.Equal(t, "/ipns/QmPeer", IPNSPath("QmPeer"))
}
