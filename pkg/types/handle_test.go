package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSpaceHandle(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  SpaceHandle
		err   bool
	}{
		{"最简形式", "alice@Earth", SpaceHandle{Username: "alice", Planet: "Earth"}, false},
		{"带消歧号", "alice#42@Earth", SpaceHandle{Username: "alice", Disambiguator: "42", Planet: "Earth"}, false},
		{"完整形式", "bob.x#1@Mars-2@QmAbc123", SpaceHandle{Username: "bob.x", Disambiguator: "1", Planet: "Mars-2", PeerSuffix: "QmAbc123"}, false},
		{"缺少星球", "alice", SpaceHandle{}, true},
		{"星球以数字开头", "alice@1Earth", SpaceHandle{}, true},
		{"消歧号非数字", "alice#x@Earth", SpaceHandle{}, true},
		{"消歧号过长", "alice#123456789@Earth", SpaceHandle{}, true},
		{"后缀含非法字符", "alice@Earth@Qm-bad", SpaceHandle{}, true},
		{"空串", "", SpaceHandle{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSpaceHandle(tt.input)
			if tt.err {
				assert.ErrorIs(t, err, ErrInvalidHandle)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String(), "String() 应还原原始形式")
		})
	}
}

func TestIsValidDID(t *testing.T) {
	assert.True(t, IsValidDID("did:example:abc"))
	assert.True(t, IsValidDID("did:ipid:QmXyz:sub.key"))
	assert.False(t, IsValidDID("did:Example:abc"))
	assert.False(t, IsValidDID("did:example:"))
	assert.False(t, IsValidDID("example:abc"))
	assert.False(t, IsValidDID("did:example:a b"))

	m, err := DIDMethod("did:ipid:Qm1")
	require.NoError(t, err)
	assert.Equal(t, "ipid", m)

	_, err = DIDMethod("nope")
	assert.ErrorIs(t, err, ErrInvalidDID)
}

func TestPingHistory(t *testing.T) {
	var h PingHistory
	_, ok := h.Latest()
	assert.False(t, ok)

	for i := int64(1); i <= 5; i++ {
		h.Push(PingSample{LatencyMs: i})
		assert.LessOrEqual(t, h.Len(), PingHistorySize)
	}

	samples := h.Samples()
	require.Len(t, samples, PingHistorySize)
	// 最新的在前，最旧的（1）已被淘汰
	assert.Equal(t, []int64{5, 4, 3, 2}, []int64{
		samples[0].LatencyMs, samples[1].LatencyMs, samples[2].LatencyMs, samples[3].LatencyMs,
	})

	latest, ok := h.Latest()
	assert.True(t, ok)
	assert.Equal(t, int64(5), latest.LatencyMs)
}

func TestSpaceHandle_MatchesPeer(t *testing.T) {
	bare, err := ParseSpaceHandle("alice@Earth")
	require.NoError(t, err)
	assert.True(t, bare.MatchesPeer("QmAnything"))

	bound, err := ParseSpaceHandle("alice@Earth@Abc123")
	require.NoError(t, err)
	assert.True(t, bound.MatchesPeer("QmXyzAbc123"))
	assert.False(t, bound.MatchesPeer("QmAbc123Xyz"))
	assert.False(t, bound.MatchesPeer(""))
}
