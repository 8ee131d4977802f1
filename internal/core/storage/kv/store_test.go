package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-didpeer/internal/core/storage/engine"
	"github.com/dep2p/go-didpeer/internal/core/storage/engine/badger"
)

func testEngine(t *testing.T) engine.Engine {
	t.Helper()
	eng, err := badger.New(engine.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestStore_PrefixIsolation(t *testing.T) {
	eng := testEngine(t)
	a := New(eng, []byte("a/"))
	b := New(eng, []byte("b/"))

	require.NoError(t, a.Put([]byte("k"), []byte("from-a")))
	require.NoError(t, b.Put([]byte("k"), []byte("from-b")))

	got, err := a.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("from-a"), got)

	raw, err := eng.Get([]byte("b/k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("from-b"), raw)

	require.NoError(t, a.Delete([]byte("k")))
	ok, err := a.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = b.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_JSONAndForEach(t *testing.T) {
	s := New(testEngine(t), []byte("t/"))

	type entry struct {
		Handle string `json:"handle"`
	}
	require.NoError(t, s.PutJSON([]byte("did:example:a"), entry{Handle: "a@Earth"}))
	require.NoError(t, s.PutJSON([]byte("did:example:b"), entry{Handle: "b@Earth"}))

	var got entry
	require.NoError(t, s.GetJSON([]byte("did:example:a"), &got))
	assert.Equal(t, "a@Earth", got.Handle)

	err := s.GetJSON([]byte("did:example:missing"), &got)
	assert.True(t, engine.IsNotFound(err))

	var keys []string
	require.NoError(t, s.ForEach(func(k, _ []byte) error {
		keys = append(keys, string(k))
		return nil
	}))
	assert.Equal(t, []string{"did:example:a", "did:example:b"}, keys)
}
