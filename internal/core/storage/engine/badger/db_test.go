package badger

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-didpeer/internal/core/storage/engine"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(engine.DefaultConfig(filepath.Join(t.TempDir(), "test.db")))
	require.NoError(t, err)
	require.NoError(t, e.Start())
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestEngine_CRUD(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Get([]byte("k"))
	assert.ErrorIs(t, err, engine.ErrNotFound)

	require.NoError(t, e.Put([]byte("k"), []byte("v")))
	got, err := e.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)

	ok, err := e.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, e.Delete([]byte("k")))
	ok, err = e.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.ErrorIs(t, e.Put(nil, []byte("v")), engine.ErrEmptyKey)
}

func TestEngine_Scan(t *testing.T) {
	e := newTestEngine(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, e.Put([]byte(fmt.Sprintf("a/%d", i)), []byte{byte(i)}))
	}
	require.NoError(t, e.Put([]byte("b/0"), []byte("x")))

	var keys []string
	require.NoError(t, e.Scan([]byte("a/"), func(k, _ []byte) error {
		keys = append(keys, string(k))
		return nil
	}))
	assert.Equal(t, []string{"a/0", "a/1", "a/2"}, keys)

	stop := errors.New("stop")
	err := e.Scan([]byte("a/"), func(_, _ []byte) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestEngine_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "persist.db")

	e, err := New(engine.DefaultConfig(path))
	require.NoError(t, err)
	require.NoError(t, e.Put([]byte("did"), []byte("entry")))
	require.NoError(t, e.Close())

	e, err = New(engine.DefaultConfig(path))
	require.NoError(t, err)
	defer e.Close()

	got, err := e.Get([]byte("did"))
	require.NoError(t, err)
	assert.Equal(t, []byte("entry"), got)
}

func TestEngine_InMemoryAndClose(t *testing.T) {
	e, err := New(engine.InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, e.Start())
	require.NoError(t, e.Put([]byte("k"), []byte("v")))

	require.NoError(t, e.Close())
	require.NoError(t, e.Close(), "重复关闭不应报错")

	_, err = e.Get([]byte("k"))
	assert.ErrorIs(t, err, engine.ErrClosed)
	assert.ErrorIs(t, e.Start(), engine.ErrClosed)
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)

	_, err = New(&engine.Config{})
	assert.ErrorIs(t, err, engine.ErrInvalidConfig)
}
