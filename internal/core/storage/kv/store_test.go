package kv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-l2cap/internal/core/storage/engine"
	"github.com/dep2p/go-l2cap/internal/core/storage/engine/badger"
	"github.com/dep2p/go-l2cap/pkg/lib/log"
)

func init() {
	log.Discard()
}

func newEngine(t *testing.T) engine.InternalEngine {
	t.Helper()
	eng, err := badger.New(engine.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

// TestStore_PrefixIsolation 测试前缀隔离
func TestStore_PrefixIsolation(t *testing.T) {
	eng := newEngine(t)
	a := New(eng, []byte("a/"))
	b := New(eng, []byte("b/"))

	require.NoError(t, a.Put([]byte("k"), []byte("1")))
	require.NoError(t, b.Put([]byte("k"), []byte("2")))

	v, err := a.Get([]byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	raw, err := eng.Get([]byte("b/k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("2"), raw)

	require.NoError(t, a.Delete([]byte("k")))
	ok, err := a.Has([]byte("k"))
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = b.Has([]byte("k"))
	require.NoError(t, err)
	assert.True(t, ok)
}

// TestStore_Uint16 测试 uint16 编码
func TestStore_Uint16(t *testing.T) {
	s := New(newEngine(t), []byte("psm/"))

	require.NoError(t, s.PutUint16WithTTL([]byte("x"), 0x1001, time.Hour))
	v, err := s.GetUint16([]byte("x"))
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1001), v)

	require.NoError(t, s.Put([]byte("bad"), []byte{1, 2, 3}))
	_, err = s.GetUint16([]byte("bad"))
	assert.ErrorIs(t, err, engine.ErrCorrupted)

	_, err = s.GetUint16([]byte("missing"))
	assert.True(t, engine.IsNotFound(err))
}

// TestStore_ForEach 测试遍历只覆盖自身前缀
func TestStore_ForEach(t *testing.T) {
	eng := newEngine(t)
	s := New(eng, []byte("psm/"))
	require.NoError(t, s.Put([]byte("1"), []byte("a")))
	require.NoError(t, s.Put([]byte("2"), []byte("b")))
	require.NoError(t, eng.Put([]byte("other"), []byte("c")))

	got := map[string]string{}
	require.NoError(t, s.ForEach(func(k, v []byte) bool {
		got[string(k)] = string(v)
		return true
	}))
	assert.Equal(t, map[string]string{"1": "a", "2": "b"}, got)

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	seen := 0
	require.NoError(t, s.ForEach(func(_, _ []byte) bool {
		seen++
		return false
	}))
	assert.Equal(t, 1, seen)
}
