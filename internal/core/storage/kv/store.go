package kv

import (
	"encoding/binary"
	"time"

	"github.com/dep2p/go-l2cap/internal/core/storage/engine"
)

// Store 带前缀隔离的 KV 存储
type Store struct {
	engine engine.InternalEngine
	prefix []byte
}

// New 创建 Store，所有键自动加上 prefix
func New(eng engine.InternalEngine, prefix []byte) *Store {
	return &Store{engine: eng, prefix: prefix}
}

func (s *Store) prefixKey(key []byte) []byte {
	if len(s.prefix) == 0 {
		return key
	}
	prefixed := make([]byte, len(s.prefix)+len(key))
	copy(prefixed, s.prefix)
	copy(prefixed[len(s.prefix):], key)
	return prefixed
}

func (s *Store) stripPrefix(key []byte) []byte {
	if len(key) < len(s.prefix) {
		return key
	}
	return key[len(s.prefix):]
}

// Get 获取值
func (s *Store) Get(key []byte) ([]byte, error) {
	return s.engine.Get(s.prefixKey(key))
}

// Put 写入键值对
func (s *Store) Put(key, value []byte) error {
	return s.engine.Put(s.prefixKey(key), value)
}

// PutWithTTL 写入带过期时间的键值对
func (s *Store) PutWithTTL(key, value []byte, ttl time.Duration) error {
	return s.engine.PutWithTTL(s.prefixKey(key), value, ttl)
}

// Delete 删除键
func (s *Store) Delete(key []byte) error {
	return s.engine.Delete(s.prefixKey(key))
}

// Has 检查键是否存在
func (s *Store) Has(key []byte) (bool, error) {
	return s.engine.Has(s.prefixKey(key))
}

// GetUint16 获取大端 uint16 值
func (s *Store) GetUint16(key []byte) (uint16, error) {
	data, err := s.Get(key)
	if err != nil {
		return 0, err
	}
	if len(data) != 2 {
		return 0, engine.ErrCorrupted
	}
	return binary.BigEndian.Uint16(data), nil
}

// PutUint16WithTTL 写入大端 uint16 值
func (s *Store) PutUint16WithTTL(key []byte, v uint16, ttl time.Duration) error {
	return s.PutWithTTL(key, binary.BigEndian.AppendUint16(nil, v), ttl)
}

// ForEach 遍历前缀下的所有键值对，fn 返回 false 时停止
//
// 传给 fn 的键已去掉 Store 的前缀。
func (s *Store) ForEach(fn func(key, value []byte) bool) error {
	it := s.engine.NewPrefixIterator(s.prefix)
	defer it.Close()

	for it.Next() {
		if !fn(s.stripPrefix(it.Key()), it.Value()) {
			break
		}
	}
	return it.Error()
}

// Count 统计键数量
func (s *Store) Count() (int, error) {
	n := 0
	err := s.ForEach(func(_, _ []byte) bool {
		n++
		return true
	})
	return n, err
}

// Prefix 返回前缀
func (s *Store) Prefix() []byte {
	return s.prefix
}
